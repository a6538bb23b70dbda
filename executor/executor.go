// executor.go - ExecutorFactory Interface und gemeinsame Fehler
//
// Dieses Modul enthaelt:
// - ExecutorFactory: Gemeinsame Faehigkeiten aller Executor-Factories
// - Base: Einbettbarer Rumpf ohne Implementierung
// - Fehler: ErrNotImplemented, ErrInvalidRunner, ErrInvalidModule, ErrParamNotFound
package executor

import (
	"errors"
	"fmt"

	"github.com/relayexec/relayexec/module"
)

var (
	ErrNotImplemented = errors.New("executor: not implemented")
	ErrInvalidRunner  = errors.New("executor: runner function must be a PrimFunc")
	ErrInvalidModule  = errors.New("executor: create function did not return a runtime module")
	ErrParamNotFound  = errors.New("executor: no such parameter")
)

// ExecutorFactory verpackt das Ergebnis eines Builds: die interne
// Repraesentation, die der Executor ausfuehrt, die Parameter und die
// kompilierte Bibliothek.
type ExecutorFactory interface {
	// GetInternalRepr gibt die Repraesentation zurueck, auf die sich der
	// Executor stuetzt: den AOT-Runner oder den Graph-JSON-String
	GetInternalRepr() any

	// GetParams gibt die Parameter zurueck, z.B. um sie getrennt zu speichern
	GetParams() *ParamDict

	// GetLib gibt die generierte Bibliothek zurueck
	GetLib() module.Module
}

// Base erfuellt ExecutorFactory ohne eigene Implementierung. Varianten
// betten Base ein und ueberschreiben, was sie anbieten. Jede nicht
// ueberschriebene Methode panict mit einem Fehler, der ErrNotImplemented
// umschliesst.
type Base struct{}

func (Base) GetInternalRepr() any { panic(notImplemented("GetInternalRepr")) }

func (Base) GetParams() *ParamDict { panic(notImplemented("GetParams")) }

func (Base) GetLib() module.Module { panic(notImplemented("GetLib")) }

func notImplemented(method string) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, method)
}

var (
	_ ExecutorFactory = Base{}
	_ ExecutorFactory = (*AOTExecutorFactory)(nil)
	_ ExecutorFactory = (*GraphExecutorFactory)(nil)
)
