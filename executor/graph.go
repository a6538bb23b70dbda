// graph.go - GraphExecutorFactory: Factory fuer Graph-Executoren
//
// Dieses Modul enthaelt:
// - NewGraphExecutorFactory: Erzeugt das Runtime-Modul ueber die Create-Funktion
// - WithCreateFunc: Option zum Injizieren der Create-Funktion
// - Weiterleitungen: ExportLibrary, Get, SaveExecutorConfig, GetGraphJSON
package executor

import (
	"fmt"

	"github.com/relayexec/relayexec/ffi"
	"github.com/relayexec/relayexec/graphexec"
	"github.com/relayexec/relayexec/ir"
	"github.com/relayexec/relayexec/module"
)

// GraphOption konfiguriert NewGraphExecutorFactory
type GraphOption func(*graphOptions)

type graphOptions struct {
	fcreate ffi.PackedFunc
}

// WithCreateFunc ersetzt die Suche in der globalen Registry
func WithCreateFunc(f ffi.PackedFunc) GraphOption {
	return func(o *graphOptions) {
		o.fcreate = f
	}
}

// GraphExecutorFactory verbindet den Graph-JSON, die Bibliothek und die
// Parameter mit einem lebenden Runtime-Modul.
type GraphExecutorFactory struct {
	irMod     *ir.Module
	target    ir.Target
	graphJSON string
	lib       module.Module
	libName   string
	params    *ParamDict

	mod module.Module
}

// NewGraphExecutorFactory ruft die Create-Funktion mit
// (graphJSON, lib, libName, name0, arr0, ...) auf. Den Graph-JSON prueft
// erst die Create-Funktion. Bei einem Fehler wird kein Objekt zurueckgegeben.
func NewGraphExecutorFactory(irMod *ir.Module, target ir.Target, graphJSON string, lib module.Module, libName string, params *ParamDict, opts ...GraphOption) (*GraphExecutorFactory, error) {
	var o graphOptions
	for _, opt := range opts {
		opt(&o)
	}

	args, err := Flatten(params)
	if err != nil {
		return nil, err
	}

	fcreate := o.fcreate
	if fcreate == nil {
		fcreate, err = ffi.GetGlobalFunc(graphexec.CreateFuncName)
		if err != nil {
			return nil, err
		}
	}

	ret, err := fcreate(append([]any{graphJSON, lib, libName}, args...)...)
	if err != nil {
		return nil, err
	}

	mod, ok := ret.(module.Module)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvalidModule, ret)
	}

	return &GraphExecutorFactory{
		irMod:     irMod,
		target:    target,
		graphJSON: graphJSON,
		lib:       lib,
		libName:   libName,
		params:    params,
		mod:       mod,
	}, nil
}

// ExportLibrary wird unveraendert an das Runtime-Modul weitergereicht
func (f *GraphExecutorFactory) ExportLibrary(fileName string, fcompile module.Compiler, addons []string, options map[string]any) error {
	return f.mod.ExportLibrary(fileName, fcompile, addons, options)
}

// SaveExecutorConfig gibt den Graph-JSON zurueck
func (f *GraphExecutorFactory) SaveExecutorConfig() string { return f.graphJSON }

func (f *GraphExecutorFactory) GetGraphJSON() string { return f.graphJSON }

// GetInternalRepr gibt den Graph-JSON als string zurueck
func (f *GraphExecutorFactory) GetInternalRepr() any { return f.graphJSON }

func (f *GraphExecutorFactory) GetParams() *ParamDict { return f.params }

func (f *GraphExecutorFactory) GetLib() module.Module { return f.lib }

func (f *GraphExecutorFactory) IRModule() *ir.Module { return f.irMod }

func (f *GraphExecutorFactory) Target() ir.Target { return f.target }

func (f *GraphExecutorFactory) LibName() string { return f.libName }

// Module gibt das lebende Runtime-Modul zurueck
func (f *GraphExecutorFactory) Module() module.Module { return f.mod }

// Get sucht eine Funktion im Runtime-Modul, Fehler unveraendert
func (f *GraphExecutorFactory) Get(key string) (ffi.PackedFunc, error) {
	return f.mod.GetFunction(key)
}
