// registry.go - Globale Funktions-Registry fuer die Native-Runtime
//
// Dieses Modul enthaelt:
// - PackedFunc: Typ-loser Funktionsaufruf ueber die Runtime-Grenze
// - Register/MustRegister: Registriert eine Funktion unter einem Namen
// - GetGlobalFunc: Sucht eine Funktion nach Namen (mit Vorschlag bei Tippfehlern)
// - ListGlobalFuncNames: Sortierte Liste aller registrierten Namen
package ffi

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/emirpasic/gods/v2/maps/treemap"
)

// PackedFunc ist eine Funktion mit variabler, untypisierter Argumentliste.
// Argumente und Rueckgabewert werden von der aufgerufenen Seite geprueft.
type PackedFunc func(args ...any) (any, error)

var (
	ErrFuncNotFound      = errors.New("global function not found")
	ErrAlreadyRegistered = errors.New("global function already registered")
)

// maxSuggestDistance begrenzt Vorschlaege auf wirklich aehnliche Namen
const maxSuggestDistance = 8

var (
	mu    sync.RWMutex
	funcs = treemap.New[string, PackedFunc]()
)

// Register registriert f unter name. Ein bereits vorhandener Name wird nur
// mit override ersetzt.
func Register(name string, f PackedFunc, override bool) error {
	if name == "" || f == nil {
		return fmt.Errorf("ffi: invalid registration %q", name)
	}

	mu.Lock()
	defer mu.Unlock()

	if _, ok := funcs.Get(name); ok && !override {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	funcs.Put(name, f)
	slog.Debug("registered global function", "name", name, "override", override)
	return nil
}

// MustRegister ist Register fuer init()-Funktionen und paniced bei Konflikten
func MustRegister(name string, f PackedFunc) {
	if err := Register(name, f, false); err != nil {
		panic(err)
	}
}

// Remove entfernt eine Funktion aus der Registry
func Remove(name string) {
	mu.Lock()
	defer mu.Unlock()
	funcs.Remove(name)
}

// GetGlobalFunc gibt die unter name registrierte Funktion zurueck
func GetGlobalFunc(name string) (PackedFunc, error) {
	mu.RLock()
	defer mu.RUnlock()

	if f, ok := funcs.Get(name); ok {
		return f, nil
	}

	if s := closest(name); s != "" {
		return nil, fmt.Errorf("%w: %s (did you mean %s?)", ErrFuncNotFound, name, s)
	}

	return nil, fmt.Errorf("%w: %s", ErrFuncNotFound, name)
}

// ListGlobalFuncNames gibt alle registrierten Namen sortiert zurueck
func ListGlobalFuncNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	return funcs.Keys()
}

// closest sucht den aehnlichsten registrierten Namen (Aufrufer haelt mu)
func closest(name string) string {
	var best string
	score := maxSuggestDistance + 1
	for _, k := range funcs.Keys() {
		if s := levenshtein.ComputeDistance(name, k); s < score {
			score = s
			best = k
		}
	}

	return best
}
