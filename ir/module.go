// module.go - IRModule: Sammlung benannter IR-Funktionen
// Die Reihenfolge des Hinzufuegens bleibt erhalten.
package ir

import (
	"errors"
	"fmt"
	"slices"
)

var ErrFunctionExists = errors.New("ir: function already in module")

// Module haelt die Funktionen eines Build-Ergebnisses
type Module struct {
	names []string
	funcs map[string]Function
}

// NewModule erzeugt ein Modul aus den gegebenen Funktionen
func NewModule(funcs ...Function) (*Module, error) {
	m := &Module{funcs: make(map[string]Function)}
	for _, f := range funcs {
		if err := m.Add(f); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Add fuegt f unter f.FuncName() hinzu
func (m *Module) Add(f Function) error {
	name := f.FuncName()
	if _, ok := m.funcs[name]; ok {
		return fmt.Errorf("%w: %s", ErrFunctionExists, name)
	}

	if m.funcs == nil {
		m.funcs = make(map[string]Function)
	}

	m.names = append(m.names, name)
	m.funcs[name] = f
	return nil
}

// Lookup sucht eine Funktion nach Namen
func (m *Module) Lookup(name string) (Function, bool) {
	if m == nil {
		return nil, false
	}

	f, ok := m.funcs[name]
	return f, ok
}

// Names gibt die Funktionsnamen in Einfuegereihenfolge zurueck
func (m *Module) Names() []string {
	if m == nil {
		return nil
	}

	return slices.Clone(m.names)
}

// Len gibt die Anzahl der Funktionen zurueck
func (m *Module) Len() int {
	if m == nil {
		return 0
	}

	return len(m.names)
}
