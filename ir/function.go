// function.go - Funktionen der Zwischenrepraesentation
//
// Dieses Modul enthaelt:
// - Function: Gemeinsames Interface aller IR-Funktionen
// - PrimFunc: Low-Level Funktion (TIR), z.B. die AOT-Einstiegsfunktion
// - RelayFunc: High-Level Funktion vor dem Lowering
// - NewAOTRunner: Baut die Signatur der AOT-Einstiegsfunktion
// - AOTMetadata: Anzahl Ein- und Ausgaben des Runners
package ir

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RunFuncSymbol ist das globale Symbol der AOT-Einstiegsfunktion
const RunFuncSymbol = "tvm__run_func"

// Function ist eine Funktion in einem IR-Modul
type Function interface {
	FuncName() string
}

// Var ist ein Parameter einer PrimFunc
type Var struct {
	Name  string
	DType string
}

// PrimFunc ist eine kompilierte, primitive Funktion mit fester Signatur
type PrimFunc struct {
	Name   string
	Params []Var
	Attrs  map[string]string
}

func (f *PrimFunc) FuncName() string { return f.Name }

// GlobalSymbol gibt das exportierte Symbol zurueck, sonst den Namen
func (f *PrimFunc) GlobalSymbol() string {
	if s, ok := f.Attrs["global_symbol"]; ok {
		return s
	}

	return f.Name
}

func (f *PrimFunc) String() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Name + ": " + p.DType
	}

	var attrs []string
	for _, k := range slices.Sorted(maps.Keys(f.Attrs)) {
		attrs = append(attrs, fmt.Sprintf("%s=%q", k, f.Attrs[k]))
	}

	return fmt.Sprintf("primfn %s(%s) attrs{%s}", f.Name, strings.Join(names, ", "), strings.Join(attrs, ", "))
}

// RelayFunc ist eine High-Level Funktion. Sie kann nicht direkt ausgefuehrt werden.
type RelayFunc struct {
	Name   string
	Params []string
	Body   string
}

func (f *RelayFunc) FuncName() string { return f.Name }

// NewAOTRunner baut die Einstiegsfunktion mit input_0..n und output_0..m
// als Handle-Parametern
func NewAOTRunner(numInputs, numOutputs int) *PrimFunc {
	params := make([]Var, 0, numInputs+numOutputs)
	for i := range numInputs {
		params = append(params, Var{Name: fmt.Sprintf("input_%d", i), DType: "handle"})
	}

	for i := range numOutputs {
		params = append(params, Var{Name: fmt.Sprintf("output_%d", i), DType: "handle"})
	}

	return &PrimFunc{
		Name:   RunFuncSymbol,
		Params: params,
		Attrs: map[string]string{
			"global_symbol":   RunFuncSymbol,
			"runner_function": "true",
		},
	}
}

// AOTMetadata beschreibt die Signatur des AOT-Runners
type AOTMetadata struct {
	NumInputs  int
	NumOutputs int
}

// MetadataOf zaehlt input_/output_ Parameter des Runners
func MetadataOf(f *PrimFunc) AOTMetadata {
	var md AOTMetadata
	for _, p := range f.Params {
		switch {
		case strings.HasPrefix(p.Name, "input_"):
			md.NumInputs++
		case strings.HasPrefix(p.Name, "output_"):
			md.NumOutputs++
		}
	}

	return md
}
