// aot.go - AOTExecutorFactory: Factory fuer Ahead-of-Time Executoren
//
// Dieses Modul enthaelt:
// - NewAOTExecutorFactory: Prueft den Runner und konvertiert die Parameter
// - ExecutorFactory-Methoden: GetInternalRepr, GetParams, GetLib
// - Parameter-Abfragen: ListParamNames, GetParamByName, GetParamID
// - Metadata/PlanWorkspace: Signatur des Runners und Parameter-Layout
package executor

import (
	"fmt"

	"github.com/relayexec/relayexec/crt"
	"github.com/relayexec/relayexec/ir"
	"github.com/relayexec/relayexec/module"
	"github.com/relayexec/relayexec/ndarray"
)

// AOTExecutorFactory haelt die kompilierte Einstiegsfunktion eines
// AOT-Builds. Es wird keine Runtime-Funktion aufgerufen.
type AOTExecutorFactory struct {
	irMod   *ir.Module
	target  ir.Target
	runner  *ir.PrimFunc
	lib     module.Module
	libName string
	params  *ParamDict

	// abwechselnd Name, *ndarray.NDArray
	args []any
}

// NewAOTExecutorFactory erzeugt die Factory. runner muss eine *ir.PrimFunc sein.
func NewAOTExecutorFactory(irMod *ir.Module, target ir.Target, runner ir.Function, lib module.Module, libName string, params *ParamDict) (*AOTExecutorFactory, error) {
	prim, ok := runner.(*ir.PrimFunc)
	if !ok || prim == nil {
		return nil, fmt.Errorf("%w, got %T", ErrInvalidRunner, runner)
	}

	args, err := Flatten(params)
	if err != nil {
		return nil, err
	}

	return &AOTExecutorFactory{
		irMod:   irMod,
		target:  target,
		runner:  prim,
		lib:     lib,
		libName: libName,
		params:  params,
		args:    args,
	}, nil
}

// GetInternalRepr gibt den Runner unveraendert zurueck
func (f *AOTExecutorFactory) GetInternalRepr() any { return f.runner }

// Runner ist GetInternalRepr mit statischem Typ
func (f *AOTExecutorFactory) Runner() *ir.PrimFunc { return f.runner }

func (f *AOTExecutorFactory) GetParams() *ParamDict { return f.params }

func (f *AOTExecutorFactory) GetLib() module.Module { return f.lib }

func (f *AOTExecutorFactory) IRModule() *ir.Module { return f.irMod }

func (f *AOTExecutorFactory) Target() ir.Target { return f.target }

func (f *AOTExecutorFactory) LibName() string { return f.libName }

// Metadata gibt Anzahl der Ein- und Ausgaben des Runners zurueck
func (f *AOTExecutorFactory) Metadata() ir.AOTMetadata {
	return ir.MetadataOf(f.runner)
}

// ListParamNames gibt die Parameternamen in Einfuegereihenfolge zurueck
func (f *AOTExecutorFactory) ListParamNames() []string {
	names := make([]string, 0, len(f.args)/2)
	for i := 0; i < len(f.args); i += 2 {
		names = append(names, f.args[i].(string))
	}
	return names
}

// GetParamByName gibt den konvertierten Parameter zurueck
func (f *AOTExecutorFactory) GetParamByName(name string) (*ndarray.NDArray, error) {
	id, err := f.GetParamID(name)
	if err != nil {
		return nil, err
	}

	return f.args[2*id+1].(*ndarray.NDArray), nil
}

// GetParamID gibt die Speicher-ID (Position) eines Parameters zurueck
func (f *AOTExecutorFactory) GetParamID(name string) (int, error) {
	for i := 0; i < len(f.args); i += 2 {
		if f.args[i] == name {
			return i / 2, nil
		}
	}

	return 0, fmt.Errorf("%w %s", ErrParamNotFound, name)
}

// PlanWorkspace legt alle Parameter in Einfuegereihenfolge in einen
// Workspace der Groesse size und gibt die Offsets je Parameter zurueck
func (f *AOTExecutorFactory) PlanWorkspace(size int) (*crt.Workspace, map[string]int, error) {
	ws := crt.NewWorkspace(size)
	offsets := make(map[string]int, len(f.args)/2)
	for i := 0; i < len(f.args); i += 2 {
		name := f.args[i].(string)
		arr := f.args[i+1].(*ndarray.NDArray)

		offset, err := ws.Allocate(arr.NumBytes())
		if err != nil {
			return nil, nil, fmt.Errorf("param %s: %w", name, err)
		}
		offsets[name] = offset
	}

	return ws, offsets, nil
}
