// factory.go - Runtime-Modul der Graph-Executor-Factory
//
// Dieses Modul enthaelt:
// - CreateFuncName/init: Registrierung der Create-Funktion in der Registry
// - Create: Prueft die gepackten Argumente und erzeugt das FactoryModule
// - FactoryModule: Haelt Graph, Bibliothek, Modulnamen und Parameter
// - Instance: Mit Parametern belegter Graph-Executor
package graphexec

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"github.com/relayexec/relayexec/ffi"
	"github.com/relayexec/relayexec/logutil"
	"github.com/relayexec/relayexec/module"
	"github.com/relayexec/relayexec/ndarray"
)

const (
	// CreateFuncName ist der Registry-Name der Create-Funktion
	CreateFuncName = "relayexec.graph_executor_factory.create"

	// TypeKey des FactoryModule
	TypeKey = "GraphExecutorFactory"
)

var (
	ErrBadArgs      = errors.New("graphexec: bad arguments")
	ErrNoSuchParam  = errors.New("graphexec: no such parameter")
	ErrNoSuchInput  = errors.New("graphexec: no such input")
	ErrNotContainer = errors.New("graphexec: not a graph executor factory container")
)

func init() {
	ffi.MustRegister(CreateFuncName, func(args ...any) (any, error) {
		return Create(args...)
	})
}

// Param ist ein benannter, bereits konvertierter Parameter
type Param struct {
	Name  string
	Value *ndarray.NDArray
}

// FactoryModule ist das lebende Modul hinter einem GraphExecutorFactory
type FactoryModule struct {
	graphJSON string
	graph     *Graph
	lib       module.Module
	name      string
	params    []Param
}

// Create erwartet (graphJSON string, lib module.Module, name string,
// name0 string, arr0 *ndarray.NDArray, ...)
func Create(args ...any) (*FactoryModule, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 arguments, got %d", ErrBadArgs, len(args))
	}

	graphJSON, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: graph must be a string, got %T", ErrBadArgs, args[0])
	}

	lib, ok := args[1].(module.Module)
	if !ok || isNil(lib) {
		return nil, fmt.Errorf("%w: lib must be a module, got %T", ErrBadArgs, args[1])
	}

	name, ok := args[2].(string)
	if !ok {
		return nil, fmt.Errorf("%w: module name must be a string, got %T", ErrBadArgs, args[2])
	}

	tail := args[3:]
	if len(tail)%2 != 0 {
		return nil, fmt.Errorf("%w: params must come in (name, array) pairs", ErrBadArgs)
	}

	params := make([]Param, 0, len(tail)/2)
	for i := 0; i < len(tail); i += 2 {
		pname, ok := tail[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: param name at %d must be a string, got %T", ErrBadArgs, 3+i, tail[i])
		}

		arr, ok := tail[i+1].(*ndarray.NDArray)
		if !ok || arr == nil {
			return nil, fmt.Errorf("%w: param %s must be an ndarray, got %T", ErrBadArgs, pname, tail[i+1])
		}

		params = append(params, Param{Name: pname, Value: arr})
	}

	return New(graphJSON, lib, name, params)
}

// isNil erkennt auch typisierte nil-Werte wie (*module.BlobModule)(nil)
func isNil(lib module.Module) bool {
	if lib == nil {
		return true
	}

	switch v := reflect.ValueOf(lib); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}

	return false
}

// New erzeugt ein FactoryModule aus bereits typisierten Argumenten
func New(graphJSON string, lib module.Module, name string, params []Param) (*FactoryModule, error) {
	graph, err := ParseGraph(graphJSON)
	if err != nil {
		return nil, err
	}

	for i, p := range params {
		if slices.ContainsFunc(params[:i], func(q Param) bool { return q.Name == p.Name }) {
			return nil, fmt.Errorf("%w: duplicate param %s", ErrBadArgs, p.Name)
		}
	}

	slog.Debug("created graph executor factory", "name", name, "lib", lib.TypeKey(), "nodes", len(graph.Nodes), "params", len(params))
	return &FactoryModule{
		graphJSON: graphJSON,
		graph:     graph,
		lib:       lib,
		name:      name,
		params:    slices.Clone(params),
	}, nil
}

func (m *FactoryModule) TypeKey() string { return TypeKey }

func (m *FactoryModule) GraphJSON() string { return m.graphJSON }

func (m *FactoryModule) Graph() *Graph { return m.graph }

func (m *FactoryModule) Lib() module.Module { return m.lib }

// Name ist der Modulname, unter dem der Executor erzeugt wird
func (m *FactoryModule) Name() string { return m.name }

// Params gibt die Parameter in Uebergabe-Reihenfolge zurueck
func (m *FactoryModule) Params() []Param { return slices.Clone(m.params) }

func (m *FactoryModule) ParamNames() []string {
	names := make([]string, len(m.params))
	for i, p := range m.params {
		names[i] = p.Name
	}
	return names
}

func (m *FactoryModule) Param(name string) (*ndarray.NDArray, error) {
	for _, p := range m.params {
		if p.Name == name {
			return p.Value, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoSuchParam, name)
}

// GetFunction liefert den Modulnamen (erzeugt eine Instance), die
// Abfragen get_graph_json, list_params_name und get_param_by_name.
// Alle anderen Namen werden an die Bibliothek weitergereicht.
func (m *FactoryModule) GetFunction(name string) (ffi.PackedFunc, error) {
	switch name {
	case m.name:
		return func(...any) (any, error) {
			return m.Instantiate()
		}, nil
	case "get_graph_json":
		return func(...any) (any, error) {
			return m.graphJSON, nil
		}, nil
	case "list_params_name":
		return func(...any) (any, error) {
			return m.ParamNames(), nil
		}, nil
	case "get_param_by_name":
		return func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: get_param_by_name takes 1 argument, got %d", ErrBadArgs, len(args))
			}

			pname, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: param name must be a string, got %T", ErrBadArgs, args[0])
			}

			return m.Param(pname)
		}, nil
	}

	logutil.Trace("delegating function lookup to library", "name", name, "lib", m.lib.TypeKey())
	return m.lib.GetFunction(name)
}

// Instantiate belegt die Eingaben des Graphen mit den Parametern.
// Parameter ohne passende Graph-Eingabe werden uebersprungen.
func (m *FactoryModule) Instantiate() (*Instance, error) {
	inst := &Instance{
		graph:  m.graph,
		lib:    m.lib,
		inputs: make(map[string]*ndarray.NDArray, len(m.graph.ArgNodes)),
	}

	inputs := m.graph.InputNames()
	for _, p := range m.params {
		if !slices.Contains(inputs, p.Name) {
			slog.Debug("skipping param without graph input", "name", p.Name)
			continue
		}

		if err := inst.SetInput(p.Name, p.Value); err != nil {
			return nil, err
		}
	}

	return inst, nil
}

// Instance ist ein Graph-Executor mit gesetzten Eingaben
type Instance struct {
	graph  *Graph
	lib    module.Module
	inputs map[string]*ndarray.NDArray
}

func (i *Instance) Graph() *Graph { return i.graph }

func (i *Instance) Lib() module.Module { return i.lib }

func (i *Instance) NumInputs() int { return len(i.graph.ArgNodes) }

// SetInput setzt eine Graph-Eingabe. v wird mit ndarray.Array konvertiert.
func (i *Instance) SetInput(name string, v any) error {
	if !slices.Contains(i.graph.InputNames(), name) {
		return fmt.Errorf("%w: %s", ErrNoSuchInput, name)
	}

	arr, err := ndarray.Array(v)
	if err != nil {
		return fmt.Errorf("input %s: %w", name, err)
	}

	i.inputs[name] = arr
	return nil
}

func (i *Instance) GetInput(name string) (*ndarray.NDArray, bool) {
	arr, ok := i.inputs[name]
	return arr, ok
}
