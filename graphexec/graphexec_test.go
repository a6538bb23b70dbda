package graphexec

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/relayexec/relayexec/ffi"
	"github.com/relayexec/relayexec/module"
	"github.com/relayexec/relayexec/ndarray"
)

const addGraph = `{
  "nodes": [
    {"op": "null", "name": "x", "inputs": []},
    {"op": "null", "name": "w", "inputs": []},
    {"op": "tvm_op", "name": "add", "attrs": {"func_name": "fused_add", "num_inputs": "2"}, "inputs": [[0, 0, 0], [1, 0, 0]]},
    {"op": "tvm_op", "name": "add2", "attrs": {"func_name": "fused_add"}, "inputs": [[2, 0, 0], [1, 0, 0]]}
  ],
  "arg_nodes": [0, 1],
  "heads": [[3, 0, 0]],
  "node_row_ptr": [0, 1, 2, 3, 4]
}`

func testLib() *module.BlobModule {
	return module.NewBlobModule("so", []byte("\x7fELF-lib"), map[string]ffi.PackedFunc{
		"fused_add": func(...any) (any, error) { return "add", nil },
	})
}

func testArray(t *testing.T, v any) *ndarray.NDArray {
	t.Helper()
	a, err := ndarray.Array(v)
	require.NoError(t, err)
	return a
}

func TestParseGraph(t *testing.T) {
	g, err := ParseGraph(addGraph)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"fused_add"}, g.FuncNames()); diff != "" {
		t.Errorf("FuncNames (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"x", "w"}, g.InputNames()); diff != "" {
		t.Errorf("InputNames (-want +got):\n%s", diff)
	}

	empty, err := ParseGraph(`{"nodes":[]}`)
	require.NoError(t, err)
	require.Empty(t, empty.FuncNames())
	require.Empty(t, empty.InputNames())
}

func TestParseGraphErrors(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"nodes":`,
		"wrong type":   `{"nodes": 1}`,
		"arg node":     `{"nodes": [], "arg_nodes": [0]}`,
		"head":         `{"nodes": [{"op": "null", "name": "x"}], "heads": [[1, 0, 0]]}`,
		"empty head":   `{"nodes": [{"op": "null", "name": "x"}], "heads": [[]]}`,
		"node input":   `{"nodes": [{"op": "tvm_op", "name": "y", "inputs": [[4, 0, 0]]}]}`,
		"negative ref": `{"nodes": [{"op": "null", "name": "x"}], "arg_nodes": [-1]}`,
	}

	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseGraph(s); !errors.Is(err, ErrBadGraph) {
				t.Errorf("erwartet ErrBadGraph, bekommen %v", err)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	lib := testLib()
	w := testArray(t, []float32{1, 2})

	m, err := Create(`{"nodes":[]}`, lib, "lib0", "w", w)
	require.NoError(t, err)

	require.Equal(t, TypeKey, m.TypeKey())
	require.Equal(t, "lib0", m.Name())
	require.Equal(t, `{"nodes":[]}`, m.GraphJSON())
	require.Equal(t, []string{"w"}, m.ParamNames())
	require.Same(t, lib, m.Lib())

	got, err := m.Param("w")
	require.NoError(t, err)
	require.Same(t, w, got)

	if _, err := m.Param("b"); !errors.Is(err, ErrNoSuchParam) {
		t.Errorf("erwartet ErrNoSuchParam, bekommen %v", err)
	}
}

func TestCreateErrors(t *testing.T) {
	lib := testLib()
	w := testArray(t, []float32{1})

	cases := []struct {
		name string
		args []any
		want error
	}{
		{"too few", []any{`{"nodes":[]}`, lib}, ErrBadArgs},
		{"graph type", []any{42, lib, "lib0"}, ErrBadArgs},
		{"bad graph", []any{`{`, lib, "lib0"}, ErrBadGraph},
		{"lib type", []any{`{"nodes":[]}`, "lib", "lib0"}, ErrBadArgs},
		{"nil lib", []any{`{"nodes":[]}`, nil, "lib0"}, ErrBadArgs},
		{"typed nil lib", []any{`{"nodes":[]}`, (*module.BlobModule)(nil), "lib0"}, ErrBadArgs},
		{"name type", []any{`{"nodes":[]}`, lib, 1}, ErrBadArgs},
		{"odd tail", []any{`{"nodes":[]}`, lib, "lib0", "w"}, ErrBadArgs},
		{"param name", []any{`{"nodes":[]}`, lib, "lib0", 1, w}, ErrBadArgs},
		{"param value", []any{`{"nodes":[]}`, lib, "lib0", "w", []float32{1}}, ErrBadArgs},
		{"duplicate", []any{`{"nodes":[]}`, lib, "lib0", "w", w, "w", w}, ErrBadArgs},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Create(tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("erwartet %v, bekommen %v", tt.want, err)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	fcreate, err := ffi.GetGlobalFunc(CreateFuncName)
	require.NoError(t, err)

	ret, err := fcreate(`{"nodes":[]}`, testLib(), "lib0")
	require.NoError(t, err)

	if _, ok := ret.(*FactoryModule); !ok {
		t.Errorf("erwartet *FactoryModule, bekommen %T", ret)
	}
}

func TestGetFunction(t *testing.T) {
	w := testArray(t, []float32{1, 2})
	m, err := Create(addGraph, testLib(), "default", "w", w)
	require.NoError(t, err)

	call := func(name string, args ...any) (any, error) {
		t.Helper()
		f, err := m.GetFunction(name)
		require.NoError(t, err, name)
		return f(args...)
	}

	ret, err := call("get_graph_json")
	require.NoError(t, err)
	require.Equal(t, addGraph, ret)

	ret, err = call("list_params_name")
	require.NoError(t, err)
	require.Equal(t, []string{"w"}, ret)

	ret, err = call("get_param_by_name", "w")
	require.NoError(t, err)
	require.Same(t, w, ret)

	if _, err := call("get_param_by_name", "x"); !errors.Is(err, ErrNoSuchParam) {
		t.Errorf("erwartet ErrNoSuchParam, bekommen %v", err)
	}

	if _, err := call("get_param_by_name"); !errors.Is(err, ErrBadArgs) {
		t.Errorf("erwartet ErrBadArgs, bekommen %v", err)
	}

	// Bibliotheks-Funktionen werden durchgereicht
	ret, err = call("fused_add")
	require.NoError(t, err)
	require.Equal(t, "add", ret)

	if _, err := m.GetFunction("missing"); !errors.Is(err, module.ErrFunctionNotFound) {
		t.Errorf("erwartet ErrFunctionNotFound, bekommen %v", err)
	}

	ret, err = call("default")
	require.NoError(t, err)

	inst, ok := ret.(*Instance)
	require.True(t, ok, "erwartet *Instance, bekommen %T", ret)
	require.Equal(t, 2, inst.NumInputs())

	got, ok := inst.GetInput("w")
	require.True(t, ok)
	require.Same(t, w, got)

	_, ok = inst.GetInput("x")
	require.False(t, ok)

	require.NoError(t, inst.SetInput("x", []float32{3, 4}))
	got, _ = inst.GetInput("x")
	require.Equal(t, []float32{3, 4}, got.Floats())

	if err := inst.SetInput("y", []float32{1}); !errors.Is(err, ErrNoSuchInput) {
		t.Errorf("erwartet ErrNoSuchInput, bekommen %v", err)
	}
}

func TestInstantiateSkipsUnknownParam(t *testing.T) {
	m, err := Create(`{"nodes":[]}`, testLib(), "lib0", "w", testArray(t, []float64{1, 2}))
	require.NoError(t, err)

	inst, err := m.Instantiate()
	require.NoError(t, err)
	require.Zero(t, inst.NumInputs())
	if _, ok := inst.GetInput("w"); ok {
		t.Error("w ist keine Graph-Eingabe und darf nicht gesetzt sein")
	}

	m, err = Create(addGraph, testLib(), "default", "extra", testArray(t, 1), "w", testArray(t, []float32{3}))
	require.NoError(t, err)

	inst, err = m.Instantiate()
	require.NoError(t, err)
	w, ok := inst.GetInput("w")
	require.True(t, ok)
	require.Equal(t, []float32{3}, w.Floats())
	if _, ok := inst.GetInput("extra"); ok {
		t.Error("extra darf nicht gesetzt sein")
	}

	// direktes SetInput bleibt streng
	if err := inst.SetInput("extra", 1); !errors.Is(err, ErrNoSuchInput) {
		t.Errorf("erwartet ErrNoSuchInput, bekommen %v", err)
	}
}

func TestExportLoad(t *testing.T) {
	params := []Param{
		{"w", testArray(t, []any{[]any{1.0, 2.0}, []any{3.0, 4.0}})},
		{"b", testArray(t, []int32{7})},
		{"s", testArray(t, 0.5)},
	}

	m, err := New(addGraph, testLib(), "default", params)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.gguf")
	require.NoError(t, m.ExportLibrary(path, nil, nil, nil))

	// kein temporaerer Rest im Verzeichnis
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	loaded, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, addGraph, loaded.GraphJSON())
	require.Equal(t, "default", loaded.Name())
	require.Equal(t, "so", loaded.Lib().TypeKey())
	require.Equal(t, []string{"w", "b", "s"}, loaded.ParamNames())

	var buf bytes.Buffer
	require.NoError(t, loaded.Lib().(module.Serializable).SaveToBinary(&buf))
	require.Equal(t, "\x7fELF-lib", buf.String())

	for _, p := range params {
		got, err := loaded.Param(p.Name)
		require.NoError(t, err)
		if !got.Equal(p.Value) {
			t.Errorf("param %s: erwartet %v, bekommen %v", p.Name, p.Value, got)
		}
	}
}

func TestExportWithCompiler(t *testing.T) {
	t.Setenv("RELAYEXEC_KEEP_TEMP", "")

	m, err := Create(addGraph, testLib(), "default", "w", testArray(t, []float32{1, 2}))
	require.NoError(t, err)

	dir := t.TempDir()
	out := filepath.Join(dir, "deploy.so")

	var objects []string
	fcompile := func(output string, objs []string, options map[string]any) error {
		require.Equal(t, out, output)
		require.Equal(t, "-O2", options["flags"])
		objects = objs

		// der Container ist waehrend des Aufrufs lesbar
		loaded, err := Load(objs[0])
		require.NoError(t, err)
		require.Equal(t, []string{"w"}, loaded.ParamNames())
		return nil
	}

	require.NoError(t, m.ExportLibrary(out, fcompile, []string{"addon.o"}, map[string]any{"flags": "-O2"}))
	require.Len(t, objects, 2)
	require.Equal(t, "addon.o", objects[1])

	if _, err := os.Stat(objects[0]); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporaerer Container sollte entfernt sein: %v", err)
	}

	failing := func(string, []string, map[string]any) error { return errors.New("linker failed") }
	if err := m.ExportLibrary(out, failing, nil, nil); err == nil || err.Error() != "linker failed" {
		t.Errorf("Compiler-Fehler erwartet, bekommen %v", err)
	}
}

func TestExportErrors(t *testing.T) {
	m, err := Create(addGraph, testLib(), "default")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "deploy.gguf")

	if err := m.ExportLibrary(path, nil, []string{"a.o"}, nil); !errors.Is(err, module.ErrAddonsNeedCompiler) {
		t.Errorf("erwartet ErrAddonsNeedCompiler, bekommen %v", err)
	}

	if err := m.ExportLibrary(path, nil, nil, map[string]any{"alignment": 7}); !errors.Is(err, ErrBadArgs) {
		t.Errorf("erwartet ErrBadArgs, bekommen %v", err)
	}

	if err := m.ExportLibrary(path, nil, nil, map[string]any{"alignment": "64"}); !errors.Is(err, ErrBadArgs) {
		t.Errorf("erwartet ErrBadArgs, bekommen %v", err)
	}

	require.NoError(t, m.ExportLibrary(path, nil, nil, map[string]any{"alignment": 64}))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, loaded.ParamNames())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.gguf")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("erwartet ErrNotExist, bekommen %v", err)
	}

	// ein fremder GGUF-Container
	other := filepath.Join(dir, "other.gguf")
	require.NoError(t, writeContainer(other, map[string]any{"general.architecture": "llama"}, nil))

	if _, err := Load(other); !errors.Is(err, ErrNotContainer) {
		t.Errorf("erwartet ErrNotContainer, bekommen %v", err)
	}
}
