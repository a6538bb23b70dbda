// export.go - Export und Laden der Graph-Executor-Factory als GGUF
//
// Dieses Modul enthaelt:
// - ExportLibrary: Schreibt Graph, Bibliothek und Parameter in einen Container
// - Load: Liest einen exportierten Container wieder als FactoryModule
// - tensorType/dtypeOf: Abbildung zwischen ndarray und GGUF Datentypen
package graphexec

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/relayexec/relayexec/envconfig"
	"github.com/relayexec/relayexec/fs/gguf"
	"github.com/relayexec/relayexec/module"
	"github.com/relayexec/relayexec/ndarray"
)

// Architecture ist general.architecture exportierter Container
const Architecture = "graph_executor_factory"

// ExportLibrary schreibt das Modul nach fileName. Ohne fcompile wird der
// Container atomar ersetzt, mit fcompile erhaelt der Compiler den
// Container gefolgt von addons als Objekte.
func (m *FactoryModule) ExportLibrary(fileName string, fcompile module.Compiler, addons []string, options map[string]any) error {
	if fcompile == nil && len(addons) > 0 {
		return module.ErrAddonsNeedCompiler
	}

	kv, err := m.keyValues(options)
	if err != nil {
		return err
	}

	ts := make([]*gguf.Tensor, 0, len(m.params))
	for _, p := range m.params {
		ts = append(ts, &gguf.Tensor{
			Name:     p.Name,
			Type:     tensorType(p.Value.DType()),
			Shape:    toUint64s(p.Value.Shape()),
			WriterTo: bytes.NewReader(p.Value.Bytes()),
		})
	}

	ext := ".tmp"
	if fcompile != nil {
		ext = ".gguf"
	}

	temp := filepath.Join(filepath.Dir(fileName), "."+filepath.Base(fileName)+"-"+uuid.NewString()+ext)
	if err := writeContainer(temp, kv, ts); err != nil {
		return err
	}

	slog.Debug("exported graph executor factory", "file", fileName, "name", m.name, "params", len(ts), "compile", fcompile != nil)
	if fcompile == nil {
		if err := os.Rename(temp, fileName); err != nil {
			os.Remove(temp)
			return err
		}
		return nil
	}

	if !envconfig.KeepTemp() {
		defer os.Remove(temp)
	}

	return fcompile(fileName, append([]string{temp}, addons...), options)
}

func (m *FactoryModule) keyValues(options map[string]any) (map[string]any, error) {
	alignment := uint32(envconfig.Alignment())
	switch v := options["alignment"].(type) {
	case nil:
	case int:
		alignment = uint32(v)
	case uint32:
		alignment = v
	default:
		return nil, fmt.Errorf("%w: alignment option must be an int, got %T", ErrBadArgs, v)
	}

	if alignment == 0 || alignment%8 != 0 {
		return nil, fmt.Errorf("%w: alignment %d is not a multiple of 8", ErrBadArgs, alignment)
	}

	kv := map[string]any{
		"general.architecture": Architecture,
		"general.alignment":    alignment,
		"general.name":         m.name,
		"graph_json":           m.graphJSON,
		"lib_type":             m.lib.TypeKey(),
		"param_names":          m.ParamNames(),
	}

	if s, ok := m.lib.(module.Serializable); ok {
		var buf bytes.Buffer
		if err := s.SaveToBinary(&buf); err != nil {
			return nil, fmt.Errorf("save %s library: %w", m.lib.TypeKey(), err)
		}
		kv["lib_data"] = buf.Bytes()
	}

	return kv, nil
}

func writeContainer(path string, kv map[string]any, ts []*gguf.Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := gguf.Write(f, kv, ts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}

	return nil
}

// Load liest einen mit ExportLibrary ohne Compiler geschriebenen Container.
// Ist die Bibliothek nicht eingebettet, erhaelt das Modul eine leere
// Bibliothek mit dem gespeicherten TypeKey.
func Load(path string) (*FactoryModule, error) {
	f, err := gguf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if arch := f.KeyValue("general.architecture").String(); arch != Architecture {
		return nil, fmt.Errorf("%w: architecture %q", ErrNotContainer, arch)
	}

	typeKey := f.KeyValue("lib_type").String()
	if typeKey == "" {
		typeKey = "blob"
	}
	lib := module.NewBlobModule(typeKey, f.KeyValue("lib_data").Bytes(), nil)

	var params []Param
	for _, name := range f.KeyValue("param_names").Strings() {
		ti, r, err := f.TensorReader(name)
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}

		dtype, err := dtypeOf(ti.Type)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}

		arr, err := ndarray.FromBytes(dtype, toInts(ti.Shape), data)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}

		params = append(params, Param{Name: name, Value: arr})
	}

	return New(f.KeyValue("graph_json").String(), lib, f.KeyValue("general.name").String(), params)
}

func tensorType(d ndarray.DType) gguf.TensorType {
	switch d {
	case ndarray.DTypeF16:
		return gguf.TensorTypeF16
	case ndarray.DTypeBF16:
		return gguf.TensorTypeBF16
	case ndarray.DTypeF64:
		return gguf.TensorTypeF64
	case ndarray.DTypeI32:
		return gguf.TensorTypeI32
	case ndarray.DTypeI64:
		return gguf.TensorTypeI64
	default:
		return gguf.TensorTypeF32
	}
}

func dtypeOf(t gguf.TensorType) (ndarray.DType, error) {
	switch t {
	case gguf.TensorTypeF32:
		return ndarray.DTypeF32, nil
	case gguf.TensorTypeF16:
		return ndarray.DTypeF16, nil
	case gguf.TensorTypeBF16:
		return ndarray.DTypeBF16, nil
	case gguf.TensorTypeF64:
		return ndarray.DTypeF64, nil
	case gguf.TensorTypeI32:
		return ndarray.DTypeI32, nil
	case gguf.TensorTypeI64:
		return ndarray.DTypeI64, nil
	default:
		return 0, fmt.Errorf("%w: tensor type %v", gguf.ErrUnsupported, t)
	}
}

func toUint64s(s []int) []uint64 {
	u := make([]uint64, len(s))
	for i, v := range s {
		u[i] = uint64(v)
	}
	return u
}

func toInts(s []uint64) []int {
	n := make([]int, len(s))
	for i, v := range s {
		n[i] = int(v)
	}
	return n
}
