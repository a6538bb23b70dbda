// file_test.go - Round-Trip Tests fuer GGUF Write/Open
package gguf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func f32Bytes(fs ...float32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, fs) //nolint:errcheck
	return buf.Bytes()
}

func writeTestFile(t *testing.T, kv map[string]any, ts []*Tensor) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.gguf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, Write(f, kv, ts))
	return path
}

func TestWriteOpenRoundTrip(t *testing.T) {
	w := f32Bytes(1, 2, 3)
	b := f32Bytes(-1)

	path := writeTestFile(t, map[string]any{
		"general.architecture": "test",
		"general.alignment":    uint32(16),
		"count":                uint32(2),
		"names":                []string{"w", "b"},
		"blob":                 []uint8{0xde, 0xad},
		"flag":                 true,
		"scale":                float32(0.5),
	}, []*Tensor{
		{Name: "w", Type: TensorTypeF32, Shape: []uint64{3}, WriterTo: bytes.NewReader(w)},
		{Name: "b", Type: TensorTypeF32, Shape: []uint64{1}, WriterTo: bytes.NewReader(b)},
	})

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, uint32(3), f.Version)
	require.Equal(t, 7, f.NumKeyValues())
	require.Equal(t, 2, f.NumTensors())

	require.Equal(t, "test", f.KeyValue("general.architecture").String())
	require.Equal(t, uint64(2), f.KeyValue("count").Uint())
	require.Equal(t, []string{"w", "b"}, f.KeyValue("names").Strings())
	require.Equal(t, []byte{0xde, 0xad}, f.KeyValue("blob").Bytes())
	require.True(t, f.KeyValue("flag").Bool())
	require.Equal(t, float32(0.5), f.KeyValue("scale").Any())
	require.False(t, f.KeyValue("missing").Valid())

	// Reihenfolge der Tensors bleibt erhalten
	var names []string
	for _, ti := range f.TensorInfos() {
		names = append(names, ti.Name)
	}
	if diff := cmp.Diff([]string{"w", "b"}, names); diff != "" {
		t.Errorf("TensorInfos (-want +got):\n%s", diff)
	}

	for name, want := range map[string][]byte{"w": w, "b": b} {
		ti, r, err := f.TensorReader(name)
		require.NoError(t, err)
		require.Equal(t, int64(len(want)), ti.NumBytes())
		require.Zero(t, ti.Offset%16, "Offset von %s nicht ausgerichtet", name)

		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Equal(t, want, got, name)
	}

	if _, _, err := f.TensorReader("missing"); err == nil {
		t.Error("TensorReader(missing): Fehler erwartet")
	}
}

func TestWriteEmpty(t *testing.T) {
	path := writeTestFile(t, map[string]any{"general.architecture": "empty"}, nil)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.Zero(t, f.NumTensors())
	require.Equal(t, "empty", f.KeyValue("general.architecture").String())
}

func TestWriteErrors(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.gguf"))
	require.NoError(t, err)
	defer f.Close()

	if err := Write(f, map[string]any{}, nil); err == nil {
		t.Error("fehlende Architektur: Fehler erwartet")
	}

	if err := Write(f, map[string]any{"general.architecture": "x", "bad": struct{}{}}, nil); err == nil {
		t.Error("unbekannter KV-Typ: Fehler erwartet")
	}

	err = Write(f, map[string]any{"general.architecture": "x"}, []*Tensor{
		{Name: "q", Type: TensorType(2), Shape: []uint64{32}, WriterTo: bytes.NewReader(nil)},
	})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("quantisierter Typ: erwartet ErrUnsupported, bekommen %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	notGGUF := filepath.Join(dir, "not.gguf")
	require.NoError(t, os.WriteFile(notGGUF, []byte("ABCD\x03\x00\x00\x00"), 0o644))
	if _, err := Open(notGGUF); !errors.Is(err, ErrUnsupported) {
		t.Errorf("falsches Magic: erwartet ErrUnsupported, bekommen %v", err)
	}

	old := filepath.Join(dir, "old.gguf")
	require.NoError(t, os.WriteFile(old, []byte("GGUF\x01\x00\x00\x00"), 0o644))
	if _, err := Open(old); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Version 1: erwartet ErrUnsupported, bekommen %v", err)
	}

	truncated := filepath.Join(dir, "truncated.gguf")
	require.NoError(t, os.WriteFile(truncated, []byte("GGUF\x03\x00\x00\x00\x01"), 0o644))
	if _, err := Open(truncated); err == nil {
		t.Error("abgeschnittene Datei: Fehler erwartet")
	}
}

func TestTensorInfo(t *testing.T) {
	ti := TensorInfo{Name: "x", Type: TensorTypeF16, Shape: []uint64{2, 3}}
	require.Equal(t, int64(6), ti.NumValues())
	require.Equal(t, int64(12), ti.NumBytes())
	require.Equal(t, "F16", ti.Type.String())
	require.Equal(t, uint64(2), TensorTypeBF16.TypeSize())
	require.Zero(t, TensorType(2).TypeSize())
}
