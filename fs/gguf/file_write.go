// Package gguf - GGUF Write Operations
//
// Dieses Modul enthaelt Funktionen zum Schreiben von GGUF-Dateien:
// - Write: Schreibt komplettes GGUF-File mit KV und Tensors
// - writeValue: Generische Write-Funktion fuer Basistypen
// - writeString: String-Serialisierung
// - writeArray: Array-Serialisierung
// - writeKV: Key-Value Paar Serialisierung
// - writeTensorInfo: Tensor-Metadaten Serialisierung
package gguf

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultAlignment wird verwendet wenn general.alignment fehlt
const DefaultAlignment = 32

// Tensor beschreibt einen zu schreibenden Tensor. Die Daten liefert WriterTo.
type Tensor struct {
	Name   string
	Type   TensorType
	Shape  []uint64
	Offset uint64

	io.WriterTo
}

// Size gibt die Groesse der Tensor-Daten in Bytes zurueck
func (t Tensor) Size() uint64 {
	n := t.Type.TypeSize()
	for _, d := range t.Shape {
		n *= d
	}

	return n
}

// Write schreibt ein GGUF-File (V3) mit KV-Paaren und Tensors. Die
// Reihenfolge der Tensors bleibt erhalten.
func Write(f *os.File, kv map[string]any, ts []*Tensor) error {
	arch, _ := kv["general.architecture"].(string)
	if arch == "" {
		return fmt.Errorf("architecture not set")
	}

	// Magic: "GGUF"
	if err := binary.Write(f, binary.LittleEndian, []byte("GGUF")); err != nil {
		return err
	}

	// Version: 3
	if err := binary.Write(f, binary.LittleEndian, uint32(3)); err != nil {
		return err
	}

	if err := binary.Write(f, binary.LittleEndian, uint64(len(ts))); err != nil {
		return err
	}

	if err := binary.Write(f, binary.LittleEndian, uint64(len(kv))); err != nil {
		return err
	}

	for _, key := range slices.Sorted(maps.Keys(kv)) {
		if err := writeKV(f, arch, key, kv[key]); err != nil {
			return err
		}
	}

	alignment := uint64(DefaultAlignment)
	if a, ok := kv["general.alignment"].(uint32); ok && a > 0 {
		alignment = uint64(a)
	}

	// Offsets berechnen und Tensor-Infos schreiben
	var s uint64
	for _, t := range ts {
		if t.Type.TypeSize() == 0 {
			return fmt.Errorf("%w tensor type %v for %s", ErrUnsupported, t.Type, t.Name)
		}

		t.Offset = s
		if err := writeTensorInfo(f, t); err != nil {
			return err
		}
		s += t.Size()
		s += uint64(padding(int64(s), int64(alignment)))
	}

	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	offset += padding(offset, int64(alignment))

	// Tensor-Daten parallel schreiben
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, t := range ts {
		w := io.NewOffsetWriter(f, offset+int64(t.Offset))
		g.Go(func() error {
			n, err := t.WriteTo(w)
			if err == nil && uint64(n) != t.Size() {
				err = fmt.Errorf("tensor %s: wrote %d bytes, want %d", t.Name, n, t.Size())
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Datei bis zum Ende des letzten Tensors verlaengern
	return f.Truncate(offset + int64(s))
}

// writeValue schreibt einen typisierten Wert mit Typ-Prefix
func writeValue[V any](w io.Writer, t uint32, v V) error {
	if err := binary.Write(w, binary.LittleEndian, t); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v)
}

// writeString schreibt einen String mit Typ-Prefix und Laenge
func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, typeString); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.Copy(w, strings.NewReader(s))
	return err
}

// writeArray schreibt ein Array mit Typ-Prefix
func writeArray[S ~[]E, E any](w io.Writer, t uint32, s S) error {
	if err := binary.Write(w, binary.LittleEndian, typeArray); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return err
	}

	// Strings muessen einzeln geschrieben werden
	if t == typeString {
		for _, e := range any(s).([]string) {
			if err := binary.Write(w, binary.LittleEndian, uint64(len(e))); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, []byte(e)); err != nil {
				return err
			}
		}
		return nil
	}

	return binary.Write(w, binary.LittleEndian, s)
}

// writeKV schreibt ein Key-Value Paar
func writeKV(w io.Writer, arch, k string, v any) error {
	// Prefix hinzufuegen falls nicht vorhanden
	if !strings.HasPrefix(k, arch+".") && !strings.HasPrefix(k, "general.") {
		k = arch + "." + k
	}

	slog.Debug(k, "type", fmt.Sprintf("%T", v))

	if err := binary.Write(w, binary.LittleEndian, uint64(len(k))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, []byte(k)); err != nil {
		return err
	}

	var err error
	switch v := v.(type) {
	case int32:
		err = writeValue(w, typeInt32, v)
	case int64:
		err = writeValue(w, typeInt64, v)
	case uint32:
		err = writeValue(w, typeUint32, v)
	case uint64:
		err = writeValue(w, typeUint64, v)
	case float32:
		err = writeValue(w, typeFloat32, v)
	case float64:
		err = writeValue(w, typeFloat64, v)
	case bool:
		err = writeValue(w, typeBool, v)
	case string:
		err = writeString(w, v)
	case []uint8:
		err = writeArray(w, typeUint8, v)
	case []int32:
		err = writeArray(w, typeInt32, v)
	case []int64:
		err = writeArray(w, typeInt64, v)
	case []uint32:
		err = writeArray(w, typeUint32, v)
	case []float32:
		err = writeArray(w, typeFloat32, v)
	case []string:
		err = writeArray(w, typeString, v)
	case []bool:
		err = writeArray(w, typeBool, v)
	default:
		return fmt.Errorf("improper type for '%s'", k)
	}
	return err
}

// writeTensorInfo schreibt die Tensor-Metadaten
func writeTensorInfo(w io.Writer, t *Tensor) error {
	slog.Debug(t.Name, "type", t.Type, "shape", t.Shape, "offset", t.Offset)

	if err := binary.Write(w, binary.LittleEndian, uint64(len(t.Name))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, []byte(t.Name)); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.Shape))); err != nil {
		return err
	}
	for _, n := range t.Shape {
		if err := binary.Write(w, binary.LittleEndian, n); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(t.Type)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, t.Offset)
}

// padding berechnet das Padding fuer Alignment
func padding(offset, align int64) int64 {
	return (align - offset%align) % align
}
