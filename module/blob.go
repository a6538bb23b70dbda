// blob.go - BlobModule: Bibliotheks-Handle auf Basis roher Bytes
//
// Dieses Modul enthaelt:
// - BlobModule: Kompilierte Bibliothek als undurchsichtiger Byte-Block
// - NewBlobModule/LoadFile: Konstruktoren
// - ExportLibrary: Schreibt die Bytes oder reicht sie an einen Compiler weiter
package module

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/relayexec/relayexec/ffi"
)

// BlobModule haelt eine kompilierte Bibliothek, deren Format die Runtime
// nicht interpretiert. Einstiegsfunktionen koennen optional mitgegeben werden.
type BlobModule struct {
	typeKey string
	data    []byte
	funcs   map[string]ffi.PackedFunc
}

// NewBlobModule erzeugt ein BlobModule. funcs darf nil sein.
func NewBlobModule(typeKey string, data []byte, funcs map[string]ffi.PackedFunc) *BlobModule {
	return &BlobModule{typeKey: typeKey, data: data, funcs: maps.Clone(funcs)}
}

// LoadFile liest eine Bibliothek von der Platte. Der TypeKey folgt der Endung.
func LoadFile(path string) (*BlobModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	typeKey := strings.TrimPrefix(filepath.Ext(path), ".")
	if typeKey == "" {
		typeKey = "blob"
	}

	return NewBlobModule(typeKey, data, nil), nil
}

func (m *BlobModule) TypeKey() string { return m.typeKey }

// Len gibt die Groesse der Bibliothek in Bytes zurueck
func (m *BlobModule) Len() int { return len(m.data) }

// FuncNames gibt die bekannten Einstiegsfunktionen sortiert zurueck
func (m *BlobModule) FuncNames() []string {
	return slices.Sorted(maps.Keys(m.funcs))
}

func (m *BlobModule) GetFunction(name string) (ffi.PackedFunc, error) {
	if f, ok := m.funcs[name]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("%w: %s in %s module", ErrFunctionNotFound, name, m.typeKey)
}

func (m *BlobModule) SaveToBinary(w io.Writer) error {
	_, err := io.Copy(w, bytes.NewReader(m.data))
	return err
}

// ExportLibrary schreibt die Bytes nach fileName. Mit fcompile werden die
// Bytes als Objekt-Datei neben fileName abgelegt und mit addons gebunden.
func (m *BlobModule) ExportLibrary(fileName string, fcompile Compiler, addons []string, options map[string]any) error {
	if fcompile == nil {
		if len(addons) > 0 {
			return ErrAddonsNeedCompiler
		}

		return os.WriteFile(fileName, m.data, 0o644)
	}

	obj := fileName + ".o"
	if err := os.WriteFile(obj, m.data, 0o644); err != nil {
		return err
	}
	defer os.Remove(obj)

	return fcompile(fileName, append([]string{obj}, addons...), options)
}
