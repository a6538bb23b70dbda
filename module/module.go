// module.go - Runtime-Module: Bibliotheks-Handles und lebende Module
//
// Dieses Modul enthaelt:
// - Module: Interface fuer kompilierte Runtime-Module
// - Compiler: Callback zum Binden exportierter Objekte
// - Serializable: Module deren Bytes eingebettet werden koennen
package module

import (
	"errors"
	"io"

	"github.com/relayexec/relayexec/ffi"
)

var (
	ErrFunctionNotFound   = errors.New("module: function not found")
	ErrAddonsNeedCompiler = errors.New("module: addons require a compiler")
)

// Module ist ein von der Runtime verwaltetes, kompiliertes Modul.
// Der Besitzer ist die Runtime, Aufrufer halten nur Referenzen.
type Module interface {
	// TypeKey identifiziert die Art des Moduls (z.B. "so", "GraphExecutorFactory")
	TypeKey() string

	// GetFunction sucht eine benannte Einstiegsfunktion
	GetFunction(name string) (ffi.PackedFunc, error)

	// ExportLibrary serialisiert das Modul nach fileName
	ExportLibrary(fileName string, fcompile Compiler, addons []string, options map[string]any) error
}

// Compiler bindet objects zu output, z.B. durch Aufruf eines externen Linkers
type Compiler func(output string, objects []string, options map[string]any) error

// Serializable wird von Modulen implementiert, deren Inhalt in einen
// Export eingebettet werden kann
type Serializable interface {
	SaveToBinary(w io.Writer) error
}
