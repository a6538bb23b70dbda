// Package crt - Workspace-Allokator fuer AOT-Executoren
//
// Dieses Modul enthaelt:
// - Workspace: Stack-Allokator ueber einem festen Speicherblock
// - Allocate: Liefert 16-Byte ausgerichtete Offsets
// - Free: Gibt den obersten Block frei (LIFO)
package crt

import (
	"errors"
	"fmt"
)

// Alignment der Bloecke in Bytes
const Alignment = 16

var (
	ErrOutOfMemory = errors.New("crt: workspace out of memory")
	ErrNotTop      = errors.New("crt: block is not on top of the workspace stack")
)

// Workspace verwaltet Offsets in einem Block der Groesse size. Der Speicher
// selbst gehoert dem Aufrufer, Workspace vergibt nur Positionen.
type Workspace struct {
	size int
	top  int

	// Offsets der lebenden Bloecke, juengster zuletzt
	blocks []int
}

func NewWorkspace(size int) *Workspace {
	return &Workspace{size: max(size, 0)}
}

// Allocate reserviert n Bytes, aufgerundet auf Alignment
func (w *Workspace) Allocate(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("crt: negative allocation %d", n)
	}

	n = alignUp(n)
	if w.top+n > w.size {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, size %d", ErrOutOfMemory, n, w.top, w.size)
	}

	offset := w.top
	w.top += n
	w.blocks = append(w.blocks, offset)
	return offset, nil
}

// Free gibt den juengsten Block frei. Aeltere Bloecke bleiben belegt.
func (w *Workspace) Free(offset int) error {
	if len(w.blocks) == 0 || w.blocks[len(w.blocks)-1] != offset {
		return fmt.Errorf("%w: offset %d", ErrNotTop, offset)
	}

	w.blocks = w.blocks[:len(w.blocks)-1]
	w.top = offset
	return nil
}

// Used gibt die belegten Bytes inklusive Padding zurueck
func (w *Workspace) Used() int { return w.top }

func (w *Workspace) Size() int { return w.size }

// Reset gibt alle Bloecke frei
func (w *Workspace) Reset() {
	w.top = 0
	w.blocks = w.blocks[:0]
}

func alignUp(n int) int {
	return (n + Alignment - 1) / Alignment * Alignment
}
