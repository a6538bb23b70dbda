// Package gguf - Typen fuer GGUF-Container
//
// Dieses Modul enthaelt:
// - type*-Konstanten: GGUF Wert-Typen
// - TensorType: Unterstuetzte Tensor-Datentypen
// - KeyValue/Value: Metadaten-Eintraege mit typisierten Accessors
// - TensorInfo: Tensor-Metadaten aus dem Header
package gguf

import (
	"errors"
	"fmt"
)

// Type-Konstanten fuer GGUF-Datentypen
const (
	typeUint8 uint32 = iota
	typeInt8
	typeUint16
	typeInt16
	typeUint32
	typeInt32
	typeFloat32
	typeBool
	typeString
	typeArray
	typeUint64
	typeInt64
	typeFloat64
)

// ErrUnsupported wird bei nicht unterstuetzten Formaten oder Versionen zurueckgegeben
var ErrUnsupported = errors.New("unsupported")

// TensorType entspricht ggml_type. Nur unquantisierte Typen werden geschrieben.
type TensorType uint32

const (
	TensorTypeF32  TensorType = 0
	TensorTypeF16  TensorType = 1
	TensorTypeI32  TensorType = 26
	TensorTypeI64  TensorType = 27
	TensorTypeF64  TensorType = 28
	TensorTypeBF16 TensorType = 30
)

// TypeSize gibt die Bytes pro Element zurueck, 0 fuer unbekannte Typen
func (t TensorType) TypeSize() uint64 {
	switch t {
	case TensorTypeF16, TensorTypeBF16:
		return 2
	case TensorTypeF32, TensorTypeI32:
		return 4
	case TensorTypeF64, TensorTypeI64:
		return 8
	default:
		return 0
	}
}

func (t TensorType) String() string {
	switch t {
	case TensorTypeF32:
		return "F32"
	case TensorTypeF16:
		return "F16"
	case TensorTypeI32:
		return "I32"
	case TensorTypeI64:
		return "I64"
	case TensorTypeF64:
		return "F64"
	case TensorTypeBF16:
		return "BF16"
	default:
		return fmt.Sprintf("type%d", uint32(t))
	}
}

// KeyValue ist ein Metadaten-Eintrag
type KeyValue struct {
	Key string
	Value
}

// Valid meldet ob der Eintrag gefunden wurde
func (kv KeyValue) Valid() bool {
	return kv.Key != "" && kv.Value.value != nil
}

// Value kapselt einen typisierten GGUF-Wert
type Value struct {
	value any
}

// Any gibt den Rohwert zurueck
func (v Value) Any() any {
	return v.value
}

// Int gibt ganzzahlige Werte als int64 zurueck, sonst 0
func (v Value) Int() int64 {
	switch n := v.value.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

// Uint gibt ganzzahlige Werte als uint64 zurueck, sonst 0
func (v Value) Uint() uint64 {
	return uint64(v.Int())
}

func (v Value) String() string {
	s, _ := v.value.(string)
	return s
}

func (v Value) Bool() bool {
	b, _ := v.value.(bool)
	return b
}

func (v Value) Strings() []string {
	s, _ := v.value.([]string)
	return s
}

func (v Value) Bytes() []byte {
	b, _ := v.value.([]uint8)
	return b
}

// TensorInfo beschreibt einen Tensor im Container
type TensorInfo struct {
	Name   string
	Offset uint64
	Shape  []uint64
	Type   TensorType
}

// Valid meldet ob der Tensor gefunden wurde
func (ti TensorInfo) Valid() bool {
	return ti.Name != ""
}

// NumValues ist das Produkt der Dimensionen
func (ti TensorInfo) NumValues() int64 {
	n := int64(1)
	for _, d := range ti.Shape {
		n *= int64(d)
	}

	return n
}

// NumBytes ist die Groesse der Tensor-Daten
func (ti TensorInfo) NumBytes() int64 {
	return ti.NumValues() * int64(ti.Type.TypeSize())
}
