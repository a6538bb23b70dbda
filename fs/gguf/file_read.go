// file_read.go - Dekodierung des GGUF-Headers
//
// Dieses Modul enthaelt:
// - readTensorInfo: Name, Shape, Typ und Offset eines Tensors
// - readKeyValue/readValue: Key mit typisiertem Wert
// - readArray/readSlice: Arrays, Byte-Arrays am Stueck (eingebettete Bibliotheken)
package gguf

import (
	"encoding/binary"
	"fmt"
)

// maxArrayLen begrenzt Laengenangaben aus dem Header
const maxArrayLen = 1 << 30

func read[T any](f *File) (t T, err error) {
	err = binary.Read(f.reader, binary.LittleEndian, &t)
	return t, err
}

func (f *File) readString() (string, error) {
	n, err := read[uint64](f)
	if err != nil {
		return "", err
	}

	if n > maxArrayLen {
		return "", fmt.Errorf("%w string length %d", ErrUnsupported, n)
	}

	bts, err := f.readBytes(n)
	return string(bts), err
}

func (f *File) readTensorInfo() (ti TensorInfo, err error) {
	if ti.Name, err = f.readString(); err != nil {
		return ti, err
	}

	dims, err := read[uint32](f)
	if err != nil {
		return ti, err
	}

	if ti.Shape, err = readSlice(f, uint64(dims), read[uint64]); err != nil {
		return ti, err
	}

	t, err := read[uint32](f)
	if err != nil {
		return ti, err
	}
	ti.Type = TensorType(t)

	ti.Offset, err = read[uint64](f)
	return ti, err
}

func (f *File) readKeyValue() (KeyValue, error) {
	key, err := f.readString()
	if err != nil {
		return KeyValue{}, err
	}

	t, err := read[uint32](f)
	if err != nil {
		return KeyValue{}, err
	}

	v, err := f.readValue(t)
	if err != nil {
		return KeyValue{}, fmt.Errorf("%s: %w", key, err)
	}

	return KeyValue{Key: key, Value: Value{v}}, nil
}

func (f *File) readValue(t uint32) (any, error) {
	switch t {
	case typeUint8:
		return read[uint8](f)
	case typeInt8:
		return read[int8](f)
	case typeUint16:
		return read[uint16](f)
	case typeInt16:
		return read[int16](f)
	case typeUint32:
		return read[uint32](f)
	case typeInt32:
		return read[int32](f)
	case typeUint64:
		return read[uint64](f)
	case typeInt64:
		return read[int64](f)
	case typeFloat32:
		return read[float32](f)
	case typeFloat64:
		return read[float64](f)
	case typeBool:
		return read[bool](f)
	case typeString:
		return f.readString()
	case typeArray:
		return f.readArray()
	}

	return nil, fmt.Errorf("%w type %d", ErrUnsupported, t)
}

// readArray liefert typisierte Slices, []uint8 wird am Stueck gelesen
func (f *File) readArray() (any, error) {
	t, err := read[uint32](f)
	if err != nil {
		return nil, err
	}

	n, err := read[uint64](f)
	if err != nil {
		return nil, err
	}

	if n > maxArrayLen {
		return nil, fmt.Errorf("%w array length %d", ErrUnsupported, n)
	}

	switch t {
	case typeUint8:
		return f.readBytes(n)
	case typeInt8:
		return readSlice(f, n, read[int8])
	case typeUint16:
		return readSlice(f, n, read[uint16])
	case typeInt16:
		return readSlice(f, n, read[int16])
	case typeUint32:
		return readSlice(f, n, read[uint32])
	case typeInt32:
		return readSlice(f, n, read[int32])
	case typeUint64:
		return readSlice(f, n, read[uint64])
	case typeInt64:
		return readSlice(f, n, read[int64])
	case typeFloat32:
		return readSlice(f, n, read[float32])
	case typeFloat64:
		return readSlice(f, n, read[float64])
	case typeBool:
		return readSlice(f, n, read[bool])
	case typeString:
		return readSlice(f, n, (*File).readString)
	}

	return nil, fmt.Errorf("%w array type %d", ErrUnsupported, t)
}

func readSlice[T any](f *File, n uint64, next func(*File) (T, error)) ([]T, error) {
	s := make([]T, 0, min(n, 1<<16))
	for range n {
		e, err := next(f)
		if err != nil {
			return nil, err
		}
		s = append(s, e)
	}

	return s, nil
}
