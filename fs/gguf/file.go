// Package gguf - GGUF File Struktur und Open/Close
//
// Dieses Modul enthaelt die File-Hauptstruktur fuer GGUF-Dateien:
// - File: Repraesentiert eine geoeffnete GGUF-Datei
// - Open: Oeffnet und parst Header, Key-Values und Tensor-Infos
// - Close: Schliesst die Datei
package gguf

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// File repraesentiert eine geoeffnete GGUF-Datei. Metadaten werden beim
// Oeffnen vollstaendig gelesen, Tensor-Daten erst bei TensorReader.
type File struct {
	Magic   [4]byte
	Version uint32

	keyValues []KeyValue
	tensors   []TensorInfo
	offset    int64

	file   *os.File
	reader *countingReader
}

// countingReader zaehlt die gelesenen Bytes fuer die Offset-Berechnung
type countingReader struct {
	r      *bufio.Reader
	offset int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.offset += int64(n)
	return n, err
}

// Open oeffnet eine GGUF-Datei und parst den Header
func Open(path string) (f *File, err error) {
	f = &File{}
	f.file, err = os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			f.file.Close()
		}
	}()

	f.reader = &countingReader{r: bufio.NewReaderSize(f.file, 32<<10)}

	if err := binary.Read(f.reader, binary.LittleEndian, &f.Magic); err != nil {
		return nil, err
	}

	if !bytes.Equal(f.Magic[:], []byte("GGUF")) {
		return nil, fmt.Errorf("%w file type %v", ErrUnsupported, f.Magic)
	}

	if err := binary.Read(f.reader, binary.LittleEndian, &f.Version); err != nil {
		return nil, err
	}

	if f.Version < 2 {
		return nil, fmt.Errorf("%w version %v", ErrUnsupported, f.Version)
	}

	numTensors, err := read[uint64](f)
	if err != nil {
		return nil, err
	}

	numKeyValues, err := read[uint64](f)
	if err != nil {
		return nil, err
	}

	f.keyValues = make([]KeyValue, 0, min(numKeyValues, 1024))
	for range numKeyValues {
		kv, err := f.readKeyValue()
		if err != nil {
			return nil, err
		}
		f.keyValues = append(f.keyValues, kv)
	}

	f.tensors = make([]TensorInfo, 0, min(numTensors, 1024))
	for range numTensors {
		ti, err := f.readTensorInfo()
		if err != nil {
			return nil, err
		}
		f.tensors = append(f.tensors, ti)
	}

	alignment := cmp.Or(f.KeyValue("general.alignment").Int(), DefaultAlignment)
	f.offset = f.reader.offset + padding(f.reader.offset, alignment)
	return f, nil
}

// Close schliesst die Datei
func (f *File) Close() error {
	return f.file.Close()
}

// readBytes liest n Bytes am Stueck
func (f *File) readBytes(n uint64) ([]byte, error) {
	bts := make([]byte, n)
	_, err := io.ReadFull(f.reader, bts)
	return bts, err
}
