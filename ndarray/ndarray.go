// ndarray.go - NDArray: kanonische Array-Repraesentation der Runtime
//
// Dieses Modul enthaelt:
// - NDArray: Dichtes Array mit DType, Shape und Little-Endian Daten
// - FromBytes: Konstruktor aus Rohdaten (z.B. beim Laden von GGUF)
// - Accessors: DType, Shape, Size, NumBytes, Bytes, Floats, Float64s, Ints
// - Equal/String: Vergleich und lesbare Ausgabe
package ndarray

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	bfloat16 "github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

var (
	ErrUnsupportedType = errors.New("ndarray: unsupported type")
	ErrRagged          = errors.New("ndarray: ragged nested sequence")
	ErrSize            = errors.New("ndarray: data size does not match shape")
)

// NDArray ist unveraenderlich nach der Konstruktion
type NDArray struct {
	dtype DType
	shape []int
	data  []byte
}

// FromBytes erzeugt ein NDArray aus Little-Endian Rohdaten
func FromBytes(dtype DType, shape []int, data []byte) (*NDArray, error) {
	if dtype.ElemSize() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, dtype)
	}

	if want := numElements(shape) * dtype.ElemSize(); want != len(data) {
		return nil, fmt.Errorf("%w: %v%v wants %d bytes, got %d", ErrSize, dtype, shape, want, len(data))
	}

	return &NDArray{dtype: dtype, shape: slices.Clone(shape), data: slices.Clone(data)}, nil
}

func (a *NDArray) DType() DType { return a.dtype }

// Shape gibt eine Kopie der Dimensionen zurueck
func (a *NDArray) Shape() []int { return slices.Clone(a.shape) }

// Size ist die Anzahl der Elemente
func (a *NDArray) Size() int { return numElements(a.shape) }

func (a *NDArray) NumBytes() int { return len(a.data) }

// Bytes gibt die Rohdaten zurueck. Der Aufrufer darf sie nicht veraendern.
func (a *NDArray) Bytes() []byte { return a.data }

// Floats dekodiert alle Elemente als float32
func (a *NDArray) Floats() []float32 {
	n := a.Size()
	f32s := make([]float32, n)
	switch a.dtype {
	case DTypeF32:
		for i := range n {
			f32s[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.data[i*4:]))
		}
	case DTypeF16:
		for i := range n {
			f32s[i] = float16.Frombits(binary.LittleEndian.Uint16(a.data[i*2:])).Float32()
		}
	case DTypeBF16:
		f32s = bfloat16.DecodeFloat32(a.data)
	case DTypeF64:
		for i := range n {
			f32s[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(a.data[i*8:])))
		}
	case DTypeI32, DTypeI64:
		for i, v := range a.Ints() {
			f32s[i] = float32(v)
		}
	}

	return f32s
}

// Float64s dekodiert alle Elemente als float64, F64 ohne Genauigkeitsverlust
func (a *NDArray) Float64s() []float64 {
	if a.dtype != DTypeF64 {
		return widen(a.Floats())
	}

	n := a.Size()
	f64s := make([]float64, n)
	for i := range n {
		f64s[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.data[i*8:]))
	}

	return f64s
}

// Ints dekodiert alle Elemente als int64. Fliesskomma wird abgeschnitten.
func (a *NDArray) Ints() []int64 {
	n := a.Size()
	i64s := make([]int64, n)
	switch a.dtype {
	case DTypeI32:
		for i := range n {
			i64s[i] = int64(int32(binary.LittleEndian.Uint32(a.data[i*4:])))
		}
	case DTypeI64:
		for i := range n {
			i64s[i] = int64(binary.LittleEndian.Uint64(a.data[i*8:]))
		}
	case DTypeF64:
		for i := range n {
			i64s[i] = int64(math.Float64frombits(binary.LittleEndian.Uint64(a.data[i*8:])))
		}
	default:
		for i, f := range a.Floats() {
			i64s[i] = int64(f)
		}
	}

	return i64s
}

// Equal vergleicht DType, Shape und Daten
func (a *NDArray) Equal(b *NDArray) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.dtype == b.dtype && slices.Equal(a.shape, b.shape) && bytes.Equal(a.data, b.data)
}

// maxPrintItems begrenzt die Ausgabe von String
const maxPrintItems = 6

// String gibt z.B. "float32[2]{1, 2}" zurueck, lange Arrays gekuerzt
func (a *NDArray) String() string {
	var sb strings.Builder
	sb.WriteString(a.dtype.String())
	sb.WriteString("[")
	for i, d := range a.shape {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.Itoa(d))
	}
	sb.WriteString("]{")

	n := a.Size()
	items := make([]string, 0, min(n, maxPrintItems+1))

	var format func(int) string
	if a.dtype.IsInt() {
		i64s := a.Ints()
		format = func(i int) string { return strconv.FormatInt(i64s[i], 10) }
	} else {
		bitSize := 32
		if a.dtype == DTypeF64 {
			bitSize = 64
		}
		f64s := a.Float64s()
		format = func(i int) string { return strconv.FormatFloat(f64s[i], 'g', 6, bitSize) }
	}

	if n <= maxPrintItems {
		for i := range n {
			items = append(items, format(i))
		}
	} else {
		for i := range maxPrintItems / 2 {
			items = append(items, format(i))
		}
		items = append(items, "...")
		for i := n - maxPrintItems/2; i < n; i++ {
			items = append(items, format(i))
		}
	}

	sb.WriteString(strings.Join(items, ", "))
	sb.WriteString("}")
	return sb.String()
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}
