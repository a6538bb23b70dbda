// convert.go - Konvertierung beliebiger Tensor-Werte nach NDArray
//
// Dieses Modul enthaelt:
// - Array: Wandelt Skalare, Slices, verschachtelte Listen, gonum-Matrizen
//   und pdevine/tensor Tensoren in ein NDArray um
// - WithDType: Option fuer den Ziel-Datentyp
// - encode: Serialisierung der Werte in den Ziel-Datentyp
package ndarray

import (
	"encoding/binary"
	"fmt"
	"math"

	bfloat16 "github.com/d4l3k/go-bfloat16"
	"github.com/pdevine/tensor"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/mat"
)

// Option konfiguriert Array
type Option func(*options)

type options struct {
	dtype *DType
}

// WithDType erzwingt den Ziel-Datentyp
func WithDType(d DType) Option {
	return func(o *options) {
		o.dtype = &d
	}
}

// values ist die Zwischenform vor dem Kodieren
type values struct {
	shape []int
	f64s  []float64
	i64s  []int64
	isInt bool
	dtype DType // Default-Ziel falls keine Option gesetzt ist
}

// Array wandelt v in ein NDArray um. Ein *NDArray wird unveraendert
// zurueckgegeben, sofern kein abweichender DType verlangt wird.
//
// Ohne WithDType bleibt die Quellgenauigkeit erhalten: float32 wird F32,
// float64, gonum und Fliesskomma-Listen werden F64, int32 wird I32 und
// alle anderen Ganzzahlen werden I64.
func Array(v any, opts ...Option) (*NDArray, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if a, ok := v.(*NDArray); ok && a != nil {
		if o.dtype == nil || *o.dtype == a.dtype {
			return a, nil
		}
	}

	vs, err := collect(v)
	if err != nil {
		return nil, err
	}

	dtype := vs.dtype
	if o.dtype != nil {
		dtype = *o.dtype
	}

	if dtype.ElemSize() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, dtype)
	}

	return &NDArray{dtype: dtype, shape: vs.shape, data: encode(vs, dtype)}, nil
}

func collect(v any) (*values, error) {
	switch v := v.(type) {
	case *NDArray:
		if v == nil {
			return nil, fmt.Errorf("%w: nil *NDArray", ErrUnsupportedType)
		}
		if v.dtype.IsInt() {
			return &values{shape: v.Shape(), i64s: v.Ints(), isInt: true, dtype: v.dtype}, nil
		}
		return &values{shape: v.Shape(), f64s: v.Float64s(), dtype: v.dtype}, nil
	case NDArray:
		return collect(&v)
	case float32:
		return &values{f64s: []float64{float64(v)}, dtype: DTypeF32}, nil
	case float64:
		return &values{f64s: []float64{v}, dtype: DTypeF64}, nil
	case int:
		return &values{i64s: []int64{int64(v)}, isInt: true, dtype: DTypeI64}, nil
	case int32:
		return &values{i64s: []int64{int64(v)}, isInt: true, dtype: DTypeI32}, nil
	case int64:
		return &values{i64s: []int64{v}, isInt: true, dtype: DTypeI64}, nil
	case []float32:
		return &values{shape: []int{len(v)}, f64s: widen(v), dtype: DTypeF32}, nil
	case []float64:
		return &values{shape: []int{len(v)}, f64s: v, dtype: DTypeF64}, nil
	case []float16.Float16:
		f64s := make([]float64, len(v))
		for i, h := range v {
			f64s[i] = float64(h.Float32())
		}
		return &values{shape: []int{len(v)}, f64s: f64s, dtype: DTypeF16}, nil
	case []int32:
		return &values{shape: []int{len(v)}, i64s: widenInts(v), isInt: true, dtype: DTypeI32}, nil
	case []int64:
		return &values{shape: []int{len(v)}, i64s: v, isInt: true, dtype: DTypeI64}, nil
	case []int:
		return &values{shape: []int{len(v)}, i64s: widenInts(v), isInt: true, dtype: DTypeI64}, nil
	case []any:
		return collectNested(v)
	case tensor.Tensor:
		return collectTensor(v)
	case mat.Vector:
		f64s := make([]float64, v.Len())
		for i := range f64s {
			f64s[i] = v.AtVec(i)
		}
		return &values{shape: []int{len(f64s)}, f64s: f64s, dtype: DTypeF64}, nil
	case mat.Matrix:
		r, c := v.Dims()
		f64s := make([]float64, 0, r*c)
		for i := range r {
			for j := range c {
				f64s = append(f64s, v.At(i, j))
			}
		}
		return &values{shape: []int{r, c}, f64s: f64s, dtype: DTypeF64}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// collectTensor liest Shape und Backing-Daten eines pdevine/tensor Tensors
func collectTensor(t tensor.Tensor) (*values, error) {
	vs, err := collect(t.Data())
	if err != nil {
		return nil, err
	}

	shape := []int(t.Shape())
	if numElements(shape) != vs.count() {
		return nil, fmt.Errorf("%w: tensor shape %v with %d elements", ErrSize, shape, vs.count())
	}

	vs.shape = append([]int(nil), shape...)
	return vs, nil
}

// collectNested verarbeitet verschachtelte Listen aus YAML/JSON. Die Shape
// folgt den jeweils ersten Elementen, jede Abweichung davon ist ragged.
// Gemischte int/float Blaetter werden zu float64.
func collectNested(s []any) (*values, error) {
	var shape []int
	for cur := any(s); ; {
		l, ok := cur.([]any)
		if !ok {
			break
		}

		shape = append(shape, len(l))
		if len(l) == 0 {
			break
		}
		cur = l[0]
	}

	vs := &values{shape: shape, isInt: true, dtype: DTypeI64}

	var walk func(l []any, depth int) error
	walk = func(l []any, depth int) error {
		if len(l) != shape[depth] {
			return fmt.Errorf("%w: dim %d has %d and %d elements", ErrRagged, depth, shape[depth], len(l))
		}

		for _, e := range l {
			sub, isList := e.([]any)
			switch {
			case depth+1 < len(shape):
				if !isList {
					return fmt.Errorf("%w: scalar at dim %d", ErrRagged, depth)
				}
				if err := walk(sub, depth+1); err != nil {
					return err
				}
			case isList:
				return fmt.Errorf("%w: list at dim %d", ErrRagged, depth)
			default:
				if err := vs.appendScalar(e); err != nil {
					return err
				}
			}
		}

		return nil
	}

	if err := walk(s, 0); err != nil {
		return nil, err
	}

	if !vs.isInt {
		vs.dtype = DTypeF64
	}

	return vs, nil
}

func (vs *values) appendScalar(e any) error {
	var f float64
	var i int64
	isInt := true
	switch e := e.(type) {
	case int:
		i = int64(e)
	case int32:
		i = int64(e)
	case int64:
		i = e
	case uint64:
		i = int64(e)
	case float32:
		f, isInt = float64(e), false
	case float64:
		f, isInt = e, false
	case bool:
		if e {
			i = 1
		}
	default:
		return fmt.Errorf("%w: element %T", ErrUnsupportedType, e)
	}

	if vs.isInt && !isInt {
		// bisher gesammelte ints nach float umziehen
		vs.isInt = false
		vs.f64s = make([]float64, len(vs.i64s), len(vs.i64s)+1)
		for k, v := range vs.i64s {
			vs.f64s[k] = float64(v)
		}
		vs.i64s = nil
	}

	switch {
	case vs.isInt:
		vs.i64s = append(vs.i64s, i)
	case isInt:
		vs.f64s = append(vs.f64s, float64(i))
	default:
		vs.f64s = append(vs.f64s, f)
	}

	return nil
}

func (vs *values) count() int {
	if vs.isInt {
		return len(vs.i64s)
	}

	return len(vs.f64s)
}

// encode schreibt die Werte Little-Endian im Ziel-Datentyp
func encode(vs *values, dtype DType) []byte {
	n := vs.count()

	at := func(i int) float64 {
		if vs.isInt {
			return float64(vs.i64s[i])
		}
		return vs.f64s[i]
	}

	atInt := func(i int) int64 {
		if vs.isInt {
			return vs.i64s[i]
		}
		return int64(vs.f64s[i])
	}

	bts := make([]byte, n*dtype.ElemSize())
	switch dtype {
	case DTypeF32:
		for i := range n {
			binary.LittleEndian.PutUint32(bts[i*4:], math.Float32bits(float32(at(i))))
		}
	case DTypeF16:
		for i := range n {
			binary.LittleEndian.PutUint16(bts[i*2:], float16.Fromfloat32(float32(at(i))).Bits())
		}
	case DTypeBF16:
		f32s := make([]float32, n)
		for i := range n {
			f32s[i] = float32(at(i))
		}
		bts = bfloat16.EncodeFloat32(f32s)
	case DTypeF64:
		for i := range n {
			binary.LittleEndian.PutUint64(bts[i*8:], math.Float64bits(at(i)))
		}
	case DTypeI32:
		for i := range n {
			binary.LittleEndian.PutUint32(bts[i*4:], uint32(int32(atInt(i))))
		}
	case DTypeI64:
		for i := range n {
			binary.LittleEndian.PutUint64(bts[i*8:], uint64(atInt(i)))
		}
	}

	return bts
}

func widen(f32s []float32) []float64 {
	f64s := make([]float64, len(f32s))
	for i, f := range f32s {
		f64s[i] = float64(f)
	}

	return f64s
}

func widenInts[S ~[]E, E int | int32](s S) []int64 {
	i64s := make([]int64, len(s))
	for i, v := range s {
		i64s[i] = int64(v)
	}

	return i64s
}
