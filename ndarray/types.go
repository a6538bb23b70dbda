// types.go - Datentypen fuer NDArray
// Dieses Modul definiert DType und die Element-Groessen.
package ndarray

import "fmt"

// DType ist der Element-Typ eines NDArray
type DType int

const (
	DTypeF32 DType = iota
	DTypeF16
	DTypeBF16
	DTypeF64
	DTypeI32
	DTypeI64
)

// ParseDType parst Namen wie "float32" oder "f16"
func ParseDType(s string) (DType, error) {
	switch s {
	case "float32", "f32", "F32":
		return DTypeF32, nil
	case "float16", "f16", "F16":
		return DTypeF16, nil
	case "bfloat16", "bf16", "BF16":
		return DTypeBF16, nil
	case "float64", "f64", "F64":
		return DTypeF64, nil
	case "int32", "i32", "I32":
		return DTypeI32, nil
	case "int64", "i64", "I64":
		return DTypeI64, nil
	default:
		return 0, fmt.Errorf("%w: dtype %q", ErrUnsupportedType, s)
	}
}

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "float32"
	case DTypeF16:
		return "float16"
	case DTypeBF16:
		return "bfloat16"
	case DTypeF64:
		return "float64"
	case DTypeI32:
		return "int32"
	case DTypeI64:
		return "int64"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// ElemSize gibt die Groesse eines Elements in Bytes zurueck
func (d DType) ElemSize() int {
	switch d {
	case DTypeF16, DTypeBF16:
		return 2
	case DTypeF32, DTypeI32:
		return 4
	case DTypeF64, DTypeI64:
		return 8
	default:
		return 0
	}
}

// IsInt meldet ganzzahlige Typen
func (d DType) IsInt() bool {
	return d == DTypeI32 || d == DTypeI64
}
