package executor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/relayexec/relayexec/ndarray"
)

func TestParamDictOrder(t *testing.T) {
	p := NewParamDict()
	p.Set("z", 1)
	p.Set("a", 2)
	p.Set("m", 3)
	p.Set("z", 4)

	if diff := cmp.Diff([]string{"z", "a", "m"}, p.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}

	v, ok := p.Get("z")
	require.True(t, ok)
	require.Equal(t, 4, v)

	_, ok = p.Get("missing")
	require.False(t, ok)

	require.Equal(t, map[string]any{"z": 4, "a": 2, "m": 3}, p.ToMap())

	var nilDict *ParamDict
	require.Zero(t, nilDict.Len())
	require.Empty(t, nilDict.Names())
}

func TestParamDictZeroValue(t *testing.T) {
	var p ParamDict
	p.Set("w", 1.5)
	require.Equal(t, 1, p.Len())
}

func TestParamDictYAML(t *testing.T) {
	src := `
conv_weight: [[1.0, 2.0], [3.0, 4.0]]
bias: [1, 2]
scale: 0.5
`

	var p ParamDict
	require.NoError(t, yaml.Unmarshal([]byte(src), &p))

	if diff := cmp.Diff([]string{"conv_weight", "bias", "scale"}, p.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}

	args, err := Flatten(&p)
	require.NoError(t, err)
	require.Len(t, args, 6)

	w := args[1].(*ndarray.NDArray)
	require.Equal(t, []int{2, 2}, w.Shape())
	require.Equal(t, ndarray.DTypeF64, w.DType())

	b := args[3].(*ndarray.NDArray)
	require.Equal(t, []int64{1, 2}, b.Ints())
}

func TestParamDictJSON(t *testing.T) {
	var p ParamDict
	require.NoError(t, p.UnmarshalJSON([]byte(`{"b": [1, 2], "a": 3}`)))
	require.Equal(t, []string{"b", "a"}, p.Names())
}

func TestParamDictUnmarshalErrors(t *testing.T) {
	cases := map[string]string{
		"sequence":  "[1, 2]",
		"scalar":    "3",
		"duplicate": "a: 1\na: 2\n",
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			var p ParamDict
			if err := yaml.Unmarshal([]byte(src), &p); err == nil {
				t.Error("Fehler erwartet")
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	p := NewParamDict()
	p.Set("w", []float32{1, 2})
	p.Set("b", []int32{3})

	args, err := Flatten(p)
	require.NoError(t, err)
	require.Len(t, args, 4)
	require.Equal(t, "w", args[0])
	require.Equal(t, "b", args[2])
	require.Equal(t, []float32{1, 2}, args[1].(*ndarray.NDArray).Floats())
	require.Equal(t, ndarray.DTypeI32, args[3].(*ndarray.NDArray).DType())

	empty, err := Flatten(nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	p.Set("bad", "not a tensor")
	_, err = Flatten(p)
	if !errors.Is(err, ndarray.ErrUnsupportedType) {
		t.Errorf("erwartet ErrUnsupportedType, bekommen %v", err)
	}

	// der Konvertierungsfehler kommt ohne Zusatz zurueck
	_, want := ndarray.Array("not a tensor")
	require.EqualError(t, err, want.Error())
}
