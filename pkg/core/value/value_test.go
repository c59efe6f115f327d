package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulse-lang/pulse/pkg/core/value"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.Int(42), "42"},
		{value.Int(-7), "-7"},
		{value.FloatVal(3.14), "3.14"},
		{value.FloatVal(2), "2.0"},
		{value.FloatVal(1e21), "1e+21"},
		{value.Bool(true), "True"},
		{value.Bool(false), "False"},
		{value.None(), "None"},
		{value.String("hi"), "hi"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, tt.v.Format())
	}
}

func TestQuote(t *testing.T) {
	require.Equal(t, "'hi'", value.String("hi").Quote())
	require.Equal(t, "42", value.Int(42).Quote())
	require.Equal(t, "None", value.None().Quote())
}

func TestZeroValueIsNone(t *testing.T) {
	var v value.Value
	require.True(t, v.IsNone())
	require.Equal(t, value.KindNone, v.Kind)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "int", value.KindInt.String())
	require.Equal(t, "float", value.KindFloat.String())
	require.Equal(t, "string", value.KindString.String())
	require.Equal(t, "bool", value.KindBool.String())
	require.Equal(t, "none", value.KindNone.String())
}
