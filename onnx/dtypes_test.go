package onnx

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypeConversion(t *testing.T) {
	for _, dt := range []DataType{Float32, Float16, Int32, Uint32, Int64, Uint64, Int8, Uint8} {
		code := WebNNToONNXDataType(dt)
		require.NotEqual(t, ONNXUndefined, code, "data type %s", dt)
		back, err := ONNXToWebNNDataType(int32(code))
		require.NoError(t, err)
		assert.Equal(t, dt, back)

		parsed, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
	}
	assert.Equal(t, ONNXFloat, WebNNToONNXDataType(Float32))
	assert.Equal(t, ONNXInt64, WebNNToONNXDataType(Int64))
	assert.Equal(t, ONNXUndefined, WebNNToONNXDataType(DataTypeInvalid))

	// Codes without a WebNN operand type.
	for _, code := range []int32{int32(ONNXBool), int32(ONNXDouble), int32(ONNXString), 0, 99} {
		_, err := ONNXToWebNNDataType(code)
		require.Error(t, err, "code %d", code)
	}

	dt, err := ParseDataType("FLOAT16")
	require.NoError(t, err)
	assert.Equal(t, Float16, dt)
	_, err = ParseDataType("bfloat16")
	require.Error(t, err)
}

func TestDataTypeSize(t *testing.T) {
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 2, Float16.Size())
	assert.Equal(t, 8, Uint64.Size())
	assert.Equal(t, 1, Int8.Size())
	assert.Equal(t, 0, DataTypeInvalid.Size())
}

func TestDTypeForONNX(t *testing.T) {
	dtype, err := DTypeForONNX(ONNXBool)
	require.NoError(t, err)
	assert.Equal(t, dtypes.Bool, dtype)
	assert.Equal(t, dtypes.Float16, Float16.DType())
	assert.Equal(t, dtypes.Uint32, Uint32.DType())
	_, err = DTypeForONNX(ONNXString)
	require.Error(t, err)
	assert.Equal(t, "INT64", ONNXInt64.String())
	assert.Equal(t, "UNKNOWN", ONNXDataType(42).String())
}
