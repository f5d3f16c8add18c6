package onnx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFilled(t *testing.T) {
	d := Filled(Float32, []int64{2, 3}, 1.5)
	assert.Equal(t, 6, d.Len())
	assert.Equal(t, []float32{1.5, 1.5, 1.5, 1.5, 1.5, 1.5}, d.Float32s)

	d = Filled(Float16, []int64{2}, 1)
	assert.Equal(t, []uint16{0x3C00, 0x3C00}, d.Float16s)
	assert.Equal(t, float32(1), float16.Frombits(d.Float16s[0]).Float32())

	// Truncation toward zero and saturation.
	assert.Equal(t, []int32{-2}, Scalar(Int32, -2.7).Int32s)
	assert.Equal(t, []int8{127}, Scalar(Int8, 300).Int8s)
	assert.Equal(t, []int8{-128}, Scalar(Int8, -300).Int8s)
	assert.Equal(t, []uint8{0}, Scalar(Uint8, -5).Uint8s)
	assert.Equal(t, []uint32{math.MaxUint32}, Scalar(Uint32, 1e20).Uint32s)
	assert.Equal(t, []int64{math.MaxInt64}, Scalar(Int64, 1e30).Int64s)
	assert.Equal(t, []uint64{math.MaxUint64}, Scalar(Uint64, 1e30).Uint64s)
	assert.Equal(t, []int32{0}, Scalar(Int32, float32(math.NaN())).Int32s)

	// Scalars have one element, and zero sized dimensions none.
	assert.Equal(t, 1, Scalar(Int64, 3).Len())
	assert.True(t, Filled(Float32, []int64{0, 3}, 1).IsEmpty())
}

func TestTensorData(t *testing.T) {
	d := TensorData{DType: Int32, Int32s: []int32{1, -1}}
	assert.False(t, d.IsRaw())
	assert.Equal(t, []byte{1, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}, d.Bytes())

	raw := TensorData{DType: Float32, Raw: make([]byte, 10)}
	assert.True(t, raw.IsRaw())
	assert.Equal(t, 2, raw.Len(), "raw length is bytes / element size, rounded down")

	u8 := TensorData{DType: Uint8, Uint8s: []uint8{7, 8}}
	assert.Equal(t, []byte{7, 8}, u8.Bytes())
}

func TestTensor(t *testing.T) {
	tensor := &Tensor{Name: "shape", Dims: []int64{3}, Data: TensorData{DType: Int32, Int32s: []int32{1, -1, 4}}}
	require.NoError(t, tensor.Validate())
	assert.Equal(t, Int32, tensor.DataType())
	size, err := tensor.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
	assert.Equal(t, "[3]", tensor.Shape().String())
	values, err := tensor.Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -1, 4}, values)

	tensor.Dims = []int64{2, 2}
	require.Error(t, tensor.Validate())
	tensor.Dims = []int64{-3}
	require.Error(t, tensor.Validate())
	tensor.Dims = []int64{1 << 32, 1 << 32}
	_, err = tensor.Size()
	require.Error(t, err, "number of elements overflows int64")
	require.Error(t, tensor.Validate())
	tensor.Dims = []int64{1 << 32, 1 << 32, 0}
	size, err = tensor.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)

	// Raw little-endian payload.
	raw := &Tensor{Name: "raw", Dims: []int64{2}, Data: TensorData{DType: Int64, Raw: []byte{2, 0, 0, 0, 0, 0, 0, 0, 0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}}}
	require.NoError(t, raw.Validate())
	values, err = raw.Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, -2}, values)

	floats := &Tensor{Name: "f", Dims: []int64{}, Data: Scalar(Float32, 1)}
	require.NoError(t, floats.Validate())
	_, err = floats.Int64s()
	require.Error(t, err)
}
