package togomlx

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	shape := shapeinference.MakeDynamic("batch", 3, 224)
	got, err := Shape(shape, dtypes.Float32, shapeinference.Bindings{"batch": 8})
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float32, got.DType)
	assert.Equal(t, []int{8, 3, 224}, got.Dimensions)
	assert.Equal(t, 8*3*224, got.Size())

	_, err = Shape(shape, dtypes.Float32, nil)
	require.ErrorIs(t, err, shapeinference.ErrUnresolved)

	scalar, err := Shape(shapeinference.Make(), dtypes.Int64, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, scalar.Rank())
}

func TestFromShape(t *testing.T) {
	got := FromShape(shapes.Make(dtypes.Float32, 2, 3))
	assert.True(t, got.Equal(shapeinference.Make(2, 3)))

	dynamic := FromShape(shapes.Shape{DType: dtypes.Float32, Dimensions: []int{-1, 4}})
	assert.False(t, dynamic.IsFullyStatic())
	assert.Equal(t, []string{"axis_0"}, dynamic.SymbolicNames())
}
