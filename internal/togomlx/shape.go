// Package togomlx converts inferred shapes to and from GoMLX shapes.
package togomlx

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
)

// Shape converts an inferred shape to a GoMLX shapes.Shape (it includes the dtype).
// All symbolic dimensions must be bound in bindings.
func Shape(shape shapeinference.Shape, dtype dtypes.DType, bindings shapeinference.Bindings) (shapes.Shape, error) {
	extents, ok := shape.Resolve(bindings)
	if !ok {
		return shapes.Shape{}, errors.Wrapf(shapeinference.ErrUnresolved,
			"shape %s with bindings {%s} cannot be converted to a GoMLX shape", shape, bindings.Key())
	}
	dims := make([]int, len(extents))
	for axis, extent := range extents {
		dims[axis] = int(extent)
	}
	return shapes.Make(dtype, dims...), nil
}

// FromShape converts a GoMLX shape to an inferred shape. Negative (dynamic) dimensions become symbolic
// dimensions named "axis_<n>".
func FromShape(shape shapes.Shape) shapeinference.Shape {
	dims := make([]shapeinference.Dim, shape.Rank())
	for axis, dim := range shape.Dimensions {
		if dim < 0 {
			dims[axis] = shapeinference.Symbolic(fmt.Sprintf("axis_%d", axis))
		} else {
			dims[axis] = shapeinference.Bound(int64(dim))
		}
	}
	return shapeinference.FromDims(dims)
}
