// Package shapeinference calculates the shapes of values flowing through an ONNX graph, before the graph is
// converted to its runtime (WebNN) representation.
//
// A Shape is a list of Dim, and each Dim is either bound to a concrete extent or symbolic (a named placeholder,
// like "batch", that is not yet bound). Symbolic names are resolved against the Bindings table given to the
// Context at construction.
//
// The Context holds the shapes of the values inferred so far and exposes one inference method per operator
// family (see Family), plus Context.Infer that dispatches on the closed set of Op variants.
//
// Inference methods never store their results: the caller (usually the graph walker in package onnx) records them
// with Context.SetShape before visiting dependent nodes.
package shapeinference

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
)

// Dim is the extent of one axis of a Shape: either bound to a concrete extent or symbolic.
//
// Dim is an immutable value and can be compared with ==.
type Dim struct {
	extent int64
	name   string
}

// Bound returns a Dim with the given concrete extent.
//
// It panics if extent is negative: -1 is only meaningful as the Reshape wildcard, which lives in the target
// literal of InferReshape and never in a Dim.
func Bound(extent int64) Dim {
	if extent < 0 {
		exceptions.Panicf("shapeinference.Bound(%d): extents must be non-negative", extent)
	}
	return Dim{extent: extent}
}

// Symbolic returns a Dim named by the given placeholder, resolved later through Bindings.
func Symbolic(name string) Dim {
	if name == "" {
		exceptions.Panicf("shapeinference.Symbolic requires a non-empty name")
	}
	return Dim{name: name}
}

// IsSymbolic returns whether the dimension is a named placeholder.
func (d Dim) IsSymbolic() bool { return d.name != "" }

// Extent returns the concrete extent, and false if the dimension is symbolic.
func (d Dim) Extent() (int64, bool) {
	if d.IsSymbolic() {
		return 0, false
	}
	return d.extent, true
}

// Name returns the placeholder name, or "" for bound dimensions.
func (d Dim) Name() string { return d.name }

// Resolve returns the concrete extent of d, looking up symbolic names in bindings.
func (d Dim) Resolve(bindings Bindings) (int64, bool) {
	if !d.IsSymbolic() {
		return d.extent, true
	}
	extent, found := bindings[d.name]
	return extent, found
}

// String implements fmt.Stringer.
func (d Dim) String() string {
	if d.IsSymbolic() {
		return d.name
	}
	return strconv.FormatInt(d.extent, 10)
}

// Shape describes the axes of one tensor value. The order of Dimensions is the tensor's axis order,
// and an empty Shape is a scalar.
type Shape struct {
	Dimensions []Dim
}

// Make returns a Shape where every dimension is bound to the given extents.
func Make(extents ...int64) Shape {
	s := Shape{Dimensions: make([]Dim, len(extents))}
	for axis, extent := range extents {
		s.Dimensions[axis] = Bound(extent)
	}
	return s
}

// MakeDynamic returns a Shape from a mix of integers (bound dimensions), strings (symbolic dimensions)
// or Dim values.
//
// It panics for any other type.
func MakeDynamic(dims ...any) Shape {
	s := Shape{Dimensions: make([]Dim, len(dims))}
	for axis, dim := range dims {
		switch v := dim.(type) {
		case Dim:
			s.Dimensions[axis] = v
		case string:
			s.Dimensions[axis] = Symbolic(v)
		case int:
			s.Dimensions[axis] = Bound(int64(v))
		case int32:
			s.Dimensions[axis] = Bound(int64(v))
		case int64:
			s.Dimensions[axis] = Bound(v)
		default:
			exceptions.Panicf("shapeinference.MakeDynamic: axis #%d has unsupported type %T (%v)", axis, dim, dim)
		}
	}
	return s
}

// FromDims returns a Shape holding a copy of dims.
func FromDims(dims []Dim) Shape {
	return Shape{Dimensions: slices.Clone(dims)}
}

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape has no axes.
func (s Shape) IsScalar() bool { return len(s.Dimensions) == 0 }

// IsFullyStatic returns whether every dimension is bound.
func (s Shape) IsFullyStatic() bool {
	for _, d := range s.Dimensions {
		if d.IsSymbolic() {
			return false
		}
	}
	return true
}

// SymbolicNames returns the distinct symbolic names used in the shape, in axis order.
func (s Shape) SymbolicNames() []string {
	var names []string
	for _, d := range s.Dimensions {
		if d.IsSymbolic() && !slices.Contains(names, d.name) {
			names = append(names, d.name)
		}
	}
	return names
}

// Resolve returns the concrete extents of the shape, substituting symbolic dimensions from bindings.
// It returns false if any symbolic name has no binding.
func (s Shape) Resolve(bindings Bindings) ([]int64, bool) {
	extents := make([]int64, len(s.Dimensions))
	for axis, d := range s.Dimensions {
		extent, ok := d.Resolve(bindings)
		if !ok {
			return nil, false
		}
		extents[axis] = extent
	}
	return extents, true
}

// Size returns the number of elements of the resolved shape. A scalar has size 1.
// It returns false if the shape doesn't resolve or if the number of elements overflows int64.
func (s Shape) Size(bindings Bindings) (int64, bool) {
	extents, ok := s.Resolve(bindings)
	if !ok {
		return 0, false
	}
	return Product(extents)
}

// Equal returns whether both shapes have the same dimensions, symbolic names included.
func (s Shape) Equal(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return FromDims(s.Dimensions)
}

// String implements fmt.Stringer, e.g. "[batch, 3, 4]".
func (s Shape) String() string {
	parts := make([]string, len(s.Dimensions))
	for axis, d := range s.Dimensions {
		parts[axis] = d.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// Product returns the product of the non-negative extents, 1 for an empty list.
// It returns false if the product overflows int64.
func Product(extents []int64) (int64, bool) {
	if slices.Contains(extents, 0) {
		return 0, true
	}
	size := int64(1)
	for _, extent := range extents {
		if extent > math.MaxInt64/size {
			return 0, false
		}
		size *= extent
	}
	return size, true
}

// fromExtents converts concrete extents back to a Shape of bound dimensions.
func fromExtents(extents []int64) Shape {
	return Make(extents...)
}
