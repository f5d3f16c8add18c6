package shapeinference

import (
	"math"
	"slices"

	"github.com/pkg/errors"
)

// InferUnary returns the shape of element-wise unary operations (Relu, Sqrt, Cast, ...): the input shape,
// with symbolic dimensions preserved.
func (c *Context) InferUnary(input string) (Shape, error) {
	return c.input(input)
}

// InferBinary returns the broadcast shape of element-wise binary operations (Add, Mul, Equal, ...).
// Both operands must resolve to concrete extents.
func (c *Context) InferBinary(lhs, rhs string) (Shape, error) {
	lhsDims, err := c.resolvedInput(lhs)
	if err != nil {
		return Shape{}, err
	}
	rhsDims, err := c.resolvedInput(rhs)
	if err != nil {
		return Shape{}, err
	}
	output, ok := Broadcast(lhsDims, rhsDims)
	if !ok {
		return Shape{}, errors.Wrapf(ErrIncompatible, "cannot broadcast %q %v with %q %v", lhs, lhsDims, rhs, rhsDims)
	}
	return fromExtents(output), nil
}

// InferMatMul returns the shape of the batched matrix multiplication lhs @ rhs.
//
// The operands are [..., M, K] and [..., K, N], both with rank >= 2. The leading ("batch") axes are
// broadcast, and the result is [batch..., M, N].
func (c *Context) InferMatMul(lhs, rhs string) (Shape, error) {
	lhsDims, err := c.resolvedInput(lhs)
	if err != nil {
		return Shape{}, err
	}
	rhsDims, err := c.resolvedInput(rhs)
	if err != nil {
		return Shape{}, err
	}
	lhsRank, rhsRank := len(lhsDims), len(rhsDims)
	if lhsRank < 2 || rhsRank < 2 {
		return Shape{}, errors.Wrapf(ErrIncompatible, "MatMul requires operands of rank >= 2, got %q %v and %q %v",
			lhs, lhsDims, rhs, rhsDims)
	}
	m, lhsK := lhsDims[lhsRank-2], lhsDims[lhsRank-1]
	rhsK, n := rhsDims[rhsRank-2], rhsDims[rhsRank-1]
	if lhsK != rhsK {
		return Shape{}, errors.Wrapf(ErrIncompatible, "MatMul contracting dimensions don't match: %q %v and %q %v",
			lhs, lhsDims, rhs, rhsDims)
	}
	batch, ok := Broadcast(lhsDims[:lhsRank-2], rhsDims[:rhsRank-2])
	if !ok {
		return Shape{}, errors.Wrapf(ErrIncompatible, "MatMul batch dimensions cannot be broadcast: %q %v and %q %v",
			lhs, lhsDims, rhs, rhsDims)
	}
	return fromExtents(append(batch, m, n)), nil
}

// InferTranspose returns the input shape with its axes permuted: output axis i is input axis perm[i].
// Symbolic dimensions are moved without being resolved.
func (c *Context) InferTranspose(input string, perm []int) (Shape, error) {
	shape, err := c.input(input)
	if err != nil {
		return Shape{}, err
	}
	if err := checkPermutation(perm, shape.Rank()); err != nil {
		return Shape{}, errors.WithMessagef(err, "Transpose of %q %s", input, shape)
	}
	output := Shape{Dimensions: make([]Dim, len(perm))}
	for axis, srcAxis := range perm {
		output.Dimensions[axis] = shape.Dimensions[srcAxis]
	}
	return output, nil
}

// InferReduce returns the shape of a reduction over axes (negative axes count from the end).
// Reduced axes are removed, or kept with extent 1 if keepDims is set.
//
// An empty axes list reduces nothing: the ONNX default of reducing every axis is the caller's decision.
func (c *Context) InferReduce(input string, axes []int64, keepDims bool) (Shape, error) {
	dims, err := c.resolvedInput(input)
	if err != nil {
		return Shape{}, err
	}
	axesSet, err := normalizeAxes(axes, len(dims))
	if err != nil {
		return Shape{}, errors.WithMessagef(err, "Reduce of %q %v", input, dims)
	}
	output := make([]int64, 0, len(dims))
	for axis, dim := range dims {
		if !axesSet.Has(axis) {
			output = append(output, dim)
		} else if keepDims {
			output = append(output, 1)
		}
	}
	return fromExtents(output), nil
}

// InferConcat returns the shape of the concatenation of inputs along axis (negative axis counts from the end).
//
// All inputs must have the same rank and the same extents, except on the concatenation axis, whose extents are
// summed.
func (c *Context) InferConcat(inputs []string, axis int64) (Shape, error) {
	if len(inputs) == 0 {
		return Shape{}, errors.Wrap(ErrInvalidArgument, "Concat requires at least one input")
	}
	allDims := make([][]int64, len(inputs))
	for i, name := range inputs {
		dims, err := c.resolvedInput(name)
		if err != nil {
			return Shape{}, errors.WithMessagef(err, "Concat input #%d", i)
		}
		allDims[i] = dims
	}
	output := slices.Clone(allDims[0])
	rank := len(output)
	concatAxis, err := AdjustAxisToRank(axis, rank)
	if err != nil {
		return Shape{}, errors.WithMessagef(err, "Concat of %q %v", inputs[0], output)
	}
	for i := 1; i < len(inputs); i++ {
		dims := allDims[i]
		if len(dims) != rank {
			return Shape{}, errors.Wrapf(ErrIncompatible, "Concat mismatched ranks: input #0 %q has rank %d, input #%d %q has rank %d",
				inputs[0], rank, i, inputs[i], len(dims))
		}
		for d := range rank {
			if d == concatAxis {
				output[d] += dims[d]
				continue
			}
			if dims[d] != output[d] {
				return Shape{}, errors.Wrapf(ErrIncompatible, "Concat mismatched dimensions at axis %d (non-concatenation axis): input #0 %q has %d, input #%d %q has %d",
					d, inputs[0], output[d], i, inputs[i], dims[d])
			}
		}
	}
	return fromExtents(output), nil
}

// InferReshape returns the shape given by the target literal. At most one entry of target can be -1, and it's
// inferred so the number of elements is preserved.
//
// The input must resolve to concrete extents: no attempt is made to reshape values with unbound symbolic
// dimensions. When there is no -1, the target is returned as is, without checking the number of elements.
func (c *Context) InferReshape(input string, target []int64) (Shape, error) {
	wildcard := -1
	knownProduct := int64(1)
	for i, extent := range target {
		switch {
		case extent == -1:
			if wildcard >= 0 {
				return Shape{}, errors.Wrapf(ErrInvalidArgument, "Reshape target %v has more than one -1", target)
			}
			wildcard = i
		case extent < -1:
			return Shape{}, errors.Wrapf(ErrInvalidArgument, "Reshape target %v has invalid extent %d", target, extent)
		case extent > 0:
			if extent > math.MaxInt64/knownProduct {
				return Shape{}, errors.Wrapf(ErrInvalidArgument, "Reshape target %v: number of elements overflows int64",
					target)
			}
			knownProduct *= extent
		}
	}
	dims, err := c.resolvedInput(input)
	if err != nil {
		return Shape{}, err
	}
	output := slices.Clone(target)
	if wildcard >= 0 {
		total, ok := Product(dims)
		if !ok {
			return Shape{}, errors.Wrapf(ErrIncompatible, "Reshape of %q %v: number of elements overflows int64",
				input, dims)
		}
		if total%knownProduct != 0 {
			return Shape{}, errors.Wrapf(ErrIncompatible, "Reshape of %q %v (%d elements) into %v: not divisible by %d",
				input, dims, total, target, knownProduct)
		}
		output[wildcard] = total / knownProduct
	}
	return fromExtents(output), nil
}

// InferSqueeze returns the input shape without the given axes, each of which must have extent 1.
// If axes is empty, every axis with extent 1 is removed.
func (c *Context) InferSqueeze(input string, axes []int64) (Shape, error) {
	dims, err := c.resolvedInput(input)
	if err != nil {
		return Shape{}, err
	}
	output := make([]int64, 0, len(dims))
	if len(axes) == 0 {
		for _, dim := range dims {
			if dim != 1 {
				output = append(output, dim)
			}
		}
		return fromExtents(output), nil
	}

	axesSet, err := normalizeAxes(axes, len(dims))
	if err != nil {
		return Shape{}, errors.WithMessagef(err, "Squeeze of %q %v", input, dims)
	}
	for axis, dim := range dims {
		if !axesSet.Has(axis) {
			output = append(output, dim)
			continue
		}
		if dim != 1 {
			return Shape{}, errors.Wrapf(ErrIncompatible, "Squeeze of %q %v: axis %d has extent %d, not 1",
				input, dims, axis, dim)
		}
	}
	return fromExtents(output), nil
}

// InferUnsqueeze returns the input shape with axes of extent 1 inserted. The axes are positions in the output,
// and negative ones count from the end of the output rank.
//
// The input dimensions are copied through without being resolved.
func (c *Context) InferUnsqueeze(input string, axes []int64) (Shape, error) {
	shape, err := c.input(input)
	if err != nil {
		return Shape{}, err
	}
	outputRank := shape.Rank() + len(axes)
	axesSet, err := normalizeAxes(axes, outputRank)
	if err != nil {
		return Shape{}, errors.WithMessagef(err, "Unsqueeze of %q %s", input, shape)
	}
	output := Shape{Dimensions: make([]Dim, 0, outputRank)}
	inputAxis := 0
	for axis := range outputRank {
		if axesSet.Has(axis) {
			output.Dimensions = append(output.Dimensions, Bound(1))
			continue
		}
		output.Dimensions = append(output.Dimensions, shape.Dimensions[inputAxis])
		inputAxis++
	}
	return output, nil
}
