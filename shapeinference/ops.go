package shapeinference

import (
	"github.com/gomlx/exceptions"
)

// Family enumerates the shape-transform families supported by Context. The set is closed: every ONNX operator
// handled by shape inference maps to exactly one Family.
type Family int

const (
	FamilyInvalid Family = iota
	FamilyUnary
	FamilyBinary
	FamilyMatMul
	FamilyTranspose
	FamilyReduce
	FamilyConcat
	FamilyReshape
	FamilySqueeze
	FamilyUnsqueeze
)

// String implements fmt.Stringer.
func (f Family) String() string {
	switch f {
	case FamilyUnary:
		return "unary"
	case FamilyBinary:
		return "binary"
	case FamilyMatMul:
		return "matmul"
	case FamilyTranspose:
		return "transpose"
	case FamilyReduce:
		return "reduce"
	case FamilyConcat:
		return "concat"
	case FamilyReshape:
		return "reshape"
	case FamilySqueeze:
		return "squeeze"
	case FamilyUnsqueeze:
		return "unsqueeze"
	default:
		return "invalid"
	}
}

// Op is one shape inference request. It's implemented only by the types in this package, one per Family:
// Unary, Binary, MatMul, Transpose, Reduce, Concat, Reshape, Squeeze and Unsqueeze.
type Op interface {
	// Family of the operation.
	Family() Family

	// Operands returns the names of the values the operation reads.
	Operands() []string

	isOp()
}

// Unary is an element-wise operation that preserves its input shape.
type Unary struct {
	Input string
}

// Binary is an element-wise operation with broadcasting.
type Binary struct {
	LHS, RHS string
}

// MatMul is a (batched) matrix multiplication.
type MatMul struct {
	LHS, RHS string
}

// Transpose permutes the axes of Input: output axis i is input axis Permutation[i].
type Transpose struct {
	Input       string
	Permutation []int
}

// Reduce reduces Axes (negative values count from the end).
type Reduce struct {
	Input    string
	Axes     []int64
	KeepDims bool
}

// Concat concatenates Inputs along Axis.
type Concat struct {
	Inputs []string
	Axis   int64
}

// Reshape reshapes Input to Target, where at most one entry can be -1.
type Reshape struct {
	Input  string
	Target []int64
}

// Squeeze removes Axes of extent 1, or all axes of extent 1 if Axes is empty.
type Squeeze struct {
	Input string
	Axes  []int64
}

// Unsqueeze inserts axes of extent 1 at Axes (positions in the output).
type Unsqueeze struct {
	Input string
	Axes  []int64
}

func (Unary) Family() Family     { return FamilyUnary }
func (Binary) Family() Family    { return FamilyBinary }
func (MatMul) Family() Family    { return FamilyMatMul }
func (Transpose) Family() Family { return FamilyTranspose }
func (Reduce) Family() Family    { return FamilyReduce }
func (Concat) Family() Family    { return FamilyConcat }
func (Reshape) Family() Family   { return FamilyReshape }
func (Squeeze) Family() Family   { return FamilySqueeze }
func (Unsqueeze) Family() Family { return FamilyUnsqueeze }

func (op Unary) Operands() []string     { return []string{op.Input} }
func (op Binary) Operands() []string    { return []string{op.LHS, op.RHS} }
func (op MatMul) Operands() []string    { return []string{op.LHS, op.RHS} }
func (op Transpose) Operands() []string { return []string{op.Input} }
func (op Reduce) Operands() []string    { return []string{op.Input} }
func (op Concat) Operands() []string    { return op.Inputs }
func (op Reshape) Operands() []string   { return []string{op.Input} }
func (op Squeeze) Operands() []string   { return []string{op.Input} }
func (op Unsqueeze) Operands() []string { return []string{op.Input} }

func (Unary) isOp()     {}
func (Binary) isOp()    {}
func (MatMul) isOp()    {}
func (Transpose) isOp() {}
func (Reduce) isOp()    {}
func (Concat) isOp()    {}
func (Reshape) isOp()   {}
func (Squeeze) isOp()   {}
func (Unsqueeze) isOp() {}

// Infer returns the output shape of op, dispatching to the inference method of its family.
// As with the individual methods, the result is not stored in the Context.
func (c *Context) Infer(op Op) (Shape, error) {
	switch op := op.(type) {
	case Unary:
		return c.InferUnary(op.Input)
	case Binary:
		return c.InferBinary(op.LHS, op.RHS)
	case MatMul:
		return c.InferMatMul(op.LHS, op.RHS)
	case Transpose:
		return c.InferTranspose(op.Input, op.Permutation)
	case Reduce:
		return c.InferReduce(op.Input, op.Axes, op.KeepDims)
	case Concat:
		return c.InferConcat(op.Inputs, op.Axis)
	case Reshape:
		return c.InferReshape(op.Input, op.Target)
	case Squeeze:
		return c.InferSqueeze(op.Input, op.Axes)
	case Unsqueeze:
		return c.InferUnsqueeze(op.Input, op.Axes)
	}
	exceptions.Panicf("shapeinference.Context.Infer: unknown Op type %T", op)
	return Shape{}, nil
}
