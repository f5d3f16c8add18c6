package onnx

import (
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
)

var (
	// opFamilies maps ONNX operator types to the shape inference family that computes their output shape.
	opFamilies map[string]shapeinference.Family

	// boolOutputOps are the operators that output BOOL regardless of their input dtypes.
	boolOutputOps = sets.MakeWith("Equal", "Greater", "GreaterOrEqual", "Less", "LessOrEqual",
		"And", "Or", "Xor", "Not", "IsNaN", "IsInf")

	// dataDependentOps output values whose shape depends on the contents of their inputs.
	dataDependentOps = sets.MakeWith("NonZero", "Compress", "Unique", "NonMaxSuppression")
)

func init() {
	unaryOps := sets.MakeWith(
		"Abs", "Acos", "Asin", "Atan", "Ceil", "Cos", "Cosh", "Erf", "Exp", "Floor", "Identity", "Log", "Neg",
		"Reciprocal", "Round", "Sign", "Sin", "Sinh", "Sqrt", "Tan", "Not", "IsNaN", "IsInf",
		"Relu", "Sigmoid", "Tanh", "Softmax", "LogSoftmax", "LeakyRelu", "Elu", "Selu", "Clip", "Gelu",
		"HardSigmoid", "HardSwish", "Softplus", "Softsign", "Mish", "ThresholdedRelu",
		"Cast", "CastLike", "Dropout", "LayerNormalization", "BatchNormalization", "InstanceNormalization",
		"LpNormalization", "CumSum", "Trilu")
	binaryOps := sets.MakeWith(
		"Add", "Sub", "Mul", "Div", "Pow", "Mod", "PRelu",
		"Equal", "Greater", "GreaterOrEqual", "Less", "LessOrEqual", "And", "Or", "Xor",
		// Variadic.
		"Max", "Min", "Sum", "Mean", "Where")
	reduceOps := sets.MakeWith(
		"ReduceSum", "ReduceMean", "ReduceMax", "ReduceMin", "ReduceProd", "ReduceL1", "ReduceL2",
		"ReduceLogSum", "ReduceLogSumExp", "ReduceSumSquare",
		"ArgMax", "ArgMin", "GlobalAveragePool", "GlobalMaxPool", "GlobalLpPool")

	opFamilies = make(map[string]shapeinference.Family, len(unaryOps)+len(binaryOps)+len(reduceOps)+8)
	for op := range unaryOps {
		opFamilies[op] = shapeinference.FamilyUnary
	}
	for op := range binaryOps {
		opFamilies[op] = shapeinference.FamilyBinary
	}
	for op := range reduceOps {
		opFamilies[op] = shapeinference.FamilyReduce
	}
	opFamilies["MatMul"] = shapeinference.FamilyMatMul
	opFamilies["Transpose"] = shapeinference.FamilyTranspose
	opFamilies["Concat"] = shapeinference.FamilyConcat
	opFamilies["Reshape"] = shapeinference.FamilyReshape
	opFamilies["Flatten"] = shapeinference.FamilyReshape
	opFamilies["Squeeze"] = shapeinference.FamilySqueeze
	opFamilies["Unsqueeze"] = shapeinference.FamilyUnsqueeze
}

// OpFamily returns the shape inference family of the ONNX operator, if it has one.
// Constant and Shape are handled separately by ShapeResolver, and have no family.
func OpFamily(opType string) (shapeinference.Family, bool) {
	family, found := opFamilies[opType]
	return family, found
}

// IsDataDependentOp reports whether the output shape of the ONNX operator can only be known by running it.
func IsDataDependentOp(opType string) bool {
	return dataDependentOps.Has(opType)
}

// SupportedOps returns whether the ONNX operator has a shape rule in ShapeResolver.
func SupportedOps(opType string) bool {
	if opType == "Constant" || opType == "Shape" {
		return true
	}
	_, found := opFamilies[opType]
	return found
}
