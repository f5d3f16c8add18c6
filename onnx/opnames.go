package onnx

import (
	"strings"
	"sync"
)

// OpNameTable translates operator names between WebNN and ONNX. The lookups are case-insensitive.
//
// The table is built once (see OpNames) and is read-only afterward, so it's safe for concurrent use.
type OpNameTable struct {
	webnnToONNX map[string]string
	onnxToWebNN map[string]string
	pairs       [][2]string
}

// OpNames returns the process-wide operator name table.
var OpNames = sync.OnceValue(newOpNameTable)

func newOpNameTable() *OpNameTable {
	t := &OpNameTable{
		webnnToONNX: make(map[string]string),
		onnxToWebNN: make(map[string]string),
	}
	// Matrix operations.
	t.add("matmul", "MatMul")
	t.add("gemm", "Gemm")

	// Convolution and pooling.
	t.add("conv2d", "Conv")
	t.add("convTranspose2d", "ConvTranspose")
	t.add("averagePool2d", "AveragePool")
	t.add("maxPool2d", "MaxPool")
	t.add("globalAveragePool", "GlobalAveragePool")
	t.add("globalMaxPool", "GlobalMaxPool")

	// Normalization.
	t.add("batchNormalization", "BatchNormalization")
	t.add("layerNormalization", "LayerNormalization")
	t.add("instanceNormalization", "InstanceNormalization")

	// Activations.
	t.add("relu", "Relu")
	t.add("sigmoid", "Sigmoid")
	t.add("tanh", "Tanh")
	t.add("softmax", "Softmax")
	t.add("prelu", "PRelu")
	t.add("leakyRelu", "LeakyRelu")
	t.add("elu", "Elu")
	t.add("clamp", "Clip")
	t.add("gelu", "Gelu")
	t.add("hardSigmoid", "HardSigmoid")
	t.add("hardSwish", "HardSwish")
	t.add("softplus", "Softplus")
	t.add("softsign", "Softsign")

	// Element-wise binary.
	t.add("add", "Add")
	t.add("sub", "Sub")
	t.add("mul", "Mul")
	t.add("div", "Div")
	t.add("pow", "Pow")
	t.add("max", "Max")
	t.add("min", "Min")

	// Element-wise unary.
	t.add("abs", "Abs")
	t.add("ceil", "Ceil")
	t.add("cos", "Cos")
	t.add("exp", "Exp")
	t.add("floor", "Floor")
	t.add("log", "Log")
	t.add("neg", "Neg")
	t.add("reciprocal", "Reciprocal")
	t.add("sin", "Sin")
	t.add("sqrt", "Sqrt")
	t.add("tan", "Tan")
	t.add("erf", "Erf")
	t.add("identity", "Identity")
	t.add("sign", "Sign")

	// Reductions.
	t.add("reduceSum", "ReduceSum")
	t.add("reduceMean", "ReduceMean")
	t.add("reduceMax", "ReduceMax")
	t.add("reduceMin", "ReduceMin")
	t.add("reduceProduct", "ReduceProd")
	t.add("reduceL1", "ReduceL1")
	t.add("reduceL2", "ReduceL2")
	t.add("reduceLogSum", "ReduceLogSum")
	t.add("reduceLogSumExp", "ReduceLogSumExp")
	t.add("reduceSumSquare", "ReduceSumSquare")

	// Comparison and logical.
	t.add("equal", "Equal")
	t.add("greater", "Greater")
	t.add("greaterOrEqual", "GreaterOrEqual")
	t.add("lesser", "Less")
	t.add("lesserOrEqual", "LessOrEqual")
	t.add("logicalAnd", "And")
	t.add("logicalOr", "Or")
	t.add("logicalNot", "Not")
	t.add("logicalXor", "Xor")

	// Tensor manipulation.
	t.add("concat", "Concat")
	t.add("expand", "Expand")
	t.add("gather", "Gather")
	t.add("pad", "Pad")
	t.add("reshape", "Reshape")
	t.add("slice", "Slice")
	t.add("split", "Split")
	t.add("squeeze", "Squeeze")
	t.add("tile", "Tile")
	t.add("transpose", "Transpose")
	t.add("unsqueeze", "Unsqueeze")
	t.add("where", "Where")
	t.add("triangular", "Trilu")
	t.add("resample2d", "Resize")

	// Quantization.
	t.add("quantizeLinear", "QuantizeLinear")
	t.add("dequantizeLinear", "DequantizeLinear")

	// Recurrent: the cell variants share the ONNX operator, and ONNX names translate back to the full layer.
	t.add("gru", "GRU")
	t.add("gruCell", "GRU")
	t.add("lstm", "LSTM")
	t.add("lstmCell", "LSTM")

	// Others.
	t.add("argMax", "ArgMax")
	t.add("argMin", "ArgMin")
	t.add("cast", "Cast")
	t.add("flatten", "Flatten")
	return t
}

func (t *OpNameTable) add(webnn, onnx string) {
	t.webnnToONNX[strings.ToLower(webnn)] = onnx
	onnxKey := strings.ToLower(onnx)
	if _, found := t.onnxToWebNN[onnxKey]; !found {
		t.onnxToWebNN[onnxKey] = webnn
	}
	t.pairs = append(t.pairs, [2]string{webnn, onnx})
}

// ToONNX returns the ONNX operator type for the WebNN operation name.
func (t *OpNameTable) ToONNX(webnnOp string) (string, bool) {
	onnx, found := t.webnnToONNX[strings.ToLower(webnnOp)]
	return onnx, found
}

// ToWebNN returns the WebNN operation name for the ONNX operator type.
func (t *OpNameTable) ToWebNN(onnxOp string) (string, bool) {
	webnn, found := t.onnxToWebNN[strings.ToLower(onnxOp)]
	return webnn, found
}

// Len returns the number of WebNN operations in the table.
func (t *OpNameTable) Len() int { return len(t.pairs) }

// Pairs returns the (WebNN, ONNX) name pairs in registration order.
func (t *OpNameTable) Pairs() [][2]string {
	return append([][2]string(nil), t.pairs...)
}
