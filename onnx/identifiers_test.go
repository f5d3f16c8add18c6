package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForWebNN(t *testing.T) {
	testCases := map[string]string{
		"onnx::MatMul_0":      "onnx__MatMul_0",
		"encoder.layer.0/out": "encoder_layer_0_out",
		"a:b":                 "a_b",
		"plain_name":          "plain_name",
		"":                    "",
	}
	for input, want := range testCases {
		got := SanitizeForWebNN(input)
		assert.Equal(t, want, got, "SanitizeForWebNN(%q)", input)
	}
}

func TestIsValidWebNNIdentifier(t *testing.T) {
	for _, name := range []string{"x", "_x", "X1", "onnx__MatMul_0"} {
		assert.True(t, IsValidWebNNIdentifier(name), name)
	}
	for _, name := range []string{"", "1x", "a.b", "a-b", "a b", "é"} {
		assert.False(t, IsValidWebNNIdentifier(name), name)
	}
	assert.True(t, IsValidWebNNIdentifier(SanitizeForWebNN("model/layer.0:out")))
}

func TestUniqueNamer(t *testing.T) {
	var namer UniqueNamer
	assert.Equal(t, "Add_0", namer.Next("Add"))
	assert.Equal(t, "Add_1", namer.Next("Add"))
	assert.Equal(t, "Relu_2", namer.Next("Relu"))
}

func TestSafeVarName(t *testing.T) {
	assert.Equal(t, "encoder|layer|weight", SafeVarName("encoder/layer/weight"))
	assert.Equal(t, "bias", SafeVarName("bias"))
}
