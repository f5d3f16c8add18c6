package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestAttributes(t *testing.T) {
	scale := &Tensor{Name: "scale", Dims: []int64{1}, Data: Scalar(Float32, 2)}
	attrs := NewAttrBuilder().
		AddInt("axis", -1).
		AddInts("perm", 0, 2, 1).
		AddInts("empty").
		AddFloat("alpha", 0.5).
		AddFloats("scales", 1, 2).
		AddString("mode", "nearest").
		AddTensor("value", scale).
		Build()
	require.Len(t, attrs, 7)

	axis, found := attrs.GetInt("axis")
	require.True(t, found)
	assert.Equal(t, int64(-1), axis)
	perm, found := attrs.GetInts("perm")
	require.True(t, found)
	assert.Equal(t, []int64{0, 2, 1}, perm)
	alpha, _ := attrs.GetFloat("alpha")
	assert.Equal(t, float32(0.5), alpha)
	scales, _ := attrs.GetFloats("scales")
	assert.Equal(t, []float32{1, 2}, scales)
	mode, _ := attrs.GetString("mode")
	assert.Equal(t, "nearest", mode)
	value, found := attrs.GetTensor("value")
	require.True(t, found)
	assert.Same(t, scale, value)

	// An empty list is not found, but the attribute exists.
	_, found = attrs.GetInts("empty")
	assert.False(t, found)
	_, found = attrs.Get("empty")
	assert.True(t, found)

	// Wrong type or missing.
	_, found = attrs.GetInt("alpha")
	assert.False(t, found)
	_, found = attrs.GetString("axis")
	assert.False(t, found)
	_, found = attrs.GetInt("missing")
	assert.False(t, found)
}

func TestRequireAttr(t *testing.T) {
	attrs := NewAttrBuilder().AddInt("axis", 2).Build()
	axis, found := attrs.GetInt("axis")
	axis, err := RequireAttr("axis", axis, found)
	require.NoError(t, err)
	assert.Equal(t, int64(2), axis)

	keepDims, found := attrs.GetInt("keepdims")
	_, err = RequireAttr("keepdims", keepDims, found)
	require.Error(t, err)
	assert.Equal(t, "missing attribute: keepdims", err.Error())
}

func TestParseJSON(t *testing.T) {
	s := &structpb.Struct{}
	require.NoError(t, protojson.Unmarshal([]byte(`{"axes": [0, 2, "x", 1.5], "scales": [1, 0.5], "name": "n"}`), s))
	ints, found := ParseJSONInts(s, "axes")
	require.True(t, found)
	assert.Equal(t, []int64{0, 2}, ints)
	floats, found := ParseJSONFloats(s, "scales")
	require.True(t, found)
	assert.Equal(t, []float32{1, 0.5}, floats)
	_, found = ParseJSONInts(s, "name")
	assert.False(t, found)
	_, found = ParseJSONInts(s, "missing")
	assert.False(t, found)
	_, found = ParseJSONInts(nil, "axes")
	assert.False(t, found)
}

func TestAttributesFromStruct(t *testing.T) {
	s := &structpb.Struct{}
	require.NoError(t, protojson.Unmarshal([]byte(`{
		"perm": [1, 0], "alpha": 0.2, "axis": 1, "keepdims": false, "mode": "constant", "scales": [1, 2.5],
		"value": {"dataType": "int64", "dims": [2], "data": [3, 4]}
	}`), s))
	attrs, err := AttributesFromStruct(s)
	require.NoError(t, err)
	names := sliceMap(attrs, func(attr *Attribute) string { return attr.Name })
	assert.Equal(t, []string{"alpha", "axis", "keepdims", "mode", "perm", "scales", "value"}, names)
	types := sliceMap(attrs, func(attr *Attribute) AttributeType { return attr.Type })
	assert.Equal(t, []AttributeType{AttributeFloat, AttributeInt, AttributeInt, AttributeString, AttributeInts,
		AttributeFloats, AttributeTensor}, types)

	keepDims, _ := attrs.GetInt("keepdims")
	assert.Equal(t, int64(0), keepDims)
	value, found := attrs.GetTensor("value")
	require.True(t, found)
	assert.Equal(t, "value", value.Name)
	values, err := value.Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, values)

	require.NoError(t, protojson.Unmarshal([]byte(`{"bad": [1, "x"]}`), s))
	_, err = AttributesFromStruct(s)
	require.Error(t, err)
}

func TestNodeAttributeHelpers(t *testing.T) {
	node := &Node{
		Name: "n", OpType: "ReduceSum", Input: []string{"x"}, Output: []string{"y"},
		Attribute: NewAttrBuilder().AddInt("keepdims", 0).AddInt("axis", 3).AddFloat("alpha", 1).Build(),
	}
	assert.Equal(t, int64(3), mustGetIntAttr(node, "axis"))
	assert.Equal(t, []int64{3}, mustGetIntsAttr(node, "axis"))
	assert.False(t, getBoolAttrOr(node, "keepdims", true))
	assert.True(t, getBoolAttrOr(node, "noop", true))
	assert.Equal(t, int64(7), getIntAttrOr(node, "missing", 7))
	assert.Equal(t, []int64{1}, getIntsAttrOr(node, "axes", []int64{1}))
	assert.Panics(t, func() { mustGetIntAttr(node, "missing") })
	assert.Panics(t, func() { getIntAttrOr(node, "alpha", 0) })
}
