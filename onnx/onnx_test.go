package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests based on the `testdata/linear.json` minimalistic model.
func TestParse(t *testing.T) {
	m, err := ReadFile("testdata/linear.json")
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, m.InputsNames())
	require.Equal(t, []string{"y"}, m.OutputsNames())
	assert.Equal(t, int64(8), m.IRVersion)
	assert.Equal(t, int64(17), m.OpsetVersion)
	assert.Equal(t, []MetadataProp{{Key: "license", Value: "mit"}}, m.Metadata)

	x := m.Graph.Inputs[0]
	require.True(t, x.HasShape)
	assert.Equal(t, ONNXFloat, x.DataType)
	assert.Equal(t, "[batch_size, 5]", x.Shape.String())

	a, found := m.Initializer("A")
	require.True(t, found)
	assert.Equal(t, []int64{5, 1}, a.Dims)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, a.Data.Float32s)
	b, found := m.Initializer("B")
	require.True(t, found)
	require.True(t, b.Data.IsRaw())
	assert.Equal(t, 1, b.Data.Len())
	assert.Equal(t, Float32, b.DataType())

	sortedNodes, err := m.sortedGraph()
	require.NoError(t, err)
	require.Len(t, sortedNodes, 2)
	require.Equal(t, "XA", sortedNodes[0].Name)
	require.Equal(t, "Y", sortedNodes[1].Name)
	assert.Same(t, sortedNodes[1], m.Producer("y"))
	assert.Nil(t, m.Producer("x"))

	desc := m.String()
	assert.Contains(t, desc, "pytorch / 2.1.0")
	assert.Contains(t, desc, `[]string{"Add", "MatMul"}`)
	assert.Contains(t, desc, `"x": FLOAT [batch_size, 5]`)
	assert.Contains(t, desc, "license=mit")
}

func TestParseDimensions(t *testing.T) {
	m, err := Parse([]byte(`{"graph": {
		"inputs": [{"name": "a", "dataType": "float32", "shape": [-1, null, "", "seq", 3]}, {"name": "b"}],
		"outputs": [{"name": "c", "shape": [null]}],
		"nodes": [{"opType": "Add", "inputs": ["a", "b"], "outputs": ["c"]}]
	}}`))
	require.NoError(t, err)
	assert.Equal(t, "[unk__0, unk__1, unk__2, seq, 3]", m.Graph.Inputs[0].Shape.String())
	assert.False(t, m.Graph.Inputs[1].HasShape)
	assert.Equal(t, "[unk__3]", m.Graph.Outputs[0].Shape.String())

	_, err = Parse([]byte(`{"graph": {"inputs": [{"name": "a", "shape": [1.5]}]}}`))
	require.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	for name, contents := range map[string]string{
		"invalid JSON":        `{"graph": `,
		"missing graph":       `{"irVersion": 8}`,
		"missing op type":     `{"graph": {"nodes": [{"inputs": ["x"], "outputs": ["y"]}]}}`,
		"no outputs":          `{"graph": {"nodes": [{"opType": "Relu", "inputs": ["x"]}]}}`,
		"duplicate output":    `{"graph": {"inputs": [{"name": "x"}], "nodes": [{"opType": "Relu", "inputs": ["x"], "outputs": ["x"]}]}}`,
		"unnamed value":       `{"graph": {"inputs": [{"shape": [1]}]}}`,
		"bad data type":       `{"graph": {"initializers": [{"name": "w", "dataType": "STRING", "dims": [1], "data": [1]}]}}`,
		"wrong element count": `{"graph": {"initializers": [{"name": "w", "dataType": "int64", "dims": [3], "data": [1, 2]}]}}`,
		"non-integer data":    `{"graph": {"initializers": [{"name": "w", "dataType": "int32", "dims": [1], "data": [1.5]}]}}`,
	} {
		_, err := Parse([]byte(contents))
		require.Error(t, err, name)
	}
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(&Graph{
		Inputs: []*ValueInfo{{Name: "x"}},
		Nodes: []*Node{
			{OpType: "Relu", Input: []string{"x"}, Output: []string{"r"}},
			{OpType: "Add", Input: []string{"r", "r"}, Output: []string{"y"}},
			{Name: "Relu_2", OpType: "Relu", Input: []string{"y"}, Output: []string{"z"}},
			{Name: "Relu_2", OpType: "Relu", Input: []string{"z"}, Output: []string{"w"}},
		},
	})
	require.NoError(t, err)
	names := sliceMap(m.Graph.Nodes, func(node *Node) string { return node.Name })
	assert.Equal(t, []string{"Relu_0", "Add_1", "Relu_2", "Relu_3"}, names)
}

func TestSortedGraph(t *testing.T) {
	// Nodes declared out of order.
	m, err := NewModel(&Graph{
		Inputs:       []*ValueInfo{{Name: "x"}},
		Initializers: []*Tensor{{Name: "w", Dims: []int64{1}, Data: Scalar(Float32, 1)}},
		Nodes: []*Node{
			{Name: "c", OpType: "Add", Input: []string{"a", "b"}, Output: []string{"c"}},
			{Name: "b", OpType: "Clip", Input: []string{"x", "", "w"}, Output: []string{"b"}},
			{Name: "a", OpType: "Relu", Input: []string{"x"}, Output: []string{"a"}},
		},
	})
	require.NoError(t, err)
	sortedNodes, err := m.sortedGraph()
	require.NoError(t, err)
	names := sliceMap(sortedNodes, func(node *Node) string { return node.Name })
	assert.Equal(t, []string{"b", "a", "c"}, names)

	// Dangling input.
	m, err = NewModel(&Graph{Nodes: []*Node{{OpType: "Relu", Input: []string{"missing"}, Output: []string{"y"}}}})
	require.NoError(t, err)
	_, err = m.sortedGraph()
	require.ErrorContains(t, err, "never produced")

	// Cycle.
	m, err = NewModel(&Graph{Nodes: []*Node{
		{OpType: "Relu", Input: []string{"b"}, Output: []string{"a"}},
		{OpType: "Relu", Input: []string{"a"}, Output: []string{"b"}},
	}})
	require.NoError(t, err)
	_, err = m.sortedGraph()
	require.ErrorContains(t, err, "cycle")
}
