package onnx

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const externalModel = `{"graph": {
	"inputs": [{"name": "x", "dataType": "float32", "shape": ["batch", 3]}],
	"initializers": [
		{"name": "target", "dataType": "int64", "dims": [2], "externalData": {"location": "weights.bin"}},
		{"name": "w", "dataType": "float32", "dims": [3], "externalData": {"location": "weights.bin", "offset": 16, "length": 12}}
	],
	"nodes": [{"opType": "Reshape", "inputs": ["x", "target"], "outputs": ["y"]}]
}}`

func writeExternalModel(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var weights []byte
	weights = binary.LittleEndian.AppendUint64(weights, 0)
	weights = binary.LittleEndian.AppendUint64(weights, uint64(3))
	for _, v := range []float32{1, 2, 3} {
		weights, _ = binary.Append(weights, binary.LittleEndian, v)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weights.bin"), weights, 0o644))
	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(externalModel), 0o644))
	return modelPath
}

func TestExternalData(t *testing.T) {
	modelPath := writeExternalModel(t)
	m, err := ReadFile(modelPath)
	require.NoError(t, err)

	// Only integer tensors are loaded by ReadFile.
	target, _ := m.Initializer("target")
	require.True(t, target.IsLoaded())
	values, err := target.Int64s()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 3}, values)
	w, _ := m.Initializer("w")
	require.False(t, w.IsLoaded())
	_, err = w.Int64s()
	require.Error(t, err)

	require.NoError(t, m.LoadExternalData(filepath.Dir(modelPath), nil))
	require.True(t, w.IsLoaded())
	assert.Equal(t, 3, w.Data.Len())
	assert.Equal(t, []byte{0, 0, 0x80, 0x3F}, w.Data.Raw[:4])

	sr := NewShapeResolver(m).WithBatchSize(4).WithStrict(true)
	require.NoError(t, sr.PropagateShapes(t.Context()))
	requireResolverShape(t, sr, "y", 4, 3)
}

func TestExternalDataErrors(t *testing.T) {
	modelPath := writeExternalModel(t)
	m, err := Parse([]byte(externalModel))
	require.NoError(t, err)

	// Missing file.
	require.Error(t, m.LoadExternalData(t.TempDir(), nil))

	// Length mismatch.
	w, _ := m.Initializer("w")
	w.External.Length = 8
	require.ErrorContains(t, m.LoadExternalData(filepath.Dir(modelPath), nil), "doesn't match")

	// Read past the end of the file.
	w.External.Length, w.External.Offset = 0, 20
	require.Error(t, m.LoadExternalData(filepath.Dir(modelPath), nil))

	// Locations must stay inside the model directory.
	reader := NewExternalDataReader(filepath.Dir(modelPath))
	require.Error(t, reader.ReadInto(&ExternalData{Location: "../weights.bin"}, make([]byte, 4)))
	require.NoError(t, reader.Close())

	_, err = Parse([]byte(`{"graph": {"initializers": [{"name": "w", "dataType": "int64", "dims": [1], "externalData": {}}]}}`))
	require.Error(t, err)
	_, err = Parse([]byte(`{"graph": {"initializers": [{"name": "w", "dataType": "int64", "dims": [1], "externalData": {"location": "a", "offset": -1}}]}}`))
	require.Error(t, err)
}
