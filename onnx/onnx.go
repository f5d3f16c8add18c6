// Package onnx reads ONNX graph descriptions and propagates tensor shapes through them, in preparation for the
// conversion of the graph to WebNN.
//
//   - Parse: converts a JSON description of an ONNX model to a Model.
//   - ReadFile: reads a file and calls Parse. It returns a Model.
//   - Model: object holding the graph (inputs, outputs, initializers and nodes) of an ONNX model.
//   - ShapeResolver: walks the nodes of a Model in topological order, inferring the shape of every value with
//     package shapeinference.
//
// It also holds the WebNN/ONNX translation tables used during conversion: operator names (OpNames), data types
// (DataType, ONNXDataType), attributes and identifiers.
package onnx

import (
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/pkg/errors"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Model represents a parsed ONNX model.
type Model struct {
	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	DocString       string
	Metadata        []MetadataProp
	Graph           *Graph

	nodeOutputToNode  map[string]*Node
	initializerByName map[string]*Tensor
	inputsNameSet     sets.Set[string]
}

// MetadataProp is a key/value pair of model metadata.
type MetadataProp struct {
	Key, Value string
}

// Graph is the main graph of a model.
type Graph struct {
	Name         string
	Inputs       []*ValueInfo
	Outputs      []*ValueInfo
	Initializers []*Tensor
	Nodes        []*Node
}

// ValueInfo describes a graph input or output. If HasShape is false, the shape is unknown (not even the rank).
type ValueInfo struct {
	Name     string
	DataType ONNXDataType
	Shape    shapeinference.Shape
	HasShape bool
}

// Node is one operator application in the graph. Empty input names denote omitted optional inputs.
type Node struct {
	Name      string
	OpType    string
	Domain    string
	Input     []string
	Output    []string
	Attribute Attributes
}

// NewModel creates a Model for the graph and indexes it.
//
// Nodes without a name are given a unique one, based on their operator type.
// It fails if the graph has nodes without outputs or values produced more than once.
func NewModel(graph *Graph) (*Model, error) {
	m := &Model{Graph: graph}
	if err := m.index(); err != nil {
		return nil, err
	}
	return m, nil
}

// index builds the lookup tables of the model.
func (m *Model) index() error {
	if m.Graph == nil {
		m.Graph = &Graph{}
	}
	g := m.Graph
	m.nodeOutputToNode = make(map[string]*Node, len(g.Nodes))
	m.initializerByName = make(map[string]*Tensor, len(g.Initializers))
	m.inputsNameSet = sets.Make[string](len(g.Inputs))
	produced := sets.Make[string]()
	for _, input := range g.Inputs {
		m.inputsNameSet.Insert(input.Name)
		produced.Insert(input.Name)
	}
	for _, t := range g.Initializers {
		m.initializerByName[t.Name] = t
		produced.Insert(t.Name)
	}

	var namer UniqueNamer
	nodeNames := sets.Make[string](len(g.Nodes))
	for _, node := range g.Nodes {
		if node.OpType == "" {
			return errors.Errorf("node %q has no operator type", node.Name)
		}
		if len(node.Output) == 0 {
			return errors.Errorf("ONNX %s has no outputs", nodeToString(node))
		}
		for node.Name == "" || nodeNames.Has(node.Name) {
			node.Name = namer.Next(node.OpType)
		}
		nodeNames.Insert(node.Name)
		for _, output := range node.Output {
			if output == "" {
				continue
			}
			if produced.Has(output) {
				return errors.Errorf("value %q produced by ONNX %s is defined more than once", output, nodeToString(node))
			}
			produced.Insert(output)
			m.nodeOutputToNode[output] = node
		}
	}
	return nil
}

// Parse parses the JSON description of an ONNX model:
//
//	{
//	  "producerName": "pytorch", "opsetVersion": 17,
//	  "graph": {
//	    "inputs": [{"name": "x", "dataType": "float32", "shape": ["batch", 3, 224, 224]}],
//	    "outputs": [{"name": "y"}],
//	    "initializers": [{"name": "w", "dataType": "float32", "dims": [3, 3], "data": [...]}],
//	    "nodes": [{"opType": "Relu", "inputs": ["x"], "outputs": ["y"], "attributes": {}}]
//	  }
//	}
//
// Shape entries are integers (bound dimensions) or strings (symbolic dimensions). Negative or null entries are
// unnamed dynamic dimensions, and are given a unique symbolic name.
func Parse(contents []byte) (*Model, error) {
	root := &structpb.Struct{}
	if err := protojson.Unmarshal(contents, root); err != nil {
		return nil, errors.Wrap(err, "failed to parse ONNX model JSON")
	}
	m, err := modelFromStruct(root)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to parse ONNX model")
	}
	return m, nil
}

// ReadFile parses an ONNX model description file.
// The integer initializers stored in external data files are loaded (see Model.LoadExternalData).
func ReadFile(filePath string) (*Model, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ONNX model file in %s", filePath)
	}
	m, err := Parse(contents)
	if err != nil {
		return nil, errors.WithMessagef(err, "in file %s", filePath)
	}
	if err := m.LoadExternalData(filepath.Dir(filePath), isIntegerTensor); err != nil {
		return nil, errors.WithMessagef(err, "in file %s", filePath)
	}
	return m, nil
}

// InputsNames returns the names of the graph inputs that are not initializers.
func (m *Model) InputsNames() []string {
	var names []string
	for _, input := range m.Graph.Inputs {
		if _, isInitializer := m.initializerByName[input.Name]; !isInitializer {
			names = append(names, input.Name)
		}
	}
	return names
}

// OutputsNames returns the names of the graph outputs.
func (m *Model) OutputsNames() []string {
	return sliceMap(m.Graph.Outputs, func(vi *ValueInfo) string { return vi.Name })
}

// Initializer returns the graph initializer with the given name.
func (m *Model) Initializer(name string) (*Tensor, bool) {
	t, found := m.initializerByName[name]
	return t, found
}

// Producer returns the node that outputs the value name, or nil for graph inputs, initializers and unknown names.
func (m *Model) Producer(name string) *Node {
	return m.nodeOutputToNode[name]
}

func sortedKeys(s *structpb.Struct) []string {
	keys := make([]string, 0, len(s.GetFields()))
	for key := range s.GetFields() {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func jsonStrings(s *structpb.Struct, key string) ([]string, error) {
	list, ok := jsonList(s, key)
	if !ok {
		return nil, nil
	}
	values := make([]string, len(list.Values))
	for i, v := range list.Values {
		str, isString := v.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, errors.Errorf("%s[%d] is not a string", key, i)
		}
		values[i] = str.StringValue
	}
	return values, nil
}

func jsonStructs(s *structpb.Struct, key string) ([]*structpb.Struct, error) {
	list, ok := jsonList(s, key)
	if !ok {
		return nil, nil
	}
	values := make([]*structpb.Struct, len(list.Values))
	for i, v := range list.Values {
		values[i] = v.GetStructValue()
		if values[i] == nil {
			return nil, errors.Errorf("%s[%d] is not an object", key, i)
		}
	}
	return values, nil
}

func modelFromStruct(root *structpb.Struct) (*Model, error) {
	fields := root.GetFields()
	m := &Model{
		IRVersion:       int64(fields["irVersion"].GetNumberValue()),
		OpsetVersion:    int64(fields["opsetVersion"].GetNumberValue()),
		ProducerName:    fields["producerName"].GetStringValue(),
		ProducerVersion: fields["producerVersion"].GetStringValue(),
		DocString:       fields["docString"].GetStringValue(),
	}
	if metadata := fields["metadata"].GetStructValue(); metadata != nil {
		for _, key := range sortedKeys(metadata) {
			m.Metadata = append(m.Metadata, MetadataProp{Key: key, Value: metadata.Fields[key].GetStringValue()})
		}
	}

	graphStruct := fields["graph"].GetStructValue()
	if graphStruct == nil {
		return nil, errors.New("missing \"graph\" object")
	}
	var err error
	m.Graph, err = graphFromStruct(graphStruct)
	if err != nil {
		return nil, err
	}
	if err = m.index(); err != nil {
		return nil, err
	}
	return m, nil
}

func graphFromStruct(s *structpb.Struct) (*Graph, error) {
	g := &Graph{Name: s.GetFields()["name"].GetStringValue()}
	var dimNamer UniqueNamer
	for _, key := range []string{"inputs", "outputs"} {
		infos, err := jsonStructs(s, key)
		if err != nil {
			return nil, err
		}
		for i, info := range infos {
			vi, err := valueInfoFromStruct(info, &dimNamer)
			if err != nil {
				return nil, errors.WithMessagef(err, "graph %s[%d]", key, i)
			}
			if key == "inputs" {
				g.Inputs = append(g.Inputs, vi)
			} else {
				g.Outputs = append(g.Outputs, vi)
			}
		}
	}

	initializers, err := jsonStructs(s, "initializers")
	if err != nil {
		return nil, err
	}
	for i, initStruct := range initializers {
		t, err := tensorFromStruct("", initStruct)
		if err != nil {
			return nil, errors.WithMessagef(err, "graph initializers[%d]", i)
		}
		if t.Name == "" {
			return nil, errors.Errorf("graph initializers[%d] has no name", i)
		}
		g.Initializers = append(g.Initializers, t)
	}

	nodes, err := jsonStructs(s, "nodes")
	if err != nil {
		return nil, err
	}
	for i, nodeStruct := range nodes {
		node, err := nodeFromStruct(nodeStruct)
		if err != nil {
			return nil, errors.WithMessagef(err, "graph nodes[%d]", i)
		}
		g.Nodes = append(g.Nodes, node)
	}
	return g, nil
}

func valueInfoFromStruct(s *structpb.Struct, dimNamer *UniqueNamer) (*ValueInfo, error) {
	fields := s.GetFields()
	vi := &ValueInfo{Name: fields["name"].GetStringValue()}
	if vi.Name == "" {
		return nil, errors.New("value has no name")
	}
	if dtValue, found := fields["dataType"]; found {
		var err error
		vi.DataType, err = dataTypeFromJSON(dtValue)
		if err != nil {
			return nil, errors.WithMessagef(err, "value %q", vi.Name)
		}
	}
	shapeList, hasShape := jsonList(s, "shape")
	if !hasShape {
		return vi, nil
	}
	vi.HasShape = true
	dims := make([]shapeinference.Dim, len(shapeList.Values))
	for axis, v := range shapeList.Values {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			if kind.StringValue == "" {
				dims[axis] = shapeinference.Symbolic(dimNamer.Next("unk_"))
			} else {
				dims[axis] = shapeinference.Symbolic(kind.StringValue)
			}
		case *structpb.Value_NumberValue:
			extent, isInt := jsonInt(v)
			if !isInt {
				return nil, errors.Errorf("value %q has non-integer dimension %v at axis %d", vi.Name, kind.NumberValue, axis)
			}
			if extent < 0 {
				dims[axis] = shapeinference.Symbolic(dimNamer.Next("unk_"))
			} else {
				dims[axis] = shapeinference.Bound(extent)
			}
		case *structpb.Value_NullValue:
			dims[axis] = shapeinference.Symbolic(dimNamer.Next("unk_"))
		default:
			return nil, errors.Errorf("value %q has invalid dimension %v at axis %d", vi.Name, v, axis)
		}
	}
	vi.Shape = shapeinference.FromDims(dims)
	return vi, nil
}

func nodeFromStruct(s *structpb.Struct) (*Node, error) {
	fields := s.GetFields()
	node := &Node{
		Name:   fields["name"].GetStringValue(),
		OpType: fields["opType"].GetStringValue(),
		Domain: fields["domain"].GetStringValue(),
	}
	var err error
	if node.Input, err = jsonStrings(s, "inputs"); err != nil {
		return nil, err
	}
	if node.Output, err = jsonStrings(s, "outputs"); err != nil {
		return nil, err
	}
	if node.Attribute, err = AttributesFromStruct(fields["attributes"].GetStructValue()); err != nil {
		return nil, errors.WithMessagef(err, "ONNX %s", nodeToString(node))
	}
	return node, nil
}

// usedOpTypes returns the distinct operator types of the graph, sorted.
func (m *Model) usedOpTypes() []string {
	opTypes := sets.Make[string]()
	for _, node := range m.Graph.Nodes {
		opTypes.Insert(node.OpType)
	}
	types := make([]string, 0, len(opTypes))
	for opType := range opTypes {
		types = append(types, opType)
	}
	slices.Sort(types)
	return types
}
