package onnx

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/support/sets"
)

// nonConstantDependencies returns the graph inputs the value of nodeOutputName depends on.
// Initializers and Constant nodes are constant. The output of Shape depends only on the shape of its input, so
// it's not followed.
func (m *Model) nonConstantDependencies(nodeOutputName string) (inputs []string) {
	visited := sets.Make[string]()
	return m.recursiveDependencies(nodeOutputName, visited, inputs, false)
}

// inputDependencies returns every graph input the shape or value of nodeOutputName depends on,
// following through Shape nodes.
func (m *Model) inputDependencies(nodeOutputName string) (inputs []string) {
	visited := sets.Make[string]()
	return m.recursiveDependencies(nodeOutputName, visited, inputs, true)
}

// recursiveDependencies is the recursive implementation of nonConstantDependencies and inputDependencies.
func (m *Model) recursiveDependencies(name string, visited sets.Set[string], inputs []string, followShape bool) []string {
	visited.Insert(name)
	if _, isInitializer := m.initializerByName[name]; isInitializer {
		return inputs
	}
	if m.inputsNameSet.Has(name) {
		return append(inputs, name)
	}
	node := m.nodeOutputToNode[name]
	if node == nil || (node.OpType == "Shape" && !followShape) {
		return inputs
	}
	for _, input := range node.Input {
		if input == "" || visited.Has(input) {
			continue
		}
		inputs = m.recursiveDependencies(input, visited, inputs, followShape)
	}
	return inputs
}

// RequiredBindings returns the symbolic dimensions, not bound in the last propagation, of the graph inputs the value
// depends on. Binding them (see WithBindings) is usually what it takes for an unresolved shape to resolve.
func (sr *ShapeResolver) RequiredBindings(name string) []string {
	bindings := sr.Bindings()
	var names []string
	for _, input := range sr.model.inputDependencies(name) {
		shape, found := sr.GetShape(input)
		if !found {
			continue
		}
		for _, symbol := range shape.SymbolicNames() {
			if _, bound := bindings[symbol]; !bound && !slices.Contains(names, symbol) {
				names = append(names, symbol)
			}
		}
	}
	slices.Sort(names)
	return names
}
