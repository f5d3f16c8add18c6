package onnx

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/pkg/errors"
)

// sliceMap executes the given function sequentially for every element on in, and returns a mapped slice.
func sliceMap[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// nodeToString returns a one-line description of the node, used in error messages.
func nodeToString(node *Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s node %q", node.OpType, node.Name)
	if node.Domain != "" {
		fmt.Fprintf(&sb, " (domain %q)", node.Domain)
	}
	fmt.Fprintf(&sb, " [%s] -> [%s]", strings.Join(node.Input, ", "), strings.Join(node.Output, ", "))
	return sb.String()
}

// sortedGraph returns a DAG sorting of the graph, so the returned nodes can be visited in order.
//
// Graph inputs and initializers are available from the start, and so are omitted optional inputs ("").
// Among the nodes ready at the same time, the declaration order is preserved.
//
// It returns an error if some node can never be visited, either because it consumes a value nobody produces or
// because of a cycle.
func (m *Model) sortedGraph() ([]*Node, error) {
	nodes := m.Graph.Nodes
	sortedNodes := make([]*Node, 0, len(nodes))

	// Values available before any node is visited.
	doneOutputs := sets.MakeWith("")
	for _, input := range m.Graph.Inputs {
		doneOutputs.Insert(input.Name)
	}
	for _, t := range m.Graph.Initializers {
		doneOutputs.Insert(t.Name)
	}

	// Build reverse dependency map, and count the missing inputs of each node.
	outputToDependants := make(map[string][]int)
	missingCount := make([]int, len(nodes))
	for nodeIdx, node := range nodes {
		seen := sets.Make[string](len(node.Input))
		for _, input := range node.Input {
			if doneOutputs.Has(input) || seen.Has(input) {
				continue
			}
			seen.Insert(input)
			outputToDependants[input] = append(outputToDependants[input], nodeIdx)
			missingCount[nodeIdx]++
		}
	}

	var ready []int
	for nodeIdx := range nodes {
		if missingCount[nodeIdx] == 0 {
			ready = append(ready, nodeIdx)
		}
	}
	for len(ready) > 0 {
		nodeIdx := ready[0]
		ready = ready[1:]
		node := nodes[nodeIdx]
		sortedNodes = append(sortedNodes, node)
		var nowReady []int
		for _, output := range node.Output {
			for _, dep := range outputToDependants[output] {
				missingCount[dep]--
				if missingCount[dep] == 0 {
					nowReady = append(nowReady, dep)
				}
			}
			delete(outputToDependants, output)
		}
		slices.Sort(nowReady)
		ready = append(ready, nowReady...)
	}

	if len(sortedNodes) != len(nodes) {
		var dangling []string
		for value := range outputToDependants {
			if m.nodeOutputToNode[value] == nil {
				dangling = append(dangling, value)
			}
		}
		slices.Sort(dangling)
		if len(dangling) > 0 {
			return nil, errors.Errorf("sorting operations graph failed: values %q are used but never produced "+
				"(%d out of %d nodes are reachable)", dangling, len(sortedNodes), len(nodes))
		}
		return nil, errors.Errorf("sorting operations graph failed: found a cycle, %d out of %d nodes are reachable",
			len(sortedNodes), len(nodes))
	}
	return sortedNodes, nil
}
