package onnx

import (
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
)

// ShapeProvenance classifies a value by what its shape is derived from, which tells the converter whether the
// shape is fixed, fixed once the symbolic dimensions are bound, or only known when the graph runs.
type ShapeProvenance int

const (
	// ProvenanceUnknown is used for names the graph does not define.
	ProvenanceUnknown ShapeProvenance = iota

	// ProvenanceConstant values derive only from initializers and Constant nodes.
	ProvenanceConstant

	// ProvenanceInputShape values derive from a graph input, so their shape may be symbolic.
	ProvenanceInputShape

	// ProvenanceDataDependent values go through an operator like NonZero.
	ProvenanceDataDependent
)

var provenanceNames = [...]string{"unknown", "constant", "input_shape", "data_dependent"}

func (p ShapeProvenance) String() string {
	if p < 0 || int(p) >= len(provenanceNames) {
		return "invalid"
	}
	return provenanceNames[p]
}

// ShapeInfo describes one value of the graph, as reported by ShapeResolver.ShapeInfo.
type ShapeInfo struct {
	Provenance ShapeProvenance

	// Shape is only meaningful if Known.
	Shape shapeinference.Shape
	Known bool

	// SourceOp is the operator type of the producer, empty for graph inputs and initializers.
	SourceOp string
}

// IsDataDependent is a shortcut for Provenance == ProvenanceDataDependent.
func (si *ShapeInfo) IsDataDependent() bool {
	return si.Provenance == ProvenanceDataDependent
}

// IsFullyStatic returns whether the shape is known and has no symbolic dimension.
func (si *ShapeInfo) IsFullyStatic() bool {
	return si.Known && si.Shape.IsFullyStatic()
}

// ShapeInfo returns what is known about the shape of the value name. Call it after PropagateShapes.
func (sr *ShapeResolver) ShapeInfo(name string) *ShapeInfo {
	info := &ShapeInfo{Provenance: sr.provenance(name, sets.Make[string]())}
	info.Shape, info.Known = sr.GetShape(name)
	if producer := sr.model.Producer(name); producer != nil {
		info.SourceOp = producer.OpType
	}
	return info
}

// provenance walks back to the graph inputs and initializers. A node output takes the largest provenance of
// its inputs, in the order of the constants above.
func (sr *ShapeResolver) provenance(name string, visited sets.Set[string]) ShapeProvenance {
	if p, cached := sr.provenanceCache[name]; cached {
		return p
	}
	if _, found := sr.model.Initializer(name); found {
		return ProvenanceConstant
	}
	if sr.model.inputsNameSet.Has(name) {
		return ProvenanceInputShape
	}
	producer := sr.model.Producer(name)
	if producer == nil || visited.Has(name) {
		return ProvenanceUnknown
	}
	visited.Insert(name)

	result := ProvenanceConstant
	if IsDataDependentOp(producer.OpType) {
		result = ProvenanceDataDependent
	} else {
		for _, input := range nonEmpty(producer.Input) {
			result = max(result, sr.provenance(input, visited))
		}
	}
	if sr.provenanceCache != nil {
		sr.provenanceCache[name] = result
	}
	return result
}
