package onnx

import (
	"context"
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/pkg/errors"
	"github.com/rustnn/webnn-onnx-utils/internal/togomlx"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"k8s.io/klog/v2"
)

var (
	// ErrUnsupportedOp is returned for nodes whose operator has no shape rule.
	ErrUnsupportedOp = errors.New("unsupported operator")

	// ErrNotConstant is returned when an operand that must be known at conversion time (a Reshape target,
	// Squeeze/Unsqueeze axes, ...) is not a constant.
	ErrNotConstant = errors.New("operand is not a constant")

	// ErrDataDependent is returned for operators whose output shape depends on the values of their inputs.
	ErrDataDependent = errors.New("output shape depends on input values")
)

// ShapeResolver resolves the shapes of all values of a Model before conversion to WebNN.
//
// Shapes are seeded from the graph inputs (possibly with symbolic dimensions) and the initializers, and then
// propagated through the nodes in topological order with a shapeinference.Context.
//
// Configure it with the With* methods, and then call PropagateShapes.
type ShapeResolver struct {
	model *Model

	bindings  shapeinference.Bindings
	batchSize int64
	strict    bool

	// inference holds the shapes inferred so far.
	inference *shapeinference.Context

	// dtypes of the values, as far as they are known.
	dtypes map[string]ONNXDataType

	// constants holds the values of integer constants: initializers, Constant nodes and values derived from
	// them (e.g. the output of Shape for resolved inputs).
	constants map[string][]int64

	// unresolved maps values whose shape could not be inferred to the reason.
	unresolved *orderedmap.OrderedMap[string, error]

	provenanceCache map[string]ShapeProvenance

	// Whether shape propagation has been run.
	propagated bool
}

// NewShapeResolver creates a new ShapeResolver for the given model.
func NewShapeResolver(m *Model) *ShapeResolver {
	return &ShapeResolver{model: m}
}

// WithBindings sets the values of symbolic dimensions. It returns the ShapeResolver itself, so calls can be
// chained.
func (sr *ShapeResolver) WithBindings(bindings shapeinference.Bindings) *ShapeResolver {
	sr.bindings = bindings.Clone()
	sr.propagated = false
	return sr
}

// WithBatchSize binds the symbolic leading dimension of every graph input to batchSize, unless that name is
// already bound by WithBindings. A value <= 0 disables it.
func (sr *ShapeResolver) WithBatchSize(batchSize int64) *ShapeResolver {
	sr.batchSize = batchSize
	sr.propagated = false
	return sr
}

// WithStrict configures whether PropagateShapes fails on the first node whose shape cannot be inferred.
// By default (not strict) such failures are logged, the outputs are reported by Unresolved, and
// propagation continues.
func (sr *ShapeResolver) WithStrict(strict bool) *ShapeResolver {
	sr.strict = strict
	sr.propagated = false
	return sr
}

// Model returns the model being resolved.
func (sr *ShapeResolver) Model() *Model { return sr.model }

// effectiveBindings returns the bindings given by WithBindings plus those implied by WithBatchSize.
func (sr *ShapeResolver) effectiveBindings() (shapeinference.Bindings, error) {
	bindings := sr.bindings.Clone()
	if bindings == nil {
		bindings = shapeinference.Bindings{}
	}
	if sr.batchSize > 0 {
		for _, input := range sr.model.Graph.Inputs {
			if !input.HasShape || input.Shape.Rank() == 0 {
				continue
			}
			batchDim := input.Shape.Dimensions[0]
			if !batchDim.IsSymbolic() {
				continue
			}
			if _, found := bindings[batchDim.Name()]; !found {
				bindings[batchDim.Name()] = sr.batchSize
			}
		}
	}
	if err := bindings.Validate(); err != nil {
		return nil, err
	}
	return bindings, nil
}

// PropagateShapes infers the shapes of all values of the graph.
//
// It fails if the bindings are invalid, if the graph cannot be sorted, if ctx is cancelled (checked between nodes),
// or, in strict mode, on the first node whose shape cannot be inferred.
func (sr *ShapeResolver) PropagateShapes(ctx context.Context) error {
	if sr.propagated {
		return nil
	}
	bindings, err := sr.effectiveBindings()
	if err != nil {
		return errors.WithMessage(err, "invalid bindings for symbolic dimensions")
	}
	sr.inference = shapeinference.NewContext(bindings)
	sr.dtypes = make(map[string]ONNXDataType)
	sr.constants = make(map[string][]int64)
	sr.unresolved = orderedmap.New[string, error]()
	sr.provenanceCache = make(map[string]ShapeProvenance)

	m := sr.model
	for _, t := range m.Graph.Initializers {
		sr.record(t.Name, t.Shape(), WebNNToONNXDataType(t.DataType()))
		if values, err := t.Int64s(); err == nil {
			sr.constants[t.Name] = values
		}
	}
	for _, input := range m.Graph.Inputs {
		if _, isInitializer := m.Initializer(input.Name); isInitializer {
			continue
		}
		sr.dtypes[input.Name] = input.DataType
		if !input.HasShape {
			klog.V(1).Infof("graph input %q has no shape information", input.Name)
			continue
		}
		sr.record(input.Name, input.Shape, input.DataType)
	}

	sortedNodes, err := m.sortedGraph()
	if err != nil {
		return err
	}
	for ii, node := range sortedNodes {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "shape propagation interrupted at node %d out of %d", ii, len(sortedNodes))
		}
		var nodeErr error
		err := exceptions.TryCatch[error](func() { nodeErr = sr.propagateNodeShape(node) })
		if err == nil {
			err = nodeErr
		}
		if err == nil {
			continue
		}
		err = errors.WithMessagef(err, "while inferring shapes of node %d out of %d, ONNX %s",
			ii, len(sortedNodes), nodeToString(node))
		if sr.strict {
			return err
		}
		klog.V(1).Infof("%v", err)
		for _, output := range node.Output {
			if _, found := sr.inference.GetShape(output); output != "" && !found {
				sr.unresolved.Set(output, err)
			}
		}
	}
	if err := sr.checkOutputs(); err != nil {
		return err
	}
	if sr.unresolved.Len() > 0 {
		klog.Warningf("shapes of %d values could not be inferred, first unresolved: %q",
			sr.unresolved.Len(), sr.unresolved.Oldest().Key)
	}
	klog.V(1).Infof("propagated shapes through %d nodes: %d values with known shapes, %d unresolved",
		len(sortedNodes), sr.inference.Len(), sr.unresolved.Len())
	sr.propagated = true
	return nil
}

// checkOutputs compares the shapes declared for the graph outputs with the inferred ones, when both resolve.
// A mismatch is an error in strict mode, and a warning otherwise.
func (sr *ShapeResolver) checkOutputs() error {
	for _, output := range sr.model.Graph.Outputs {
		if !output.HasShape {
			continue
		}
		inferred, found := sr.inference.GetShape(output.Name)
		if !found {
			continue
		}
		declared, ok1 := sr.inference.Resolve(output.Shape)
		actual, ok2 := sr.inference.Resolve(inferred)
		if !ok1 || !ok2 {
			continue
		}
		if !shapeinference.Make(declared...).Equal(shapeinference.Make(actual...)) {
			err := errors.Wrapf(shapeinference.ErrIncompatible, "graph output %q is declared with shape %s, but inferred %s",
				output.Name, output.Shape, inferred)
			if sr.strict {
				return err
			}
			klog.Warningf("%v", err)
		}
	}
	return nil
}

// record stores the shape and dtype of the value name.
func (sr *ShapeResolver) record(name string, shape shapeinference.Shape, dtype ONNXDataType) {
	sr.inference.SetShape(name, shape)
	if dtype != ONNXUndefined {
		sr.dtypes[name] = dtype
	}
	if klog.V(2).Enabled() {
		klog.Infof("shape of %q: %s (%s)", name, shape, dtype)
	}
}

// propagateNodeShape computes the output shape(s) for a single ONNX node.
// Malformed attributes panic with an exception.
func (sr *ShapeResolver) propagateNodeShape(node *Node) error {
	if node.Domain != "" && node.Domain != "ai.onnx" {
		return errors.Wrapf(ErrUnsupportedOp, "operator %s of domain %q", node.OpType, node.Domain)
	}
	if IsDataDependentOp(node.OpType) {
		return errors.Wrapf(ErrDataDependent, "operator %s", node.OpType)
	}
	switch node.OpType {
	case "Constant":
		return sr.propagateConstant(node)
	case "Shape":
		return sr.propagateShapeOp(node)
	}

	family, found := OpFamily(node.OpType)
	if !found {
		return errors.Wrapf(ErrUnsupportedOp, "no shape rule for operator %s", node.OpType)
	}
	var output shapeinference.Shape
	var err error
	if inputs := nonEmpty(node.Input); family == shapeinference.FamilyBinary && len(inputs) != 2 {
		output, err = sr.broadcastAll(inputs)
	} else {
		var op shapeinference.Op
		op, err = sr.buildOp(node, family)
		if err != nil {
			return err
		}
		output, err = sr.inference.Infer(op)
	}
	if err != nil {
		return err
	}

	dtype := sr.outputDType(node)
	sr.record(node.Output[0], output, dtype)
	sr.foldConstants(node)
	return sr.propagateExtraOutputs(node, output, dtype)
}

// propagateExtraOutputs records the shapes of the outputs after the first one, for the few operators
// that have a shape rule for them.
func (sr *ShapeResolver) propagateExtraOutputs(node *Node, output shapeinference.Shape, dtype ONNXDataType) error {
	for ii, name := range node.Output[1:] {
		if name == "" {
			continue
		}
		idx := ii + 1
		switch {
		case node.OpType == "Dropout" && idx == 1:
			sr.record(name, output, ONNXBool)

		case node.OpType == "LayerNormalization" && idx <= 2:
			// Mean and InvStdDev: the normalized axes [axis, rank) become 1.
			rank := output.Rank()
			axis, err := shapeinference.AdjustAxisToRank(getIntAttrOr(node, "axis", -1), rank)
			if err != nil {
				return errors.WithMessagef(err, "LayerNormalization of %q", node.Input[0])
			}
			stats := output.Clone()
			for i := axis; i < rank; i++ {
				stats.Dimensions[i] = shapeinference.Bound(1)
			}
			sr.record(name, stats, ONNXDataType(getIntAttrOr(node, "stash_type", int64(ONNXFloat))))

		case node.OpType == "BatchNormalization" && idx <= 2:
			// Training mode running_mean and running_var: [C].
			if output.Rank() < 2 {
				return errors.Wrapf(shapeinference.ErrIncompatible, "BatchNormalization requires rank >= 2, got %s", output)
			}
			statsDType := dtype
			if len(node.Input) > 3 {
				if meanDType, found := sr.DType(node.Input[3]); found {
					statsDType = meanDType
				}
			}
			sr.record(name, shapeinference.FromDims(output.Dimensions[1:2]), statsDType)

		default:
			return errors.Wrapf(ErrUnsupportedOp, "no shape rule for output #%d (%q) of %s", idx, name, node.OpType)
		}
	}
	return nil
}

// nonEmpty returns the names that are not "" (omitted optional inputs).
func nonEmpty(names []string) []string {
	result := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			result = append(result, name)
		}
	}
	return result
}

// requireInputs panics if the node has fewer than n inputs.
func requireInputs(node *Node, n int) {
	if len(node.Input) < n || node.Input[0] == "" {
		exceptions.Panicf("ONNX %s requires at least %d inputs", nodeToString(node), n)
	}
}

// inputRank returns the rank of the value, which must have a known shape (possibly symbolic).
func (sr *ShapeResolver) inputRank(name string) (int, error) {
	shape, found := sr.inference.GetShape(name)
	if !found {
		return 0, errors.Wrapf(shapeinference.ErrMissingInput, "value %q", name)
	}
	return shape.Rank(), nil
}

// resolvedInput returns the concrete extents of the value.
func (sr *ShapeResolver) resolvedInput(name string) ([]int64, error) {
	shape, found := sr.inference.GetShape(name)
	if !found {
		return nil, errors.Wrapf(shapeinference.ErrMissingInput, "value %q", name)
	}
	extents, ok := sr.inference.Resolve(shape)
	if !ok {
		return nil, errors.Wrapf(shapeinference.ErrUnresolved, "value %q has shape %s, bindings={%s}",
			name, shape, sr.inference.Bindings().Key())
	}
	return extents, nil
}

// constantOperand returns the values of the integer constant operand #idx of node.
// If the operand is omitted it returns nil and false.
func (sr *ShapeResolver) constantOperand(node *Node, idx int) ([]int64, bool, error) {
	if idx >= len(node.Input) || node.Input[idx] == "" {
		return nil, false, nil
	}
	name := node.Input[idx]
	values, found := sr.constants[name]
	if !found {
		if inputs := sr.model.nonConstantDependencies(name); len(inputs) > 0 {
			return nil, true, errors.Wrapf(ErrNotConstant, "input #%d (%q) of %s depends on graph inputs %q",
				idx, name, node.OpType, inputs)
		}
		return nil, true, errors.Wrapf(ErrNotConstant, "input #%d (%q) of %s", idx, name, node.OpType)
	}
	return values, true, nil
}

// axesOperand returns the axes of node, given either as the "axes" attribute (older opsets) or
// as the constant input #1 (opset 13 and later for Squeeze/Unsqueeze/ReduceSum, 18 for the other reductions).
func (sr *ShapeResolver) axesOperand(node *Node) ([]int64, bool, error) {
	if _, found := node.Attribute.Get("axes"); found {
		return mustGetIntsAttr(node, "axes"), true, nil
	}
	return sr.constantOperand(node, 1)
}

// allAxes returns [0, rank).
func allAxes(rank int) []int64 {
	axes := make([]int64, rank)
	for axis := range axes {
		axes[axis] = int64(axis)
	}
	return axes
}

// buildOp converts the node to the shape inference operation of its family, applying the ONNX defaults.
func (sr *ShapeResolver) buildOp(node *Node, family shapeinference.Family) (shapeinference.Op, error) {
	switch family {
	case shapeinference.FamilyUnary:
		requireInputs(node, 1)
		return shapeinference.Unary{Input: node.Input[0]}, nil

	case shapeinference.FamilyBinary:
		inputs := nonEmpty(node.Input)
		return shapeinference.Binary{LHS: inputs[0], RHS: inputs[1]}, nil

	case shapeinference.FamilyMatMul:
		requireInputs(node, 2)
		return shapeinference.MatMul{LHS: node.Input[0], RHS: node.Input[1]}, nil

	case shapeinference.FamilyTranspose:
		requireInputs(node, 1)
		perm := sliceMap(getIntsAttrOr(node, "perm", nil), func(axis int64) int { return int(axis) })
		if len(perm) == 0 {
			// Default: reverse dimensions.
			rank, err := sr.inputRank(node.Input[0])
			if err != nil {
				return nil, err
			}
			perm = make([]int, rank)
			for i := range perm {
				perm[i] = rank - 1 - i
			}
		}
		return shapeinference.Transpose{Input: node.Input[0], Permutation: perm}, nil

	case shapeinference.FamilyReduce:
		requireInputs(node, 1)
		return sr.buildReduce(node)

	case shapeinference.FamilyConcat:
		return shapeinference.Concat{Inputs: nonEmpty(node.Input), Axis: mustGetIntAttr(node, "axis")}, nil

	case shapeinference.FamilyReshape:
		requireInputs(node, 1)
		if node.OpType == "Flatten" {
			return sr.buildFlatten(node)
		}
		return sr.buildReshape(node)

	case shapeinference.FamilySqueeze:
		requireInputs(node, 1)
		axes, _, err := sr.axesOperand(node)
		if err != nil {
			return nil, err
		}
		return shapeinference.Squeeze{Input: node.Input[0], Axes: axes}, nil

	case shapeinference.FamilyUnsqueeze:
		requireInputs(node, 1)
		axes, found, err := sr.axesOperand(node)
		if err != nil {
			return nil, err
		}
		if !found {
			exceptions.Panicf("ONNX %s is missing the axes", nodeToString(node))
		}
		return shapeinference.Unsqueeze{Input: node.Input[0], Axes: axes}, nil
	}
	exceptions.Panicf("ONNX %s: unknown shape inference family %s", nodeToString(node), family)
	return nil, nil
}

func (sr *ShapeResolver) buildReduce(node *Node) (shapeinference.Op, error) {
	input := node.Input[0]
	keepDims := getBoolAttrOr(node, "keepdims", true)
	switch node.OpType {
	case "ArgMax", "ArgMin":
		return shapeinference.Reduce{Input: input, Axes: []int64{getIntAttrOr(node, "axis", 0)}, KeepDims: keepDims}, nil
	case "GlobalAveragePool", "GlobalMaxPool", "GlobalLpPool":
		// Reduce the spatial axes: [N, C, D1, ..., Dn] -> [N, C, 1, ..., 1].
		rank, err := sr.inputRank(input)
		if err != nil {
			return nil, err
		}
		if rank < 2 {
			return nil, errors.Wrapf(shapeinference.ErrIncompatible, "%s requires rank >= 2, got rank %d", node.OpType, rank)
		}
		return shapeinference.Reduce{Input: input, Axes: allAxes(rank)[2:], KeepDims: true}, nil
	}

	axes, _, err := sr.axesOperand(node)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 && !getBoolAttrOr(node, "noop_with_empty_axes", false) {
		// ONNX default: reduce all axes.
		rank, err := sr.inputRank(input)
		if err != nil {
			return nil, err
		}
		axes = allAxes(rank)
	}
	return shapeinference.Reduce{Input: input, Axes: axes, KeepDims: keepDims}, nil
}

func (sr *ShapeResolver) buildReshape(node *Node) (shapeinference.Op, error) {
	input := node.Input[0]
	target, found, err := sr.constantOperand(node, 1)
	if err != nil {
		return nil, err
	}
	if !found {
		target, found = node.Attribute.GetInts("shape") // Opset 1 to 4.
		if !found {
			exceptions.Panicf("ONNX %s is missing the target shape", nodeToString(node))
		}
	}
	target = append([]int64(nil), target...)
	if !getBoolAttrOr(node, "allowzero", false) {
		// A 0 copies the extent of the input at the same axis.
		for axis, extent := range target {
			if extent != 0 {
				continue
			}
			dims, err := sr.resolvedInput(input)
			if err != nil {
				return nil, err
			}
			if axis >= len(dims) {
				return nil, errors.Wrapf(shapeinference.ErrInvalidArgument,
					"Reshape target %v copies axis %d, but input %q has rank %d", target, axis, input, len(dims))
			}
			target[axis] = dims[axis]
		}
	}
	return shapeinference.Reshape{Input: input, Target: target}, nil
}

// buildFlatten converts Flatten to a reshape to [d_0 * ... * d_(axis-1), d_axis * ... * d_n].
func (sr *ShapeResolver) buildFlatten(node *Node) (shapeinference.Op, error) {
	input := node.Input[0]
	dims, err := sr.resolvedInput(input)
	if err != nil {
		return nil, err
	}
	rank := int64(len(dims))
	axis := getIntAttrOr(node, "axis", 1)
	if axis < -rank || axis > rank {
		return nil, errors.Wrapf(shapeinference.ErrInvalidArgument, "Flatten axis %d out of range for rank %d", axis, rank)
	}
	if axis < 0 {
		axis += rank
	}
	outer, inner := int64(1), int64(1)
	for i, dim := range dims {
		if int64(i) < axis {
			outer *= dim
		} else {
			inner *= dim
		}
	}
	return shapeinference.Reshape{Input: input, Target: []int64{outer, inner}}, nil
}

// broadcastAll broadcasts the shapes of all names, for variadic element-wise operators (Sum, Max, Where, ...).
func (sr *ShapeResolver) broadcastAll(names []string) (shapeinference.Shape, error) {
	if len(names) == 0 {
		return shapeinference.Shape{}, errors.Wrap(shapeinference.ErrInvalidArgument, "no inputs to broadcast")
	}
	var dims []int64
	for ii, name := range names {
		extents, err := sr.resolvedInput(name)
		if err != nil {
			return shapeinference.Shape{}, err
		}
		if ii == 0 {
			dims = extents
			continue
		}
		var ok bool
		previous := dims
		dims, ok = shapeinference.Broadcast(dims, extents)
		if !ok {
			return shapeinference.Shape{}, errors.Wrapf(shapeinference.ErrIncompatible,
				"cannot broadcast %v with %q %v", previous, name, extents)
		}
	}
	return shapeinference.Make(dims...), nil
}

// propagateConstant records the shape (and integer values) of a Constant node.
func (sr *ShapeResolver) propagateConstant(node *Node) error {
	output := node.Output[0]
	if t, found := node.Attribute.GetTensor("value"); found {
		sr.record(output, t.Shape(), WebNNToONNXDataType(t.DataType()))
		if values, err := t.Int64s(); err == nil {
			sr.constants[output] = values
		}
		return nil
	}
	if attr, found := node.Attribute.Get("value_ints"); found {
		values := mustGetIntsAttr(node, attr.Name)
		sr.record(output, shapeinference.Make(int64(len(values))), ONNXInt64)
		sr.constants[output] = values
		return nil
	}
	if attr, found := node.Attribute.Get("value_int"); found {
		sr.record(output, shapeinference.Make(), ONNXInt64)
		sr.constants[output] = []int64{mustGetIntAttr(node, attr.Name)}
		return nil
	}
	if values, found := node.Attribute.GetFloats("value_floats"); found {
		sr.record(output, shapeinference.Make(int64(len(values))), ONNXFloat)
		return nil
	}
	if _, found := node.Attribute.GetFloat("value_float"); found {
		sr.record(output, shapeinference.Make(), ONNXFloat)
		return nil
	}
	exceptions.Panicf("ONNX %s has no supported value attribute", nodeToString(node))
	return nil
}

// propagateShapeOp handles Shape: the output is a 1D int64 tensor with the (sliced) input dimensions.
// Its values are recorded as a constant if the input shape resolves.
func (sr *ShapeResolver) propagateShapeOp(node *Node) error {
	requireInputs(node, 1)
	input := node.Input[0]
	rank, err := sr.inputRank(input)
	if err != nil {
		return err
	}
	clampAxis := func(axis int64) int {
		if axis < 0 {
			axis += int64(rank)
		}
		return int(min(max(axis, 0), int64(rank)))
	}
	start := clampAxis(getIntAttrOr(node, "start", 0))
	end := clampAxis(getIntAttrOr(node, "end", int64(rank)))
	length := max(end-start, 0)
	sr.record(node.Output[0], shapeinference.Make(int64(length)), ONNXInt64)
	if dims, err := sr.resolvedInput(input); err == nil && length > 0 {
		sr.constants[node.Output[0]] = dims[start:end]
	} else if length == 0 {
		sr.constants[node.Output[0]] = []int64{}
	}
	return nil
}

// foldConstants propagates integer constant values through the few operators used to build shape operands.
func (sr *ShapeResolver) foldConstants(node *Node) {
	output := node.Output[0]
	switch node.OpType {
	case "Identity", "Cast":
		if values, found := sr.constants[node.Input[0]]; found {
			if node.OpType == "Cast" && !isIntegerONNX(sr.dtypes[output]) {
				return
			}
			sr.constants[output] = values
		}
	case "Concat":
		// Only 1D constants along axis 0.
		var values []int64
		for _, input := range nonEmpty(node.Input) {
			inputValues, found := sr.constants[input]
			if !found {
				return
			}
			if shape, _ := sr.inference.GetShape(input); shape.Rank() != 1 {
				return
			}
			values = append(values, inputValues...)
		}
		sr.constants[output] = values
	case "Unsqueeze", "Squeeze", "Reshape", "Flatten":
		// Data is unchanged by these ops: only its shape.
		if values, found := sr.constants[node.Input[0]]; found {
			sr.constants[output] = values
		}
	}
}

func isIntegerONNX(dtype ONNXDataType) bool {
	switch dtype {
	case ONNXInt8, ONNXUint8, ONNXInt16, ONNXUint16, ONNXInt32, ONNXUint32, ONNXInt64, ONNXUint64:
		return true
	}
	return false
}

// outputDType returns the dtype of the first output of node.
func (sr *ShapeResolver) outputDType(node *Node) ONNXDataType {
	switch {
	case node.OpType == "Cast":
		return ONNXDataType(getIntAttrOr(node, "to", int64(ONNXUndefined)))
	case boolOutputOps.Has(node.OpType):
		return ONNXBool
	case node.OpType == "ArgMax" || node.OpType == "ArgMin":
		return ONNXInt64
	case node.OpType == "Where":
		return sr.dtypes[node.Input[1]]
	}
	for _, input := range node.Input {
		if input != "" {
			return sr.dtypes[input]
		}
	}
	return ONNXUndefined
}

// GetShape returns the inferred shape of the value, with symbolic dimensions where they could not be resolved.
// It returns false if the shape is not known, or if PropagateShapes was not called yet.
func (sr *ShapeResolver) GetShape(name string) (shapeinference.Shape, bool) {
	if sr.inference == nil {
		return shapeinference.Shape{}, false
	}
	return sr.inference.GetShape(name)
}

// Names returns the names of the values with a known shape, in the order they were inferred.
func (sr *ShapeResolver) Names() []string {
	if sr.inference == nil {
		return nil
	}
	return sr.inference.Names()
}

// GetDimensions returns the concrete dimensions of the value: false if its shape is unknown or has unbound
// symbolic dimensions.
func (sr *ShapeResolver) GetDimensions(name string) ([]int64, bool) {
	shape, found := sr.GetShape(name)
	if !found {
		return nil, false
	}
	return sr.inference.Resolve(shape)
}

// DType returns the ONNX data type of the value, if known.
func (sr *ShapeResolver) DType(name string) (ONNXDataType, bool) {
	dtype, found := sr.dtypes[name]
	return dtype, found && dtype != ONNXUndefined
}

// ConstantValue returns the values of an integer constant (initializers, Constant nodes and shape computations
// on resolved shapes).
func (sr *ShapeResolver) ConstantValue(name string) ([]int64, bool) {
	values, found := sr.constants[name]
	return values, found
}

// Bindings returns the bindings used in the last propagation, including those implied by WithBatchSize.
func (sr *ShapeResolver) Bindings() shapeinference.Bindings {
	if sr.inference == nil {
		return nil
	}
	return sr.inference.Bindings()
}

// GoMLXShape returns the concrete shape of the value as a GoMLX shape, including its dtype.
func (sr *ShapeResolver) GoMLXShape(name string) (shapes.Shape, error) {
	shape, found := sr.GetShape(name)
	if !found {
		return shapes.Shape{}, errors.Wrapf(shapeinference.ErrMissingInput, "no shape inferred for %q", name)
	}
	onnxDType, _ := sr.DType(name)
	dtype, err := DTypeForONNX(onnxDType)
	if err != nil {
		return shapes.Shape{}, errors.WithMessagef(err, "value %q", name)
	}
	return togomlx.Shape(shape, dtype, sr.inference.Bindings())
}

// UnresolvedValue is a value whose shape could not be inferred, and why.
type UnresolvedValue struct {
	Name string
	Err  error
}

// Unresolved returns the values whose shape could not be inferred, in topological order.
// Values downstream of a failure are listed too, with an error wrapping shapeinference.ErrMissingInput.
func (sr *ShapeResolver) Unresolved() []UnresolvedValue {
	if sr.unresolved == nil {
		return nil
	}
	values := make([]UnresolvedValue, 0, sr.unresolved.Len())
	for pair := sr.unresolved.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, UnresolvedValue{Name: pair.Key, Err: pair.Value})
	}
	return values
}

// FindFirstUnresolved finds the first node in topological order without a resolved shape.
func (sr *ShapeResolver) FindFirstUnresolved() (string, *Node) {
	if sr.unresolved == nil || sr.unresolved.Len() == 0 {
		return "", nil
	}
	name := sr.unresolved.Oldest().Key
	return name, sr.model.Producer(name)
}

// TraceDependencies traces backwards from a value to show why its shape couldn't be resolved.
// It returns a formatted string showing the dependency chain and where it breaks.
func (sr *ShapeResolver) TraceDependencies(name string) string {
	var sb strings.Builder
	sr.traceDepsRecursive(&sb, name, 0, sets.Make[string]())
	return sb.String()
}

func (sr *ShapeResolver) traceDepsRecursive(sb *strings.Builder, name string, depth int, visited sets.Set[string]) {
	indent := strings.Repeat("  ", depth)
	if visited.Has(name) {
		fmt.Fprintf(sb, "%s%s (already listed)\n", indent, name)
		return
	}
	visited.Insert(name)

	shape, resolved := sr.GetShape(name)
	status := "unresolved"
	if resolved {
		status = shape.String()
	}
	producer := sr.model.Producer(name)
	if producer == nil {
		switch {
		case sr.model.inputsNameSet.Has(name):
			fmt.Fprintf(sb, "%sINPUT %s -> %s\n", indent, name, status)
		default:
			if _, isInitializer := sr.model.Initializer(name); isInitializer {
				fmt.Fprintf(sb, "%sINITIALIZER %s -> %s\n", indent, name, status)
			} else {
				fmt.Fprintf(sb, "%sUNKNOWN %s\n", indent, name)
			}
		}
		return
	}
	fmt.Fprintf(sb, "%s%s (%s %q) -> %s\n", indent, name, producer.OpType, producer.Name, status)
	if sr.unresolved != nil {
		if err, failed := sr.unresolved.Get(name); failed {
			fmt.Fprintf(sb, "%s  error: %v\n", indent, err)
		}
	}

	// Only recurse into unresolved dependencies.
	if resolved {
		return
	}
	for _, input := range producer.Input {
		if input != "" {
			sr.traceDepsRecursive(sb, input, depth+1, visited)
		}
	}
}
