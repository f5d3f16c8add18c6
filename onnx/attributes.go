package onnx

import (
	"fmt"
	"math"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// AttributeType mirrors ONNX AttributeProto.AttributeType, for the attribute kinds supported.
type AttributeType int32

const (
	AttributeUndefined AttributeType = 0
	AttributeFloat     AttributeType = 1
	AttributeInt       AttributeType = 2
	AttributeString    AttributeType = 3
	AttributeTensor    AttributeType = 4
	AttributeFloats    AttributeType = 6
	AttributeInts      AttributeType = 7
)

// String implements fmt.Stringer, using the ONNX names.
func (t AttributeType) String() string {
	switch t {
	case AttributeFloat:
		return "FLOAT"
	case AttributeInt:
		return "INT"
	case AttributeString:
		return "STRING"
	case AttributeTensor:
		return "TENSOR"
	case AttributeFloats:
		return "FLOATS"
	case AttributeInts:
		return "INTS"
	default:
		return fmt.Sprintf("UNDEFINED(%d)", int32(t))
	}
}

// Attribute of a Node. Only the field matching Type is meaningful.
type Attribute struct {
	Name   string
	Type   AttributeType
	I      int64
	F      float32
	S      string
	Ints   []int64
	Floats []float32
	T      *Tensor
}

// Attributes is the list of attributes of a node, in declaration order.
type Attributes []*Attribute

// find returns the first attribute with the given name and type, or nil.
func (attrs Attributes) find(name string, attrType AttributeType) *Attribute {
	for _, attr := range attrs {
		if attr.Name == name {
			if attr.Type != attrType {
				return nil
			}
			return attr
		}
	}
	return nil
}

// Get returns the attribute with the given name, of any type.
func (attrs Attributes) Get(name string) (*Attribute, bool) {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr, true
		}
	}
	return nil, false
}

// GetInt returns the value of an INT attribute. It returns false if it is missing or of a different type.
func (attrs Attributes) GetInt(name string) (int64, bool) {
	attr := attrs.find(name, AttributeInt)
	if attr == nil {
		return 0, false
	}
	return attr.I, true
}

// GetInts returns the value of an INTS attribute. An empty list is reported as not found.
func (attrs Attributes) GetInts(name string) ([]int64, bool) {
	attr := attrs.find(name, AttributeInts)
	if attr == nil || len(attr.Ints) == 0 {
		return nil, false
	}
	return attr.Ints, true
}

// GetFloat returns the value of a FLOAT attribute.
func (attrs Attributes) GetFloat(name string) (float32, bool) {
	attr := attrs.find(name, AttributeFloat)
	if attr == nil {
		return 0, false
	}
	return attr.F, true
}

// GetFloats returns the value of a FLOATS attribute. An empty list is reported as not found.
func (attrs Attributes) GetFloats(name string) ([]float32, bool) {
	attr := attrs.find(name, AttributeFloats)
	if attr == nil || len(attr.Floats) == 0 {
		return nil, false
	}
	return attr.Floats, true
}

// GetString returns the value of a STRING attribute.
func (attrs Attributes) GetString(name string) (string, bool) {
	attr := attrs.find(name, AttributeString)
	if attr == nil {
		return "", false
	}
	return attr.S, true
}

// GetTensor returns the value of a TENSOR attribute.
func (attrs Attributes) GetTensor(name string) (*Tensor, bool) {
	attr := attrs.find(name, AttributeTensor)
	if attr == nil || attr.T == nil {
		return nil, false
	}
	return attr.T, true
}

// RequireAttr converts the (value, found) pair returned by the Attributes getters into an error if not found.
//
// Example:
//
//	axis, found := node.Attribute.GetInt("axis")
//	if _, err := RequireAttr("axis", axis, found); err != nil { ... }
func RequireAttr[T any](name string, v T, found bool) (T, error) {
	if !found {
		var zero T
		return zero, errors.Errorf("missing attribute: %s", name)
	}
	return v, nil
}

// AttrBuilder builds a list of attributes. Create it with NewAttrBuilder.
type AttrBuilder struct {
	attrs Attributes
}

// NewAttrBuilder returns an empty AttrBuilder.
func NewAttrBuilder() *AttrBuilder { return &AttrBuilder{} }

func (b *AttrBuilder) add(attr *Attribute) *AttrBuilder {
	b.attrs = append(b.attrs, attr)
	return b
}

// AddInt adds an INT attribute.
func (b *AttrBuilder) AddInt(name string, value int64) *AttrBuilder {
	return b.add(&Attribute{Name: name, Type: AttributeInt, I: value})
}

// AddInts adds an INTS attribute.
func (b *AttrBuilder) AddInts(name string, values ...int64) *AttrBuilder {
	return b.add(&Attribute{Name: name, Type: AttributeInts, Ints: values})
}

// AddFloat adds a FLOAT attribute.
func (b *AttrBuilder) AddFloat(name string, value float32) *AttrBuilder {
	return b.add(&Attribute{Name: name, Type: AttributeFloat, F: value})
}

// AddFloats adds a FLOATS attribute.
func (b *AttrBuilder) AddFloats(name string, values ...float32) *AttrBuilder {
	return b.add(&Attribute{Name: name, Type: AttributeFloats, Floats: values})
}

// AddString adds a STRING attribute.
func (b *AttrBuilder) AddString(name, value string) *AttrBuilder {
	return b.add(&Attribute{Name: name, Type: AttributeString, S: value})
}

// AddTensor adds a TENSOR attribute.
func (b *AttrBuilder) AddTensor(name string, value *Tensor) *AttrBuilder {
	return b.add(&Attribute{Name: name, Type: AttributeTensor, T: value})
}

// Build returns the attributes added so far.
func (b *AttrBuilder) Build() Attributes { return b.attrs }

// ParseJSONInts returns the list of integers under key. Non-integer entries are skipped.
// It returns false if key is missing or is not a list.
func ParseJSONInts(s *structpb.Struct, key string) ([]int64, bool) {
	list, ok := jsonList(s, key)
	if !ok {
		return nil, false
	}
	values := make([]int64, 0, len(list.Values))
	for _, v := range list.Values {
		if i, isInt := jsonInt(v); isInt {
			values = append(values, i)
		}
	}
	return values, true
}

// ParseJSONFloats returns the list of numbers under key as float32. Non-numeric entries are skipped.
// It returns false if key is missing or is not a list.
func ParseJSONFloats(s *structpb.Struct, key string) ([]float32, bool) {
	list, ok := jsonList(s, key)
	if !ok {
		return nil, false
	}
	values := make([]float32, 0, len(list.Values))
	for _, v := range list.Values {
		if n, isNumber := v.GetKind().(*structpb.Value_NumberValue); isNumber {
			values = append(values, float32(n.NumberValue))
		}
	}
	return values, true
}

func jsonList(s *structpb.Struct, key string) (*structpb.ListValue, bool) {
	if s == nil {
		return nil, false
	}
	v, found := s.GetFields()[key]
	if !found {
		return nil, false
	}
	list := v.GetListValue()
	return list, list != nil
}

// jsonInt returns the value as an int64 if it is an integral number.
func jsonInt(v *structpb.Value) (int64, bool) {
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, false
	}
	return int64(n.NumberValue), true
}

// AttributesFromStruct converts a JSON object to Attributes, with the keys sorted.
//
// Integral numbers become INT and other numbers FLOAT; lists of integral numbers become INTS, other numeric lists
// FLOATS; strings become STRING; objects are parsed as tensors (see Tensor) and become TENSOR.
// Booleans are stored as INT 0 or 1, following the ONNX convention.
func AttributesFromStruct(s *structpb.Struct) (Attributes, error) {
	if s == nil {
		return nil, nil
	}
	var attrs Attributes
	for _, name := range sortedKeys(s) {
		attr, err := attributeFromValue(name, s.Fields[name])
		if err != nil {
			return nil, errors.WithMessagef(err, "attribute %q", name)
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func attributeFromValue(name string, v *structpb.Value) (*Attribute, error) {
	attr := &Attribute{Name: name}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if i, isInt := jsonInt(v); isInt {
			attr.Type, attr.I = AttributeInt, i
		} else {
			attr.Type, attr.F = AttributeFloat, float32(kind.NumberValue)
		}
	case *structpb.Value_BoolValue:
		attr.Type = AttributeInt
		if kind.BoolValue {
			attr.I = 1
		}
	case *structpb.Value_StringValue:
		attr.Type, attr.S = AttributeString, kind.StringValue
	case *structpb.Value_ListValue:
		allInts := true
		for ii, elem := range kind.ListValue.GetValues() {
			if _, isNumber := elem.GetKind().(*structpb.Value_NumberValue); !isNumber {
				return nil, errors.Errorf("list element #%d is not a number", ii)
			}
			if _, isInt := jsonInt(elem); !isInt {
				allInts = false
			}
		}
		wrapper := &structpb.Struct{Fields: map[string]*structpb.Value{name: v}}
		if allInts {
			attr.Type = AttributeInts
			attr.Ints, _ = ParseJSONInts(wrapper, name)
		} else {
			attr.Type = AttributeFloats
			attr.Floats, _ = ParseJSONFloats(wrapper, name)
		}
	case *structpb.Value_StructValue:
		t, err := tensorFromStruct(name, kind.StructValue)
		if err != nil {
			return nil, err
		}
		attr.Type, attr.T = AttributeTensor, t
	default:
		return nil, errors.Errorf("unsupported JSON value %v", v)
	}
	return attr, nil
}

// getNodeAttr returns the given node attribute. If required is true, it will panic with a message about
// the missing attribute.
func getNodeAttr(node *Node, name string, required bool) *Attribute {
	attr, found := node.Attribute.Get(name)
	if !found && required {
		exceptions.Panicf("ONNX %s is missing required attribute %q", nodeToString(node), name)
	}
	return attr
}

func assertNodeAttrType(node *Node, attr *Attribute, attributeType AttributeType) {
	if attr.Type != attributeType {
		exceptions.Panicf("unsupported ONNX attribute %q of type %s in %s", attr.Name, attr.Type, nodeToString(node))
	}
}

// mustGetIntAttr gets the attribute as an integer.
// It panics with an exception if attribute is not set or if it is of the wrong type.
func mustGetIntAttr(node *Node, attrName string) int64 {
	attr := getNodeAttr(node, attrName, true)
	assertNodeAttrType(node, attr, AttributeInt)
	return attr.I
}

// mustGetIntsAttr gets a list of integers attribute for node. A single INT is accepted as a list of one.
func mustGetIntsAttr(node *Node, attrName string) []int64 {
	attr := getNodeAttr(node, attrName, true)
	if attr.Type == AttributeInt {
		return []int64{attr.I}
	}
	assertNodeAttrType(node, attr, AttributeInts)
	return attr.Ints
}

// getIntAttrOr gets an integer attribute for node if present or return the given defaultValue.
// It panics with an error message if the attribute is present but is of the wrong type.
func getIntAttrOr(node *Node, attrName string, defaultValue int64) int64 {
	attr := getNodeAttr(node, attrName, false)
	if attr == nil {
		return defaultValue
	}
	assertNodeAttrType(node, attr, AttributeInt)
	return attr.I
}

// getBoolAttrOr gets a boolean attribute (ONNX uses an int value of 0 or 1) for node if present or return the
// given defaultValue.
func getBoolAttrOr(node *Node, attrName string, defaultValue bool) bool {
	var defaultInt int64
	if defaultValue {
		defaultInt = 1
	}
	return getIntAttrOr(node, attrName, defaultInt) != 0
}

// getIntsAttrOr gets an integer list attribute for node if present or return the given defaultValues.
// It panics with an error message if the attribute is present but is of the wrong type.
func getIntsAttrOr(node *Node, attrName string, defaultValues []int64) []int64 {
	attr := getNodeAttr(node, attrName, false)
	if attr == nil {
		return defaultValues
	}
	assertNodeAttrType(node, attr, AttributeInts)
	return attr.Ints
}
