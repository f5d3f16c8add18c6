package onnx

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"slices"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
	"github.com/x448/float16"
	"google.golang.org/protobuf/types/known/structpb"
)

// TensorData is the payload of a tensor: either Raw little-endian bytes, or one typed slice matching DType.
// Float16 values are stored as their IEEE 754 half-precision bits.
type TensorData struct {
	DType DataType
	Raw   []byte

	Float32s []float32
	Float16s []uint16
	Int32s   []int32
	Uint32s  []uint32
	Int64s   []int64
	Uint64s  []uint64
	Int8s    []int8
	Uint8s   []uint8
}

// IsRaw returns whether the payload is given as raw bytes.
func (d TensorData) IsRaw() bool { return d.Raw != nil }

// Len returns the number of elements. For raw payloads it is the number of bytes divided by the element size.
func (d TensorData) Len() int {
	if d.IsRaw() {
		size := d.DType.Size()
		if size == 0 {
			return 0
		}
		return len(d.Raw) / size
	}
	switch d.DType {
	case Float32:
		return len(d.Float32s)
	case Float16:
		return len(d.Float16s)
	case Int32:
		return len(d.Int32s)
	case Uint32:
		return len(d.Uint32s)
	case Int64:
		return len(d.Int64s)
	case Uint64:
		return len(d.Uint64s)
	case Int8:
		return len(d.Int8s)
	case Uint8:
		return len(d.Uint8s)
	default:
		return 0
	}
}

// IsEmpty returns whether there are no elements.
func (d TensorData) IsEmpty() bool { return d.Len() == 0 }

// Bytes returns the payload in little-endian layout, as stored in ONNX TensorProto.raw_data.
func (d TensorData) Bytes() []byte {
	if d.IsRaw() {
		return d.Raw
	}
	var values any
	switch d.DType {
	case Float32:
		values = d.Float32s
	case Float16:
		values = d.Float16s
	case Int32:
		values = d.Int32s
	case Uint32:
		values = d.Uint32s
	case Int64:
		values = d.Int64s
	case Uint64:
		values = d.Uint64s
	case Int8:
		values = d.Int8s
	case Uint8:
		return d.Uint8s
	default:
		return nil
	}
	buf, err := binary.Append(make([]byte, 0, d.Len()*d.DType.Size()), binary.LittleEndian, values)
	if err != nil {
		panic(err) // Only fixed-size slices are given above.
	}
	return buf
}

// Scalar returns a payload with a single value converted from v.
func Scalar(dtype DataType, v float32) TensorData {
	return Filled(dtype, nil, v)
}

// Filled returns a payload with the number of elements of dims, all set to v converted to dtype.
// Conversions to integer types truncate toward zero and saturate at the type limits; NaN becomes 0.
func Filled(dtype DataType, dims []int64, v float32) TensorData {
	n := 1
	for _, dim := range dims {
		n *= int(dim)
	}
	d := TensorData{DType: dtype}
	switch dtype {
	case Float32:
		d.Float32s = slices.Repeat([]float32{v}, n)
	case Float16:
		d.Float16s = slices.Repeat([]uint16{float16.Fromfloat32(v).Bits()}, n)
	case Int32:
		d.Int32s = slices.Repeat([]int32{int32(saturate(v, math.MinInt32, math.MaxInt32))}, n)
	case Uint32:
		d.Uint32s = slices.Repeat([]uint32{uint32(saturate(v, 0, math.MaxUint32))}, n)
	case Int64:
		d.Int64s = slices.Repeat([]int64{saturateInt64(v)}, n)
	case Uint64:
		d.Uint64s = slices.Repeat([]uint64{saturateUint64(v)}, n)
	case Int8:
		d.Int8s = slices.Repeat([]int8{int8(saturate(v, math.MinInt8, math.MaxInt8))}, n)
	case Uint8:
		d.Uint8s = slices.Repeat([]uint8{uint8(saturate(v, 0, math.MaxUint8))}, n)
	}
	return d
}

// saturate truncates v and clamps it to [lo, hi].
func saturate(v float32, lo, hi float64) float64 {
	if math32.IsNaN(v) {
		return 0
	}
	return min(max(float64(math32.Trunc(v)), lo), hi)
}

func saturateInt64(v float32) int64 {
	f := saturate(v, math.MinInt64, math.MaxInt64)
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func saturateUint64(v float32) uint64 {
	f := saturate(v, 0, math.MaxUint64)
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}

// Tensor is a named constant: a graph initializer or the value of a Constant node.
//
// If External is set, the payload is stored in a separate file and Data is empty until loaded
// (see Model.LoadExternalData).
type Tensor struct {
	Name     string
	Dims     []int64
	Data     TensorData
	External *ExternalData
}

// IsLoaded returns whether the payload is available in Data.
func (t *Tensor) IsLoaded() bool {
	return t.External == nil || t.Data.IsRaw()
}

// DataType of the tensor elements.
func (t *Tensor) DataType() DataType { return t.Data.DType }

// Shape returns the static shape of the tensor.
func (t *Tensor) Shape() shapeinference.Shape { return shapeinference.Make(t.Dims...) }

// Size returns the number of elements given by the dimensions.
// It fails on negative dimensions, or if the number of elements overflows int64.
func (t *Tensor) Size() (int64, error) {
	for axis, dim := range t.Dims {
		if dim < 0 {
			return 0, errors.Errorf("tensor %q has negative dimension %d at axis %d", t.Name, dim, axis)
		}
	}
	size, ok := shapeinference.Product(t.Dims)
	if !ok {
		return 0, errors.Errorf("tensor %q with dims %v has too many elements", t.Name, t.Dims)
	}
	return size, nil
}

// Validate checks that the payload holds the number of elements given by the dimensions.
func (t *Tensor) Validate() error {
	size, err := t.Size()
	if err != nil {
		return err
	}
	if !t.IsLoaded() {
		return nil
	}
	if int64(t.Data.Len()) != size {
		return errors.Errorf("tensor %q with dims %v (%s) has %d elements, but its payload holds %d",
			t.Name, t.Dims, t.DataType(), size, t.Data.Len())
	}
	return nil
}

// Int64s returns the values of an integer tensor, converted to int64. Axes and shape operands are given this way.
func (t *Tensor) Int64s() ([]int64, error) {
	d := &t.Data
	if !t.IsLoaded() {
		return nil, errors.Errorf("tensor %q has external data in %q that was not loaded", t.Name, t.External.Location)
	}
	if d.IsRaw() {
		return rawToInt64s(d.DType, d.Raw)
	}
	switch d.DType {
	case Int64:
		return slices.Clone(d.Int64s), nil
	case Int32:
		return convertInts(d.Int32s), nil
	case Int8:
		return convertInts(d.Int8s), nil
	case Uint8:
		return convertInts(d.Uint8s), nil
	case Uint32:
		return convertInts(d.Uint32s), nil
	case Uint64:
		return convertInts(d.Uint64s), nil
	default:
		return nil, errors.Errorf("tensor %q has non-integer data type %s", t.Name, d.DType)
	}
}

func convertInts[T int8 | uint8 | int32 | uint32 | uint64](values []T) []int64 {
	return sliceMap(values, func(v T) int64 { return int64(v) })
}

func rawToInt64s(dtype DataType, raw []byte) ([]int64, error) {
	size := dtype.Size()
	if size == 0 || len(raw)%size != 0 {
		return nil, errors.Errorf("raw payload of %d bytes is not a whole number of %s elements", len(raw), dtype)
	}
	values := make([]int64, len(raw)/size)
	for i := range values {
		b := raw[i*size : (i+1)*size]
		switch dtype {
		case Int64:
			values[i] = int64(binary.LittleEndian.Uint64(b))
		case Uint64:
			values[i] = int64(binary.LittleEndian.Uint64(b))
		case Int32:
			values[i] = int64(int32(binary.LittleEndian.Uint32(b)))
		case Uint32:
			values[i] = int64(binary.LittleEndian.Uint32(b))
		case Int8:
			values[i] = int64(int8(b[0]))
		case Uint8:
			values[i] = int64(b[0])
		default:
			return nil, errors.Errorf("raw payload has non-integer data type %s", dtype)
		}
	}
	return values, nil
}

// dataTypeFromJSON accepts a WebNN data type name ("float32"), an ONNX data type name ("FLOAT") or
// an ONNX data type code (1).
func dataTypeFromJSON(v *structpb.Value) (ONNXDataType, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		for code, name := range onnxDataTypeNames {
			if name == kind.StringValue {
				return code, nil
			}
		}
		dt, err := ParseDataType(kind.StringValue)
		if err != nil {
			return ONNXUndefined, err
		}
		return WebNNToONNXDataType(dt), nil
	case *structpb.Value_NumberValue:
		code, isInt := jsonInt(v)
		if !isInt {
			return ONNXUndefined, errors.Errorf("invalid data type code %v", kind.NumberValue)
		}
		return ONNXDataType(code), nil
	default:
		return ONNXUndefined, errors.Errorf("invalid data type %v", v)
	}
}

// tensorFromStruct parses a tensor given as a JSON object:
//
//	{"name": "w", "dataType": "float32", "dims": [2, 3], "data": [1, 2, 3, 4, 5, 6]}
//
// The payload is given either in "data" as a list of numbers, in "rawData" as base64 encoded little-endian bytes, or
// in "externalData" as {"location": "weights.bin", "offset": 0, "length": 24}.
// If "name" is missing, defaultName is used.
func tensorFromStruct(defaultName string, s *structpb.Struct) (*Tensor, error) {
	fields := s.GetFields()
	t := &Tensor{Name: defaultName}
	if name := fields["name"].GetStringValue(); name != "" {
		t.Name = name
	}
	dtValue, found := fields["dataType"]
	if !found {
		return nil, errors.Errorf("tensor %q has no dataType", t.Name)
	}
	code, err := dataTypeFromJSON(dtValue)
	if err != nil {
		return nil, errors.WithMessagef(err, "tensor %q", t.Name)
	}
	t.Data.DType, err = ONNXToWebNNDataType(int32(code))
	if err != nil {
		return nil, errors.WithMessagef(err, "tensor %q", t.Name)
	}
	t.Dims, _ = ParseJSONInts(s, "dims")

	if external := fields["externalData"].GetStructValue(); external != nil {
		t.External, err = externalDataFromStruct(external)
		if err != nil {
			return nil, errors.WithMessagef(err, "tensor %q", t.Name)
		}
	} else if raw, found := fields["rawData"]; found {
		t.Data.Raw, err = base64.StdEncoding.DecodeString(raw.GetStringValue())
		if err != nil {
			return nil, errors.Wrapf(err, "tensor %q has invalid rawData", t.Name)
		}
		if t.Data.Raw == nil {
			t.Data.Raw = []byte{}
		}
	} else {
		values, _ := ParseJSONFloats(s, "data")
		ints, _ := ParseJSONInts(s, "data")
		if len(ints) != len(values) && t.Data.DType != Float32 && t.Data.DType != Float16 {
			return nil, errors.Errorf("tensor %q of type %s has non-integer data", t.Name, t.Data.DType)
		}
		setTensorValues(&t.Data, values, ints)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// setTensorValues fills the typed slice for d.DType: float types take values, integer types take ints.
func setTensorValues(d *TensorData, values []float32, ints []int64) {
	switch d.DType {
	case Float32:
		d.Float32s = values
	case Float16:
		d.Float16s = sliceMap(values, func(v float32) uint16 { return float16.Fromfloat32(v).Bits() })
	case Int32:
		d.Int32s = sliceMap(ints, func(v int64) int32 { return int32(v) })
	case Uint32:
		d.Uint32s = sliceMap(ints, func(v int64) uint32 { return uint32(v) })
	case Int64:
		d.Int64s = ints
	case Uint64:
		d.Uint64s = sliceMap(ints, func(v int64) uint64 { return uint64(v) })
	case Int8:
		d.Int8s = sliceMap(ints, func(v int64) int8 { return int8(v) })
	case Uint8:
		d.Uint8s = sliceMap(ints, func(v int64) uint8 { return uint8(v) })
	}
}
