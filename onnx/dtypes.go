package onnx

import (
	"strings"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// DataType is a WebNN operand data type.
type DataType int

const (
	DataTypeInvalid DataType = iota
	Float32
	Float16
	Int32
	Uint32
	Int64
	Uint64
	Int8
	Uint8
)

var dataTypeNames = map[DataType]string{
	Float32: "float32",
	Float16: "float16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Int8:    "int8",
	Uint8:   "uint8",
}

// String implements fmt.Stringer, with the WebNN names ("float32", "int64", ...).
func (dt DataType) String() string {
	if name, found := dataTypeNames[dt]; found {
		return name
	}
	return "invalid"
}

// ParseDataType parses the WebNN name of a data type, case-insensitive.
func ParseDataType(name string) (DataType, error) {
	lower := strings.ToLower(name)
	for dt, dtName := range dataTypeNames {
		if dtName == lower {
			return dt, nil
		}
	}
	return DataTypeInvalid, errors.Errorf("unknown WebNN data type %q", name)
}

// Size in bytes of one element.
func (dt DataType) Size() int {
	switch dt {
	case Int8, Uint8:
		return 1
	case Float16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Int64, Uint64:
		return 8
	default:
		return 0
	}
}

// ONNXDataType is the value of ONNX TensorProto.DataType.
type ONNXDataType int32

const (
	ONNXUndefined  ONNXDataType = 0
	ONNXFloat      ONNXDataType = 1
	ONNXUint8      ONNXDataType = 2
	ONNXInt8       ONNXDataType = 3
	ONNXUint16     ONNXDataType = 4
	ONNXInt16      ONNXDataType = 5
	ONNXInt32      ONNXDataType = 6
	ONNXInt64      ONNXDataType = 7
	ONNXString     ONNXDataType = 8
	ONNXBool       ONNXDataType = 9
	ONNXFloat16    ONNXDataType = 10
	ONNXDouble     ONNXDataType = 11
	ONNXUint32     ONNXDataType = 12
	ONNXUint64     ONNXDataType = 13
	ONNXComplex64  ONNXDataType = 14
	ONNXComplex128 ONNXDataType = 15
	ONNXBFloat16   ONNXDataType = 16
)

var onnxDataTypeNames = map[ONNXDataType]string{
	ONNXUndefined:  "UNDEFINED",
	ONNXFloat:      "FLOAT",
	ONNXUint8:      "UINT8",
	ONNXInt8:       "INT8",
	ONNXUint16:     "UINT16",
	ONNXInt16:      "INT16",
	ONNXInt32:      "INT32",
	ONNXInt64:      "INT64",
	ONNXString:     "STRING",
	ONNXBool:       "BOOL",
	ONNXFloat16:    "FLOAT16",
	ONNXDouble:     "DOUBLE",
	ONNXUint32:     "UINT32",
	ONNXUint64:     "UINT64",
	ONNXComplex64:  "COMPLEX64",
	ONNXComplex128: "COMPLEX128",
	ONNXBFloat16:   "BFLOAT16",
}

// String implements fmt.Stringer, with the ONNX enum names.
func (dt ONNXDataType) String() string {
	if name, found := onnxDataTypeNames[dt]; found {
		return name
	}
	return "UNKNOWN"
}

// WebNNToONNXDataType converts a WebNN data type to its ONNX code.
func WebNNToONNXDataType(dt DataType) ONNXDataType {
	switch dt {
	case Float32:
		return ONNXFloat
	case Float16:
		return ONNXFloat16
	case Int32:
		return ONNXInt32
	case Uint32:
		return ONNXUint32
	case Int64:
		return ONNXInt64
	case Uint64:
		return ONNXUint64
	case Int8:
		return ONNXInt8
	case Uint8:
		return ONNXUint8
	default:
		return ONNXUndefined
	}
}

// ONNXToWebNNDataType converts an ONNX data type code to the WebNN data type.
// Codes WebNN has no operand type for (bool, double, string, ...) or that are not valid ONNX codes are an error.
func ONNXToWebNNDataType(code int32) (DataType, error) {
	switch ONNXDataType(code) {
	case ONNXFloat:
		return Float32, nil
	case ONNXFloat16:
		return Float16, nil
	case ONNXInt32:
		return Int32, nil
	case ONNXUint32:
		return Uint32, nil
	case ONNXInt64:
		return Int64, nil
	case ONNXUint64:
		return Uint64, nil
	case ONNXInt8:
		return Int8, nil
	case ONNXUint8:
		return Uint8, nil
	default:
		return DataTypeInvalid, errors.Errorf("unsupported ONNX data type %d (%s)", code, ONNXDataType(code))
	}
}

// DTypeForONNX converts an ONNX data type to a GoMLX data type.
func DTypeForONNX(onnxDType ONNXDataType) (dtypes.DType, error) {
	switch onnxDType {
	case ONNXFloat:
		return dtypes.Float32, nil
	case ONNXFloat16:
		return dtypes.Float16, nil
	case ONNXBFloat16:
		return dtypes.BFloat16, nil
	case ONNXDouble:
		return dtypes.Float64, nil
	case ONNXInt32:
		return dtypes.Int32, nil
	case ONNXInt64:
		return dtypes.Int64, nil
	case ONNXUint8:
		return dtypes.Uint8, nil
	case ONNXInt8:
		return dtypes.Int8, nil
	case ONNXInt16:
		return dtypes.Int16, nil
	case ONNXUint16:
		return dtypes.Uint16, nil
	case ONNXUint32:
		return dtypes.Uint32, nil
	case ONNXUint64:
		return dtypes.Uint64, nil
	case ONNXBool:
		return dtypes.Bool, nil
	case ONNXComplex64:
		return dtypes.Complex64, nil
	case ONNXComplex128:
		return dtypes.Complex128, nil
	default:
		return dtypes.InvalidDType, errors.Errorf("unsupported/unknown ONNX data type %v", onnxDType)
	}
}

// DType returns the GoMLX data type equivalent to the WebNN data type.
func (dt DataType) DType() dtypes.DType {
	dtype, err := DTypeForONNX(WebNNToONNXDataType(dt))
	if err != nil {
		return dtypes.InvalidDType
	}
	return dtype
}
