package onnx

import (
	"fmt"
	"strings"

	mlctx "github.com/gomlx/gomlx/pkg/ml/context"
)

var webnnNameReplacer = strings.NewReplacer(":", "_", ".", "_", "/", "_")

// SanitizeForWebNN converts an ONNX value name to a name usable as a WebNN operand: "::" becomes "__",
// and each ':', '.' or '/' becomes '_'.
func SanitizeForWebNN(onnxName string) string {
	return webnnNameReplacer.Replace(strings.ReplaceAll(onnxName, "::", "__"))
}

// IsValidWebNNIdentifier reports whether name matches [A-Za-z_][A-Za-z0-9_]*.
func IsValidWebNNIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		if isLetter || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// UniqueNamer generates names that are unique within one conversion: base_0, base_1, ...
// The counter is shared by all base names. It's not safe for concurrent use.
type UniqueNamer struct {
	counter int
}

// Next returns "<base>_<counter>" and increments the counter.
func (n *UniqueNamer) Next(base string) string {
	name := fmt.Sprintf("%s_%d", base, n.counter)
	n.counter++
	return name
}

// SafeVarName converts an ONNX value name to a GoMLX safe variable name by replacing the scope separator with a "|".
func SafeVarName(onnxName string) (gomlxName string) {
	return strings.ReplaceAll(onnxName, mlctx.ScopeSeparator, "|")
}
