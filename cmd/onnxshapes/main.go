// onnxshapes infers the shapes of the values of ONNX models given in JSON, as they would be converted to WebNN.
//
// Usage:
//
//	onnxshapes infer --batch-size=8 --bind seq=128 model.json
//	onnxshapes ops
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()
	if err := newRootCmd(flag.CommandLine).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		klog.Flush()
		os.Exit(1)
	}
}
