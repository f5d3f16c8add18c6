package onnx

import (
	"bytes"
	"fmt"
	"strings"
)

// String implements fmt.Stringer, and pretty prints model information.
func (m *Model) String() string {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		if len(args) == 0 {
			buf.WriteString(format)
		} else {
			buf.WriteString(fmt.Sprintf(format, args...))
		}
	}
	w("ONNX Model:\n")
	if m.DocString != "" {
		w("%s\n", m.DocString)
	}
	if m.ProducerName != "" {
		w("\tProducer:\t%s / %s\n", m.ProducerName, m.ProducerVersion)
	}
	w("\tIR Version:\t%d\n", m.IRVersion)
	w("\tOpset:\t\tv%d\n", m.OpsetVersion)
	if m.Graph.Name != "" {
		w("\tGraph:\t\t%s\n", m.Graph.Name)
	}
	w("\t# nodes:\t%d\n", len(m.Graph.Nodes))
	w("\tOp types:\t%#v\n", m.usedOpTypes())
	if len(m.Graph.Initializers) > 0 {
		w("\t# initializers:\t%d\n", len(m.Graph.Initializers))
	}

	writeValues := func(title string, infos []*ValueInfo) {
		if len(infos) == 0 {
			return
		}
		w("\t%s:\n", title)
		for _, vi := range infos {
			shape := "?"
			if vi.HasShape {
				shape = vi.Shape.String()
			}
			w("\t\t%q: %s %s\n", vi.Name, vi.DataType, shape)
		}
	}
	writeValues("Inputs", m.Graph.Inputs)
	writeValues("Outputs", m.Graph.Outputs)

	if len(m.Metadata) > 0 {
		parts := sliceMap(m.Metadata, func(prop MetadataProp) string { return prop.Key + "=" + prop.Value })
		w("\tMetadata: [%s]\n", strings.Join(parts, ", "))
	}
	return buf.String()
}
