package main

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rustnn/webnn-onnx-utils/onnx"
	"github.com/spf13/cobra"
)

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops [FILTER]",
		Short: "List the WebNN operations and their ONNX operator, optionally filtered by a name prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter string
			if len(args) > 0 {
				filter = args[0]
			}
			opsHandler(cmd.OutOrStdout(), filter)
			return nil
		},
	}
}

func opsHandler(w io.Writer, filter string) {
	filter = strings.ToLower(filter)
	var data [][]string
	for _, pair := range onnx.OpNames().Pairs() {
		webnnOp, onnxOp := pair[0], pair[1]
		if filter != "" && !strings.HasPrefix(strings.ToLower(webnnOp), filter) &&
			!strings.HasPrefix(strings.ToLower(onnxOp), filter) {
			continue
		}
		rule := "-"
		if family, found := onnx.OpFamily(onnxOp); found {
			rule = family.String()
		} else if onnx.SupportedOps(onnxOp) {
			rule = "special"
		}
		data = append(data, []string{webnnOp, onnxOp, rule})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"WEBNN", "ONNX", "SHAPE RULE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(data)
	table.Render()
}
