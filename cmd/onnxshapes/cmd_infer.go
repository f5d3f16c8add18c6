package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/rustnn/webnn-onnx-utils/onnx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

type inferOptions struct {
	bindings  []string
	batchSize int64
	strict    bool
	jobs      int
	all       bool
	describe  bool
	trace     bool
}

func newInferCmd() *cobra.Command {
	opts := &inferOptions{}
	cmd := &cobra.Command{
		Use:   "infer MODEL.json [MODEL.json...]",
		Short: "Infer the shapes of the values of ONNX models",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inferHandler(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	cmd.Flags().StringArrayVar(&opts.bindings, "bind", nil, "Bind a symbolic dimension, as name=value. Can be repeated")
	cmd.Flags().Int64Var(&opts.batchSize, "batch-size", 0, "Bind the symbolic leading dimension of every input to this value")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on the first node whose shape cannot be inferred")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Number of models processed in parallel")
	cmd.Flags().BoolVar(&opts.all, "all", false, "List every value, not only the graph inputs and outputs")
	cmd.Flags().BoolVar(&opts.describe, "describe", false, "Print a summary of each model")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print the dependency chain of each unresolved graph output")
	return cmd
}

// inferHandler processes the models in parallel, and prints the reports in the order the models were given.
func inferHandler(ctx context.Context, w io.Writer, opts *inferOptions, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	bindings, err := parseBindings(opts.bindings)
	if err != nil {
		return err
	}
	reports := make([]bytes.Buffer, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))
	for ii, path := range paths {
		g.Go(func() error {
			m, err := onnx.ReadFile(path)
			if err != nil {
				return err
			}
			sr := onnx.NewShapeResolver(m).
				WithBindings(bindings).
				WithBatchSize(opts.batchSize).
				WithStrict(opts.strict)
			if err := sr.PropagateShapes(ctx); err != nil {
				return errors.WithMessagef(err, "model %s", path)
			}
			klog.V(1).Infof("%s: %d values inferred, %d unresolved", path, len(sr.Names()), len(sr.Unresolved()))
			writeReport(&reports[ii], path, opts, sr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for ii := range reports {
		if _, err := reports[ii].WriteTo(w); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
	}
	return nil
}

// writeReport writes the table of shapes of one model.
func writeReport(w io.Writer, path string, opts *inferOptions, sr *onnx.ShapeResolver) {
	m := sr.Model()
	fmt.Fprintf(w, "%s:\n", path)
	if opts.describe {
		fmt.Fprint(w, m.String())
	}
	if bindings := sr.Bindings(); len(bindings) > 0 {
		fmt.Fprintf(w, "bindings: %s\n", bindings.Key())
	}

	names := append(m.InputsNames(), m.OutputsNames()...)
	if opts.all {
		names = sr.Names()
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"VALUE", "SHAPE", "ELEMENTS", "DTYPE", "SOURCE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, name := range names {
		shape, elements := "?", "?"
		if s, found := sr.GetShape(name); found {
			shape = s.String()
			if size, ok := s.Size(sr.Bindings()); ok {
				elements = humanize.Comma(size)
			}
		}
		dtype := "?"
		if dt, found := sr.DType(name); found {
			dtype = dt.String()
		}
		info := sr.ShapeInfo(name)
		source := info.Provenance.String()
		if info.SourceOp != "" {
			source = fmt.Sprintf("%s (%s)", source, info.SourceOp)
		}
		table.Append([]string{name, shape, elements, dtype, source})
	}
	table.Render()

	for _, value := range sr.Unresolved() {
		fmt.Fprintf(w, "unresolved %q: %v\n", value.Name, value.Err)
		if required := sr.RequiredBindings(value.Name); len(required) > 0 {
			fmt.Fprintf(w, "\tmissing bindings: %s\n", strings.Join(required, ", "))
		}
	}
	if opts.trace {
		for _, output := range m.OutputsNames() {
			if _, found := sr.GetShape(output); !found {
				fmt.Fprint(w, sr.TraceDependencies(output))
			}
		}
	}
	fmt.Fprintln(w)
}
