package main

import (
	"flag"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rustnn/webnn-onnx-utils/shapeinference"
	"github.com/spf13/cobra"
)

// newRootCmd creates the command tree. goFlags (klog's flags) are added as persistent flags, if given.
func newRootCmd(goFlags *flag.FlagSet) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "onnxshapes",
		Short:         "Shape inference for ONNX graphs converted to WebNN",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	if goFlags != nil {
		rootCmd.PersistentFlags().AddGoFlagSet(goFlags)
	}
	rootCmd.AddCommand(newInferCmd(), newOpsCmd())
	return rootCmd
}

// parseBindings parses "name=value" pairs. The same name can be repeated only with the same value.
func parseBindings(pairs []string) (shapeinference.Bindings, error) {
	bindings := shapeinference.Bindings{}
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, errors.Errorf("invalid binding %q, expected name=value", pair)
		}
		extent, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value in binding %q", pair)
		}
		if err := bindings.Merge(shapeinference.Bindings{strings.TrimSpace(name): extent}); err != nil {
			return nil, err
		}
	}
	if err := bindings.Validate(); err != nil {
		return nil, err
	}
	return bindings, nil
}
