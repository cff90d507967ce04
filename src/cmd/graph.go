package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VectorBits/Reentry/src/internal/callgraph"
	sa "github.com/VectorBits/Reentry/src/internal/static_analyzer"
	"github.com/VectorBits/Reentry/src/internal/ui"
)

type graphOptions struct {
	depth    int
	function string
}

func newGraphCmd() *cobra.Command {
	var o graphOptions
	c := &cobra.Command{
		Use:   "graph <path>",
		Short: "Print the call tree, or the neighbourhood of one function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := renderGraph(cmd.Context(), o, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	c.Flags().IntVar(&o.depth, "depth", 0, "maximum tree depth (default from settings)")
	c.Flags().StringVar(&o.function, "function", "", "focus on Contract.function")
	return c
}

func renderGraph(_ context.Context, o graphOptions, path string) (string, error) {
	p, err := sa.LoadProgram(path)
	if err != nil {
		return "", err
	}
	g := callgraph.Build(p)
	depth := o.depth
	if depth <= 0 {
		depth = appCfg.Analysis.CallTreeDepth
	}
	if o.function == "" {
		return g.Tree(depth), nil
	}

	contractName, fnName, ok := strings.Cut(o.function, ".")
	if !ok {
		return "", fmt.Errorf("--function must be Contract.function, got %q", o.function)
	}
	f := g.FindFunction(contractName, fnName)
	if f == nil {
		return "", fmt.Errorf("function %s not found", o.function)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s%s (%s)\n\n", ui.Bold, f.Key(), ui.Reset, f.Visibility)
	b.WriteString(g.Subtree(f, depth))
	fmt.Fprintf(&b, "\nReachable functions: %d\n", len(g.CalleesRecursive(f, depth)))
	b.WriteString("\nCall chains from entry points:\n")
	for _, chain := range g.CallChainsToEntry(f) {
		names := make([]string, len(chain))
		for i, fn := range chain {
			names[i] = fn.Key()
		}
		fmt.Fprintf(&b, "  %s\n", strings.Join(names, " -> "))
	}
	return b.String(), nil
}
