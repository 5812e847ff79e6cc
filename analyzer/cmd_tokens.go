package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abiiranathan/dot-analyzer/analyzer/defs"
	"github.com/abiiranathan/dot-analyzer/analyzer/dot"
	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

func newExpandCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expand FILE",
		Short: "Print a template with its defines and macros expanded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			expanded := a.cfg.Expander.Expand(string(data), scope.New())
			_, err = io.WriteString(cmd.OutOrStdout(), expanded)
			return err
		},
	}
}

func newTokensCmd(a *app) *cobra.Command {
	var defsOnly, tree, text bool

	cmd := &cobra.Command{
		Use:   "tokens FILE",
		Short: "Dump the tokens of a template as JSON",
		Long: "Dump the runtime tokens of the expanded template, or its compile-time\n" +
			"tokens with --defs. --tree nests runtime tokens in their sections.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ignoreText := !text
			w := cmd.OutOrStdout()

			if defsOnly {
				return encodeJSON(w, defs.Scan(string(data), defs.ScanOptions{IgnoreText: ignoreText}), false)
			}

			expanded := a.cfg.Expander.Expand(string(data), scope.New())
			tokens := dot.Scan(expanded, dot.ScanOptions{IgnoreText: ignoreText})
			if tree {
				if tokens, err = dot.Parse(tokens); err != nil {
					return err
				}
			}
			return encodeJSON(w, tokens, false)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&defsOnly, "defs", false, "dump compile-time tokens instead of runtime tokens")
	f.BoolVar(&tree, "tree", false, "nest runtime tokens in their sections")
	f.BoolVar(&text, "text", false, "include literal text tokens")
	cmd.MarkFlagsMutuallyExclusive("defs", "tree")
	return cmd
}
