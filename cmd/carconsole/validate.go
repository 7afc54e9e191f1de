package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/carconsole/pkg/layout"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <layout-file>",
		Short: "Parse a layout document and print its tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := layout.ParseFile(args[0])
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}

// printTree writes one indented line per node.
func printTree(w io.Writer, doc *layout.Document) {
	if len(doc.Windows) == 0 {
		fmt.Fprintln(w, "(no windows)")
		return
	}
	doc.Walk(func(n *layout.Node, depth int) bool {
		line := n.String()
		if n.Weight != 0 && n.Parent() != nil && n.Parent().Kind == layout.KindSplit {
			line += fmt.Sprintf(" weight=%g", n.Weight)
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), line)
		return true
	})
}
