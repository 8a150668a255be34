package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanpama/gqlshape/internal/selection"
)

func newParseCmd() *cobra.Command {
	var (
		output  string
		graphql bool
	)
	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a selection and print its tree",
		Long: `Parses <query> and prints it back in canonical selection syntax, or as a
JSON/YAML tree with --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sel *selection.Tree
				err error
			)
			if graphql {
				sel, err = selection.FromGraphQL(args[0])
			} else {
				sel, err = selection.Parse(args[0])
			}
			if err != nil {
				return err
			}
			if output == "text" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), sel.String())
				return err
			}
			return writeDocument(cmd.OutOrStdout(), treeDocument(sel), output, true)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text|json|yaml")
	cmd.Flags().BoolVar(&graphql, "graphql", false, "Read the query as a GraphQL document")
	return cmd
}

// treeDocument converts t into plain maps for encoding.
func treeDocument(t *selection.Tree) []any {
	out := make([]any, 0, t.Len())
	if t == nil {
		return out
	}
	for _, n := range t.Nodes {
		m := map[string]any{"name": n.Name, "alias": n.Alias}
		if !n.IsLeaf() {
			m["children"] = treeDocument(n.Children)
		}
		out = append(out, m)
	}
	return out
}
