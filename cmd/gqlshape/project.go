package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/gqlshape"
)

func newProjectCmd() *cobra.Command {
	var (
		input   string
		output  string
		graphql bool
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "project <query>",
		Short: "Project a JSON or YAML document through a selection",
		Long: `Reads a JSON or YAML document from --input (or stdin) and writes the
projection selected by <query>. An empty query copies every key.`,
		Example: `  echo '{"user_name": "ann", "age": 30}' | gqlshape project --case camel 'user_name'
  gqlshape project -i orders.yaml -o yaml --graphql '{ id items { sku } }'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			doc, err := readDocument(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}

			var opts []gqlshape.CallOption
			if graphql {
				opts = append(opts, gqlshape.WithGraphQLSyntax())
			}
			out, err := gqlshape.Serialize(cmd.Context(), doc, query, opts...)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), out, output, !compact)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "-", "Input file; - reads stdin")
	f.StringVarP(&output, "output", "o", "json", "Output format: json|yaml")
	f.BoolVar(&graphql, "graphql", false, "Read the query as a GraphQL document")
	f.BoolVar(&compact, "compact", false, "Write single-line JSON")
	return cmd
}

// readDocument decodes JSON or YAML; YAML is a superset, so one decoder covers
// both.
func readDocument(stdin io.Reader, path string) (any, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return doc, nil
}

func writeDocument(w io.Writer, v any, format string, indent bool) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		if indent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
