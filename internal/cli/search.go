package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mvp-joe/apisummarizer/internal/search"
	"github.com/mvp-joe/apisummarizer/internal/storage"
	"github.com/spf13/cobra"
)

var (
	searchKind    string
	searchPackage string
	searchLimit   int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search cataloged class, field and method names",
	Long: `Search indexes every cataloged class and member name, split on camel case,
and runs a keyword query against it.

Examples:
  apisummarizer search "http client"
  apisummarizer search response --kind method --package com.example.http
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, r *storage.CatalogReader) error {
			opts := &search.Options{Limit: searchLimit, Kind: searchKind, Package: searchPackage}
			return searchCatalog(ctx, cmd.OutOrStdout(), r, args[0], opts, searchJSON)
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "Only class, field or method hits")
	searchCmd.Flags().StringVar(&searchPackage, "package", "", "Only hits in this package")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "Maximum results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
}

func searchCatalog(ctx context.Context, out io.Writer, r *storage.CatalogReader, query string, opts *search.Options, asJSON bool) error {
	summary, err := r.LoadSummary(ctx)
	if err != nil {
		return err
	}
	idx, err := search.NewIndex(ctx, summary)
	if err != nil {
		return err
	}
	defer idx.Close()

	results, err := idx.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, res := range results {
		fmt.Fprintf(out, "%-7s %s", res.Kind, res.ID)
		if res.Descriptor != "" && res.Kind == search.KindField {
			fmt.Fprintf(out, " %s", res.Descriptor)
		}
		fmt.Fprintf(out, "  (%.2f)\n", res.Score)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "no matches")
	}
	return nil
}
