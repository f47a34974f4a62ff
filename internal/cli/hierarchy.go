package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/mvp-joe/apisummarizer/internal/graph"
	"github.com/mvp-joe/apisummarizer/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	hierarchyOp    string
	hierarchyDepth int
	hierarchyMax   int
	hierarchyJSON  bool
)

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <class>",
	Short: "Show supertypes, subtypes or implementors of a class",
	Long: `Hierarchy builds the type graph of every cataloged class and walks it from
the given class.

Operations:
  supertypes    superclass and interfaces, up to --depth levels
  subtypes      classes and interfaces extending or implementing the class
  implementors  concrete classes below an interface, at any depth

Examples:
  apisummarizer hierarchy com.example.Service --op implementors
  apisummarizer hierarchy com.example.impl.ServiceImpl --depth 5
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, r *storage.CatalogReader) error {
			req := &graph.QueryRequest{
				Operation:  graph.QueryOperation(hierarchyOp),
				Target:     decl.BinaryName(args[0]),
				Depth:      hierarchyDepth,
				MaxResults: hierarchyMax,
			}
			return queryHierarchy(ctx, cmd.OutOrStdout(), r, req, hierarchyJSON)
		})
	},
}

func init() {
	rootCmd.AddCommand(hierarchyCmd)
	hierarchyCmd.Flags().StringVar(&hierarchyOp, "op", string(graph.OperationSupertypes), "Operation: supertypes, subtypes or implementors")
	hierarchyCmd.Flags().IntVarP(&hierarchyDepth, "depth", "d", graph.DefaultDepth, "Traversal depth")
	hierarchyCmd.Flags().IntVar(&hierarchyMax, "max", graph.DefaultMaxResults, "Maximum results")
	hierarchyCmd.Flags().BoolVar(&hierarchyJSON, "json", false, "Print the raw query response as JSON")
}

func queryHierarchy(ctx context.Context, out io.Writer, r *storage.CatalogReader, req *graph.QueryRequest, asJSON bool) error {
	summary, err := r.LoadSummary(ctx)
	if err != nil {
		return err
	}
	h, err := graph.Build(summary, logrus.StandardLogger())
	if err != nil {
		return err
	}
	resp, err := h.Query(ctx, req)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(out, "%s of %s\n", resp.Operation, resp.Target)
	for _, res := range resp.Results {
		kind := strings.ToLower(string(res.Node.Kind))
		if res.Node.External {
			kind = "external"
		}
		fmt.Fprintf(out, "%s%s (%s, %s)\n", strings.Repeat("  ", res.Depth), res.Node.ID, kind, res.Via)
	}
	if resp.Truncated {
		fmt.Fprintf(out, "... %d of %d shown\n", resp.TotalReturned, resp.TotalFound)
	}
	return nil
}
