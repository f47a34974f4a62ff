package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mvp-joe/apisummarizer/internal/config"
	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/mvp-joe/apisummarizer/internal/export"
	"github.com/mvp-joe/apisummarizer/internal/storage"
	"github.com/spf13/cobra"
)

var (
	showFormat     string
	listImplements string
	runsLimit      int
)

var showCmd = &cobra.Command{
	Use:   "show <class>",
	Short: "Print the recorded declaration of one class",
	Long: `Show reads one class back from the catalog written by summarize.
The class is named by its dotted binary name, e.g. com.example.Outer$Inner.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, r *storage.CatalogReader) error {
			return showClass(ctx, cmd.OutOrStdout(), r, args[0], showFormat)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list [package]",
	Short: "List cataloged classes, optionally under a package",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return withCatalog(func(ctx context.Context, r *storage.CatalogReader) error {
			return listClasses(ctx, cmd.OutOrStdout(), r, prefix, listImplements)
		})
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent summarize runs recorded in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(ctx context.Context, r *storage.CatalogReader) error {
			return listRuns(ctx, cmd.OutOrStdout(), r, runsLimit)
		})
	},
}

func init() {
	rootCmd.AddCommand(showCmd, listCmd, runsCmd)
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "yaml", "Output format: json, yaml or cbor")
	listCmd.Flags().StringVar(&listImplements, "implements", "", "Only classes directly implementing this interface")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "Number of runs to show")
}

// withCatalog opens the project catalog read-only for the duration of fn.
func withCatalog(fn func(ctx context.Context, r *storage.CatalogReader) error) error {
	cfg, dir, err := loadConfig()
	if err != nil {
		return err
	}
	return readCatalog(context.Background(), cfg, dir, fn)
}

func readCatalog(ctx context.Context, cfg *config.Config, dir string, fn func(ctx context.Context, r *storage.CatalogReader) error) error {
	path, err := cfg.CatalogPath(dir)
	if err != nil {
		return err
	}
	catalog, err := storage.OpenReadOnly(path)
	if err != nil {
		if errors.Is(err, storage.ErrNoCatalog) {
			return fmt.Errorf("%w (run 'apisummarizer summarize' first)", err)
		}
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer catalog.Close()
	return fn(ctx, catalog.Reader())
}

func showClass(ctx context.Context, out io.Writer, r *storage.CatalogReader, name, format string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	d, err := r.GetClass(ctx, decl.BinaryName(name))
	if err != nil {
		return err
	}
	return export.Encode(out, f, d)
}

func listClasses(ctx context.Context, out io.Writer, r *storage.CatalogReader, prefix, implements string) error {
	rows, err := r.ListClasses(ctx, prefix)
	if err != nil {
		return err
	}

	if implements != "" {
		names, err := r.Implementors(ctx, decl.BinaryName(implements))
		if err != nil {
			return err
		}
		keep := make(map[string]bool, len(names))
		for _, n := range names {
			keep[n] = true
		}
		filtered := rows[:0]
		for _, row := range rows {
			if keep[row.BinaryName] {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	for _, row := range rows {
		fmt.Fprintf(out, "%-10s %-60s %3d fields %3d methods\n",
			strings.ToLower(string(row.Kind)), row.BinaryName, row.FieldCount, row.MethodCount)
	}
	fmt.Fprintf(out, "%s classes\n", formatNumber(len(rows)))
	return nil
}

func listRuns(ctx context.Context, out io.Writer, r *storage.CatalogReader, limit int) error {
	runs, err := r.Runs(ctx, limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Fprintf(out, "%s  %s  %-11s %6s classes %4d failed %4d duplicates  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Mode,
			formatNumber(run.Classes),
			run.Failed,
			run.Duplicates,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	return nil
}
