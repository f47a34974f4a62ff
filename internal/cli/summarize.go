package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/mvp-joe/apisummarizer/internal/cache"
	"github.com/mvp-joe/apisummarizer/internal/config"
	"github.com/mvp-joe/apisummarizer/internal/discovery"
	"github.com/mvp-joe/apisummarizer/internal/export"
	"github.com/mvp-joe/apisummarizer/internal/graph"
	"github.com/mvp-joe/apisummarizer/internal/storage"
	"github.com/mvp-joe/apisummarizer/internal/summarizer"
	"github.com/mvp-joe/apisummarizer/internal/watcher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	watchFlag      bool
	quietFlag      bool
	outputFlag     string
	formatFlag     string
	bestEffortFlag bool
	noCatalogFlag  bool
	hierarchyFlag  string
	workersFlag    int
	duplicatesFlag string
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [paths...]",
	Short: "Summarize class files, jars and class directories",
	Long: `Summarize parses every class file reachable from the given paths and writes
one declaration per class, keyed by binary name.

Paths may be directories (searched with inputs.include and inputs.exclude),
single .class files, .jar/.zip archives or afs URLs such as s3:// or gs://.
With no paths the project directory is summarized.

By default the first malformed input ends the run. With --best-effort the
remaining inputs are still summarized and failures are logged.

Examples:
  # Summarize compiled classes to stdout as JSON
  apisummarizer summarize build/classes

  # Summarize a jar into a YAML file and keep watching for rebuilds
  apisummarizer summarize -o api.yaml --watch target/app.jar

  # Skip broken inputs and also write the type hierarchy
  apisummarizer summarize --best-effort --hierarchy hierarchy.json lib/
`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch local inputs and re-summarize on change")
	summarizeCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	summarizeCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default stdout)")
	summarizeCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: json, yaml or cbor")
	summarizeCmd.Flags().BoolVar(&bestEffortFlag, "best-effort", false, "Skip failing inputs instead of stopping")
	summarizeCmd.Flags().BoolVar(&noCatalogFlag, "no-catalog", false, "Do not record the run in the catalog")
	summarizeCmd.Flags().StringVar(&hierarchyFlag, "hierarchy", "", "Also write the type hierarchy to this file")
	summarizeCmd.Flags().IntVar(&workersFlag, "workers", 0, "Parallel parsers (default from config)")
	summarizeCmd.Flags().StringVar(&duplicatesFlag, "duplicates", "", "Duplicate class policy: overwrite or reject")
}

// applySummarizeFlags overrides configuration with flags set on the command line.
func applySummarizeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = outputFlag
	}
	if flags.Changed("format") {
		cfg.Output.Format = formatFlag
	}
	if flags.Changed("best-effort") && bestEffortFlag {
		cfg.Summarize.Mode = config.ModeBestEffort
	}
	if flags.Changed("no-catalog") && noCatalogFlag {
		cfg.Storage.Enabled = false
	}
	if flags.Changed("hierarchy") {
		cfg.Output.Hierarchy = hierarchyFlag
	}
	if flags.Changed("workers") {
		cfg.Summarize.Workers = workersFlag
	}
	if flags.Changed("duplicates") {
		cfg.Summarize.Duplicates = duplicatesFlag
	}
}

func runSummarize(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, dir, err := loadConfig()
	if err != nil {
		return err
	}
	applySummarizeFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	roots := args
	if len(roots) == 0 {
		roots = []string{dir}
	}

	p, err := newPipeline(pipelineOptions{
		Config:     cfg,
		ProjectDir: dir,
		Roots:      roots,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		Quiet:      quietFlag,
		Log:        logrus.StandardLogger(),
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.summarize(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("summarize cancelled")
		}
		return err
	}

	if !watchFlag {
		return nil
	}
	return p.watch(ctx)
}

type pipelineOptions struct {
	Config     *config.Config
	ProjectDir string
	Roots      []string
	Stdout     io.Writer // summary output when no output path is set
	Stderr     io.Writer // progress output
	Quiet      bool
	Log        logrus.FieldLogger
}

// pipeline runs discovery, summarization and the writers. It is reused
// across watch-mode runs so the declaration cache and catalog stay open.
type pipeline struct {
	opts       pipelineOptions
	format     export.Format
	discovery  *discovery.Discovery
	summarizer *summarizer.Summarizer
	progress   *CLIProgressReporter
	decls      *cache.DeclCache
	catalog    *storage.Catalog
	previous   summarizer.Summary
}

func newPipeline(opts pipelineOptions) (*pipeline, error) {
	cfg := opts.Config
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	disc, err := discovery.New(cfg.DiscoveryConfig(), opts.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery: %w", err)
	}
	duplicates, err := summarizer.ParseDuplicatePolicy(cfg.Summarize.Duplicates)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		opts:      opts,
		format:    format,
		discovery: disc,
		progress:  NewCLIProgressReporter(opts.Stderr, opts.Quiet),
	}

	sopts := []summarizer.Option{
		summarizer.WithLogger(opts.Log),
		summarizer.WithWorkers(cfg.Summarize.Workers),
		summarizer.WithDuplicatePolicy(duplicates),
		summarizer.WithProgress(p.progress),
	}
	if cfg.Summarize.CacheSize > 0 {
		if p.decls, err = cache.NewDeclCache(cfg.Summarize.CacheSize); err != nil {
			return nil, err
		}
		sopts = append(sopts, summarizer.WithCache(p.decls))
	}
	p.summarizer = summarizer.New(sopts...)

	if cfg.Storage.Enabled {
		path, err := cfg.CatalogPath(opts.ProjectDir)
		if err != nil {
			p.Close()
			return nil, err
		}
		if p.catalog, err = storage.Open(path); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		opts.Log.WithField("catalog", path).Debug("catalog opened")
	}

	return p, nil
}

func (p *pipeline) Close() error {
	var errs []error
	if p.catalog != nil {
		errs = append(errs, p.catalog.Close())
		p.catalog = nil
	}
	if p.decls != nil {
		p.decls.Close()
		p.decls = nil
	}
	return errors.Join(errs...)
}

// summarize performs one discover, summarize and write pass.
func (p *pipeline) summarize(ctx context.Context) (summarizer.Summary, error) {
	started := time.Now()
	cfg := p.opts.Config

	res, err := p.discovery.Discover(ctx, p.opts.Roots...)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	defer res.Close()

	var summary summarizer.Summary
	if cfg.BestEffort() {
		var failures []*summarizer.InputError
		summary, failures, err = p.summarizer.RunBestEffort(ctx, res.Providers)
		for _, f := range failures {
			p.opts.Log.WithFields(logrus.Fields{
				"input": f.Input,
				"kind":  f.Kind,
			}).WithError(f.Err).Warn("skipped input")
		}
		if err != nil {
			return nil, err
		}
	} else {
		if summary, err = p.summarizer.Run(ctx, res.Providers); err != nil {
			return nil, fmt.Errorf("summarize failed: %w", err)
		}
	}

	if err := p.writeSummary(summary); err != nil {
		return nil, err
	}
	if err := p.writeCatalog(ctx, started, summary); err != nil {
		return nil, err
	}
	if err := p.writeHierarchy(summary); err != nil {
		return nil, err
	}

	p.previous = summary
	return summary, nil
}

func (p *pipeline) writeSummary(summary summarizer.Summary) error {
	path := p.opts.Config.Output.Path
	if path == "" {
		return export.Encode(p.opts.Stdout, p.format, summary)
	}
	if err := export.WriteFile(path, export.FormatForPath(path, p.format), summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	p.opts.Log.WithField("path", path).Debug("summary written")
	return nil
}

// writeCatalog records the run. Classes that disappeared since the previous
// run of this pipeline are removed from the catalog.
func (p *pipeline) writeCatalog(ctx context.Context, started time.Time, summary summarizer.Summary) error {
	if p.catalog == nil {
		return nil
	}

	var removed []string
	for name := range p.previous {
		if _, ok := summary[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)

	w := p.catalog.Writer()
	if len(removed) > 0 {
		if err := w.DeleteClasses(ctx, removed...); err != nil {
			return fmt.Errorf("failed to remove classes from catalog: %w", err)
		}
	}

	run := storage.NewRunRecord(p.opts.Config.Summarize.Mode, started, p.progress.Stats())
	if err := w.WriteRun(ctx, run, summary); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	p.opts.Log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"classes": len(summary),
		"removed": len(removed),
	}).Info("catalog updated")
	return nil
}

func (p *pipeline) writeHierarchy(summary summarizer.Summary) error {
	path := p.opts.Config.Output.Hierarchy
	if path == "" {
		return nil
	}
	h, err := graph.Build(summary, p.opts.Log)
	if err != nil {
		return fmt.Errorf("failed to build hierarchy: %w", err)
	}
	data, err := h.Export()
	if err != nil {
		return fmt.Errorf("failed to export hierarchy: %w", err)
	}
	if err := export.WriteFile(path, export.FormatForPath(path, export.FormatJSON), data); err != nil {
		return fmt.Errorf("failed to write hierarchy: %w", err)
	}
	return nil
}

// watch re-runs summarize whenever a local root changes. Remote roots are
// re-read on every run but never trigger one.
func (p *pipeline) watch(ctx context.Context) error {
	var paths []string
	for _, root := range p.opts.Roots {
		if local, ok := discovery.LocalPath(root); ok {
			paths = append(paths, local)
		}
	}
	if len(paths) == 0 {
		return errors.New("watch mode needs at least one local input")
	}

	files, err := watcher.NewFileWatcher(paths, watcher.WithLogger(p.opts.Log))
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	runner := watcher.RunnerFunc(func(ctx context.Context, changed []string) error {
		p.opts.Log.WithField("files", changed).Debug("changed inputs")
		_, err := p.summarize(ctx)
		return err
	})
	coord := watcher.NewWatchCoordinator(files, runner, p.opts.Log)

	p.opts.Log.WithField("roots", len(paths)).Info("watching for changes")
	if err := coord.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}
	p.opts.Log.Info("watch mode stopped")
	return nil
}
