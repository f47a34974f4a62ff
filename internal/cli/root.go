package cli

import (
	"fmt"
	"os"

	"github.com/mvp-joe/apisummarizer/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	projectDir string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "apisummarizer",
	Short: "Summarize the public structure of compiled JVM classes",
	Long: `apisummarizer reads .class files, jars and directories of classes and
produces a structural summary of every type: its kind, supertypes, fields,
methods, annotations and signatures. No source code is needed.

Summaries are written as JSON, YAML or CBOR and recorded in a local catalog
that the show, hierarchy and search commands read back.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", "", "project directory holding .apisummarizer/config.yml (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the project configuration and configures the standard
// logger from it. --verbose wins over log.level.
func loadConfig() (*config.Config, string, error) {
	dir := projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	cfg, err := config.LoadConfigFromDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}

	configureLogger(logrus.StandardLogger(), cfg.Log.Level, verbose)
	return cfg, dir, nil
}

func configureLogger(log *logrus.Logger, level string, verbose bool) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	log.SetLevel(lvl)
}
