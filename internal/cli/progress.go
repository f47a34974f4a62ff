package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/apisummarizer/internal/summarizer"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter shows a progress bar while inputs are summarized and
// keeps the stats of the last run.
type CLIProgressReporter struct {
	quiet  bool
	out    io.Writer
	bar    *progressbar.ProgressBar
	failed int
	last   *summarizer.Stats
}

// NewCLIProgressReporter creates a reporter that draws to out. A quiet
// reporter only records stats.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, out: out}
}

func (c *CLIProgressReporter) OnStart(total int) {
	c.failed = 0
	c.last = nil
	if c.quiet {
		return
	}
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Summarizing classes"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("classes/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnInputDone(input string, err error) {
	if err != nil {
		c.failed++
	}
	if c.bar != nil {
		c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *summarizer.Stats) {
	c.last = stats
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
	if c.quiet || stats == nil {
		return
	}

	fmt.Fprintf(c.out, "✓ Summarized %s classes from %s inputs in %.1fs\n",
		formatNumber(stats.Classes), formatNumber(stats.Inputs), stats.Elapsed.Seconds())
	if stats.Failed > 0 {
		fmt.Fprintf(c.out, "  Failed inputs: %s\n", formatNumber(stats.Failed))
	}
	if stats.Duplicates > 0 {
		fmt.Fprintf(c.out, "  Duplicates:    %s\n", formatNumber(stats.Duplicates))
	}
	if stats.CacheHits > 0 {
		fmt.Fprintf(c.out, "  Cache hits:    %s\n", formatNumber(stats.CacheHits))
	}
}

// Stats returns the stats of the last completed run, or nil.
func (c *CLIProgressReporter) Stats() *summarizer.Stats {
	return c.last
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
