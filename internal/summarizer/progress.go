package summarizer

import "time"

// ProgressReporter receives progress callbacks during a run. Calls are
// serialized even when inputs are parsed in parallel.
type ProgressReporter interface {
	// OnStart is called once with the number of inputs.
	OnStart(total int)

	// OnInputDone is called after each input, with its error if it failed.
	OnInputDone(input string, err error)

	// OnComplete is called when the run finishes, successfully or not.
	OnComplete(stats *Stats)
}

// Stats summarizes one run.
type Stats struct {
	Inputs     int
	Classes    int
	Failed     int
	Duplicates int
	CacheHits  int
	Elapsed    time.Duration
}

// NoOpProgressReporter discards all progress.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnStart(int)               {}
func (NoOpProgressReporter) OnInputDone(string, error) {}
func (NoOpProgressReporter) OnComplete(*Stats)         {}
