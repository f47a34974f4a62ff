// Package summarizer runs the class file parser over an ordered list of
// inputs and collects the resulting declarations into a Summary keyed by
// binary name.
package summarizer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mvp-joe/apisummarizer/internal/decl"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Summary maps dotted binary names to declarations.
type Summary map[string]*decl.ClassDecl

// DuplicatePolicy decides what happens when two inputs declare the same class.
type DuplicatePolicy int

const (
	// DuplicateOverwrite keeps the declaration from the later input.
	DuplicateOverwrite DuplicatePolicy = iota
	// DuplicateReject fails the later input with ErrDuplicateClass.
	DuplicateReject
)

func (p DuplicatePolicy) String() string {
	if p == DuplicateReject {
		return "reject"
	}
	return "overwrite"
}

// ParseDuplicatePolicy accepts "overwrite" or "reject".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "overwrite", "":
		return DuplicateOverwrite, nil
	case "reject":
		return DuplicateReject, nil
	}
	return DuplicateOverwrite, fmt.Errorf("unknown duplicate policy %q", s)
}

// Cache stores declarations by class file content.
type Cache interface {
	Get(data []byte) (*decl.ClassDecl, bool)
	Put(data []byte, d *decl.ClassDecl)
}

// Option configures a Summarizer.
type Option func(*Summarizer)

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(s *Summarizer) { s.duplicates = p }
}

// WithWorkers parses up to n inputs concurrently. Values below 2 keep the
// run sequential.
func WithWorkers(n int) Option {
	return func(s *Summarizer) { s.workers = n }
}

func WithCache(c Cache) Option {
	return func(s *Summarizer) { s.cache = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Summarizer) { s.log = l }
}

func WithProgress(p ProgressReporter) Option {
	return func(s *Summarizer) { s.progress = p }
}

// Summarizer turns class file inputs into a Summary. It holds no per-run
// state and may be reused.
type Summarizer struct {
	duplicates DuplicatePolicy
	workers    int
	cache      Cache
	log        logrus.FieldLogger
	progress   ProgressReporter
}

func New(opts ...Option) *Summarizer {
	s := &Summarizer{
		log:      logrus.StandardLogger(),
		progress: NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run summarizes providers in order and stops at the first failing input.
// On failure the Summary is nil and the error is an *InputError.
func (s *Summarizer) Run(ctx context.Context, providers []StreamProvider) (Summary, error) {
	r := s.newRun(providers, true)
	r.process(ctx)
	summary, errs := r.merge()
	r.finish(summary)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return summary, nil
}

// RunBestEffort summarizes every input it can and reports the ones it could
// not. The returned error is non-nil only when ctx ended the run early; the
// partial Summary is still returned.
func (s *Summarizer) RunBestEffort(ctx context.Context, providers []StreamProvider) (Summary, []*InputError, error) {
	r := s.newRun(providers, false)
	r.process(ctx)
	summary, errs := r.merge()
	r.finish(summary)
	return summary, errs, ctx.Err()
}

type outcome struct {
	decl *decl.ClassDecl
	err  error
}

// run is the state of one Run or RunBestEffort call.
type run struct {
	*Summarizer
	providers []StreamProvider
	failFast  bool
	outcomes  []outcome
	started   time.Time

	mu    sync.Mutex
	stats Stats
}

func (s *Summarizer) newRun(providers []StreamProvider, failFast bool) *run {
	r := &run{
		Summarizer: s,
		providers:  providers,
		failFast:   failFast,
		outcomes:   make([]outcome, len(providers)),
		started:    time.Now(),
	}
	r.stats.Inputs = len(providers)
	r.progress.OnStart(len(providers))
	return r
}

func (r *run) process(ctx context.Context) {
	if r.workers > 1 && len(r.providers) > 1 {
		r.processParallel(ctx)
		return
	}
	for i := range r.providers {
		if err := ctx.Err(); err != nil {
			r.outcomes[i].err = err
			return
		}
		if !r.processOne(ctx, i) && r.failFast {
			return
		}
	}
}

// processParallel fans inputs out to an errgroup. In fail-fast mode the first
// failure cancels the group context; inputs not yet started then record the
// cancellation instead of opening their stream.
func (r *run) processParallel(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range r.providers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				r.outcomes[i].err = err
				return nil
			}
			if !r.processOne(gctx, i) && r.failFast {
				return r.outcomes[i].err
			}
			return nil
		})
	}
	_ = g.Wait() // errors are kept per input in outcomes
}

// processOne summarizes input i into r.outcomes[i] and reports success.
func (r *run) processOne(ctx context.Context, i int) bool {
	p := r.providers[i]
	log := r.log.WithFields(logrus.Fields{"input": p.Name(), "index": i})

	d, hit, err := r.summarize(ctx, p)
	r.outcomes[i] = outcome{decl: d, err: err}

	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.stats.CacheHits++
	}
	r.progress.OnInputDone(p.Name(), err)
	if err != nil {
		log.WithError(err).Debug("input failed")
		return false
	}
	log.WithField("class", d.BinaryName).Debug("summarized input")
	return true
}

// summarize opens, reads, parses and closes one input. A close failure turns
// an otherwise successful input into a ResourceError.
func (r *run) summarize(ctx context.Context, p StreamProvider) (d *decl.ClassDecl, hit bool, err error) {
	rc, err := p.Open(ctx)
	if err != nil {
		return nil, false, &ResourceError{Op: OpOpen, Input: p.Name(), Err: err}
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			d, hit, err = nil, false, &ResourceError{Op: OpClose, Input: p.Name(), Err: cerr}
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, &ResourceError{Op: OpRead, Input: p.Name(), Err: err}
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(data); ok {
			return cached, true, nil
		}
	}
	d, err = decl.Build(data)
	if err != nil {
		return nil, false, err
	}
	if r.cache != nil {
		r.cache.Put(data, d)
	}
	return d, false, nil
}

// merge inserts successful outcomes in provider order, applying the duplicate
// policy, and converts failures to InputErrors. In fail-fast mode it returns
// the real failure with the lowest index; a cancellation only counts when
// nothing else failed, since it is a consequence of that failure.
func (r *run) merge() (Summary, []*InputError) {
	summary := Summary{}
	seen := make(map[string]int, len(r.outcomes))
	var errs []*InputError
	var cancelled *InputError

	for i, o := range r.outcomes {
		name := r.providers[i].Name()
		if o.err != nil {
			ie := newInputError(i, name, o.err)
			r.stats.Failed++
			if r.failFast {
				if ie.Kind != KindCancelled {
					return nil, []*InputError{ie}
				}
				if cancelled == nil {
					cancelled = ie
				}
				continue
			}
			r.log.WithFields(logrus.Fields{"input": name, "kind": ie.Kind}).WithError(o.err).Warn("skipping input")
			errs = append(errs, ie)
			continue
		}
		if o.decl == nil {
			continue // never started
		}

		class := o.decl.BinaryName
		if first, ok := seen[class]; ok {
			r.stats.Duplicates++
			if r.duplicates == DuplicateReject {
				ie := newInputError(i, name, fmt.Errorf("%w: %s already declared by input #%d (%s)",
					ErrDuplicateClass, class, first, r.providers[first].Name()))
				r.stats.Failed++
				if r.failFast {
					return nil, []*InputError{ie}
				}
				errs = append(errs, ie)
				continue
			}
			r.log.WithFields(logrus.Fields{"class": class, "input": name}).
				Debugf("overwriting declaration from input #%d", first)
		}
		seen[class] = i
		summary[class] = o.decl
	}

	if cancelled != nil {
		return nil, []*InputError{cancelled}
	}
	return summary, errs
}

func (r *run) finish(summary Summary) {
	r.stats.Classes = len(summary)
	r.stats.Elapsed = time.Since(r.started)
	r.progress.OnComplete(&r.stats)
}
