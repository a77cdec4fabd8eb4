package scan

import (
	"sync"
	"time"
)

// DefaultStages are the status lines shown while an offer is "scanned".
var DefaultStages = []string{
	"Scanning offer against galactic databases...",
	"Analyzing market data across the universe...",
	"Calculating optimal trajectories...",
	"Compiling mission intelligence report...",
}

// AdvanceFunc receives the stage index and the completed fraction (index+1)/N.
type AdvanceFunc func(index int, fraction float64)

// Sequencer drives an ordered list of stages through fixed-interval transitions.
type Sequencer struct {
	interval   time.Duration
	finalDelay time.Duration
	sched      Scheduler
}

type Option func(*Sequencer)

// WithScheduler replaces the runtime timers, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(seq *Sequencer) {
		if s != nil {
			seq.sched = s
		}
	}
}

// NewSequencer advances one stage every interval and completes finalDelay
// after the last stage.
func NewSequencer(interval, finalDelay time.Duration, opts ...Option) *Sequencer {
	s := &Sequencer{interval: interval, finalDelay: finalDelay, sched: RealScheduler}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State is the observable position of a run.
type State struct {
	StageIndex        int
	ElapsedStageCount int
	Complete          bool
	Cancelled         bool
}

// Run is one started sequence.
//
// Callbacks run with the run's lock held, so they are strictly ordered and
// Cancel waits for an in-flight callback. A callback must not call Cancel on
// its own run.
type Run struct {
	seq        *Sequencer
	stages     []string
	onAdvance  AdvanceFunc
	onComplete func()

	mu        sync.Mutex
	timer     Timer
	index     int
	elapsed   int
	complete  bool
	cancelled bool
	done      chan struct{}
}

// Start fires onAdvance(0, 1/N) before returning and schedules the rest.
// Either callback may be nil.
func (s *Sequencer) Start(stages []string, onAdvance AdvanceFunc, onComplete func()) *Run {
	r := &Run{
		seq:        s,
		stages:     append([]string(nil), stages...),
		onAdvance:  onAdvance,
		onComplete: onComplete,
		done:       make(chan struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stages) == 0 {
		r.timer = s.sched.AfterFunc(s.finalDelay, r.finish)
		return r
	}
	r.fireLocked()
	r.scheduleLocked()
	return r
}

func (r *Run) fireLocked() {
	r.elapsed++
	if r.onAdvance != nil {
		r.onAdvance(r.index, float64(r.index+1)/float64(len(r.stages)))
	}
}

func (r *Run) scheduleLocked() {
	if r.index < len(r.stages)-1 {
		r.timer = r.seq.sched.AfterFunc(r.seq.interval, r.tick)
		return
	}
	r.timer = r.seq.sched.AfterFunc(r.seq.finalDelay, r.finish)
}

func (r *Run) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || r.complete {
		return
	}
	r.index++
	r.fireLocked()
	r.scheduleLocked()
}

func (r *Run) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || r.complete {
		return
	}
	r.complete = true
	r.timer = nil
	if r.onComplete != nil {
		r.onComplete()
	}
	close(r.done)
}

// Cancel stops the run. Once it returns no callback is executing and none
// will fire. It reports false when the run had already finished.
func (r *Run) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled || r.complete {
		return false
	}
	r.cancelled = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	close(r.done)
	return true
}

// Done is closed after completion or cancellation.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		StageIndex:        r.index,
		ElapsedStageCount: r.elapsed,
		Complete:          r.complete,
		Cancelled:         r.cancelled,
	}
}

// Stages returns the stage messages of the run.
func (r *Run) Stages() []string {
	return append([]string(nil), r.stages...)
}
