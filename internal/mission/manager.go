// Package mission ties the intake record, the scan sequencer and the report
// generator together for each visitor.
package mission

import (
	"context"
	"math"
	"sync"
	"time"

	"raiserocket/internal/logger"
	"raiserocket/internal/metrics"
	"raiserocket/internal/models"
	"raiserocket/internal/report"
	"raiserocket/internal/scan"
)

const DefaultGenerateTimeout = 10 * time.Second

type Manager struct {
	seq       *scan.Sequencer
	generator report.Generator
	stages    []string
	log       logger.Logger
	now       func() time.Time
	timeout   time.Duration

	mu    sync.Mutex
	state map[string]*visitorState
}

type Option func(*Manager)

func WithStages(stages []string) Option {
	return func(m *Manager) {
		m.stages = append([]string(nil), stages...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithGenerateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func NewManager(seq *scan.Sequencer, gen report.Generator, log logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	m := &Manager{
		seq:       seq,
		generator: gen,
		stages:    scan.DefaultStages,
		log:       log,
		now:       time.Now,
		timeout:   DefaultGenerateTimeout,
		state:     make(map[string]*visitorState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start (re)starts the scan for visitorID. Any previous run is cancelled
// first and its callbacks can no longer touch the visitor's state. The
// returned snapshot already shows stage 0.
func (m *Manager) Start(ctx context.Context, visitorID string, record *models.IntakeRecord) Snapshot {
	st := m.lockState(visitorID)
	defer st.opMu.Unlock()

	m.stopRunLocked(st, visitorID)

	now := m.now()
	st.mu.Lock()
	st.generation++
	gen := st.generation
	st.lastSeen = now
	st.snapshot = Snapshot{
		Generation: gen,
		Status:     StatusScanning,
		StageCount: len(m.stages),
		StartedAt:  now,
		UpdatedAt:  now,
	}
	st.publishLocked()
	st.mu.Unlock()

	metrics.ScansStarted.Inc()
	metrics.ActiveScans.Inc()
	log := m.log.WithFields(map[string]interface{}{"visitor": visitorID, "generation": gen})
	log.Debug("scan started", map[string]interface{}{"stages": len(m.stages)})

	stages := m.stages
	run := m.seq.Start(stages,
		func(index int, fraction float64) {
			st.update(gen, func(s *Snapshot) {
				s.StageIndex = index
				s.Message = stages[index]
				s.Progress = int(math.Round(fraction * 100))
				s.UpdatedAt = m.now()
			})
		},
		func() {
			m.complete(ctx, st, gen, record, log)
		},
	)

	st.mu.Lock()
	if st.generation == gen && st.snapshot.Status == StatusScanning {
		st.run = run
	}
	snap := st.snapshot
	st.mu.Unlock()
	return snap
}

func (m *Manager) complete(ctx context.Context, st *visitorState, gen uint64, record *models.IntakeRecord, log logger.Logger) {
	started := func() time.Time {
		st.mu.RLock()
		defer st.mu.RUnlock()
		return st.snapshot.StartedAt
	}()

	// the request that started the scan is long gone; keep its values only
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()
	rep, err := m.generator.Generate(genCtx, record)
	if err == nil {
		err = rep.Validate()
	}

	snap, ok := st.update(gen, func(s *Snapshot) {
		done := m.now()
		s.UpdatedAt = done
		s.CompletedAt = &done
		if err != nil {
			s.Status = StatusFailed
			s.Error = "Mission analysis failed, please try again"
			return
		}
		s.Status = StatusComplete
		s.Report = rep
		if s.StageCount > 0 {
			s.Progress = 100
		}
	})
	if !ok {
		// torn down while generating
		metrics.ActiveScans.Dec()
		return
	}
	st.mu.Lock()
	st.run = nil
	st.mu.Unlock()

	metrics.ActiveScans.Dec()
	if err != nil {
		metrics.ScansFinished.WithLabelValues(string(StatusFailed)).Inc()
		log.WithError(err).Error("report generation failed", nil)
		return
	}
	metrics.ScansFinished.WithLabelValues(string(StatusComplete)).Inc()
	metrics.ScanDuration.Observe(snap.CompletedAt.Sub(started).Seconds())
	log.Info("scan complete", map[string]interface{}{"percentile": rep.MarketPercentile})
}

// Status returns the visitor's latest snapshot. ok is false when no scan was
// ever started or the state was dropped.
func (m *Manager) Status(visitorID string) (Snapshot, bool) {
	st := m.getState(visitorID)
	if st == nil {
		return Snapshot{}, false
	}
	st.touch(m.now())
	return st.current()
}

// Subscribe delivers the current snapshot and every later change. A slow
// reader only ever sees the newest value. The channel is closed by the
// returned func or when the visitor state is dropped.
func (m *Manager) Subscribe(visitorID string) (<-chan Snapshot, func()) {
	st := m.ensureState(visitorID)
	st.touch(m.now())
	return st.subscribe()
}

// Cancel stops an in-flight scan. A non-zero generation only matches the
// scan that Start reported with it, so a late teardown from a replaced view
// leaves the newer scan running. Once it returns no further stage or
// completion for the stopped scan is observable. It reports whether a scan
// was actually stopped.
func (m *Manager) Cancel(visitorID string, generation uint64) bool {
	st := m.getState(visitorID)
	if st == nil {
		return false
	}
	st.opMu.Lock()
	defer st.opMu.Unlock()
	if st.closed {
		return false
	}
	if generation != 0 {
		st.mu.RLock()
		current := st.generation
		st.mu.RUnlock()
		if generation != current {
			m.log.Debug("ignoring teardown of replaced scan", map[string]interface{}{
				"visitor":    visitorID,
				"generation": generation,
				"current":    current,
			})
			return false
		}
	}
	return m.stopRunLocked(st, visitorID)
}

// stopRunLocked cancels the current run. st.opMu must be held.
func (m *Manager) stopRunLocked(st *visitorState, visitorID string) bool {
	st.mu.Lock()
	run := st.run
	st.run = nil
	st.mu.Unlock()
	if run == nil || !run.Cancel() {
		return false
	}

	// any callback that was in flight has returned; bump the generation so
	// nothing scheduled before this point can match again
	st.mu.Lock()
	st.generation++
	st.snapshot.Generation = st.generation
	st.snapshot.Status = StatusCancelled
	st.snapshot.UpdatedAt = m.now()
	st.publishLocked()
	st.mu.Unlock()

	metrics.ActiveScans.Dec()
	metrics.ScansFinished.WithLabelValues(string(StatusCancelled)).Inc()
	m.log.Debug("scan cancelled", map[string]interface{}{"visitor": visitorID})
	return true
}

// StartJanitor drops visitor state that has not been touched for ttl.
func (m *Manager) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(ttl); n > 0 {
					m.log.Info("dropped idle visitor state", map[string]interface{}{"count": n})
				}
			}
		}
	}()
}

// Sweep removes visitors idle for longer than ttl and returns how many.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)
	var expired []*visitorState
	m.mu.Lock()
	for id, st := range m.state {
		if st.idleSince(cutoff) {
			delete(m.state, id)
			expired = append(expired, st)
		}
	}
	m.mu.Unlock()

	for _, st := range expired {
		m.teardown(st)
	}
	return len(expired)
}

// Shutdown cancels every scan and drops all state.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*visitorState, 0, len(m.state))
	for id, st := range m.state {
		all = append(all, st)
		delete(m.state, id)
	}
	m.mu.Unlock()
	for _, st := range all {
		m.teardown(st)
	}
}

func (m *Manager) teardown(st *visitorState) {
	st.opMu.Lock()
	defer st.opMu.Unlock()
	st.mu.Lock()
	run := st.run
	st.run = nil
	st.generation++
	st.closed = true
	st.closeSubscribersLocked()
	st.mu.Unlock()
	if run != nil && run.Cancel() {
		metrics.ActiveScans.Dec()
		metrics.ScansFinished.WithLabelValues(string(StatusCancelled)).Inc()
	}
}

// lockState returns the live state for visitorID with opMu held.
func (m *Manager) lockState(visitorID string) *visitorState {
	for {
		st := m.ensureState(visitorID)
		st.opMu.Lock()
		if !st.closed {
			return st
		}
		st.opMu.Unlock()
	}
}

func (m *Manager) ensureState(visitorID string) *visitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.state[visitorID]; ok {
		return st
	}
	st := newVisitorState(m.now())
	m.state[visitorID] = st
	return st
}

func (m *Manager) getState(visitorID string) *visitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[visitorID]
}
