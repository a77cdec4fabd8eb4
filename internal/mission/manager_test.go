package mission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"raiserocket/internal/logger/loggertest"
	"raiserocket/internal/models"
	"raiserocket/internal/report"
	"raiserocket/internal/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	interval   = 1200 * time.Millisecond
	finalDelay = 1000 * time.Millisecond
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *countingGenerator) Generate(ctx context.Context, in *models.IntakeRecord) (*models.MissionReport, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return report.Mock{}.Generate(ctx, in)
}

type harness struct {
	sched *scan.ManualScheduler
	clock *fakeClock
	gen   *countingGenerator
	mgr   *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sched: scan.NewManualScheduler(),
		clock: &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		gen:   &countingGenerator{},
	}
	seq := scan.NewSequencer(interval, finalDelay, scan.WithScheduler(h.sched))
	h.mgr = NewManager(seq, h.gen, loggertest.New(t), WithClock(h.clock.Now))
	t.Cleanup(h.mgr.Shutdown)
	return h
}

func TestStartRunsToCompletion(t *testing.T) {
	h := newHarness(t)
	rec := models.ManualIntake("twenty characters ok")

	snap := h.mgr.Start(context.Background(), "v1", rec)
	assert.Equal(t, StatusScanning, snap.Status)
	assert.Equal(t, 0, snap.StageIndex)
	assert.Equal(t, 4, snap.StageCount)
	assert.Equal(t, 25, snap.Progress)
	assert.Equal(t, scan.DefaultStages[0], snap.Message)
	assert.Nil(t, snap.Report)

	h.sched.Advance(3 * interval)
	snap, ok := h.mgr.Status("v1")
	require.True(t, ok)
	assert.Equal(t, StatusScanning, snap.Status)
	assert.Equal(t, 3, snap.StageIndex)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, int32(0), h.gen.calls.Load(), "no report before the terminal delay")

	h.sched.Advance(finalDelay)
	snap, _ = h.mgr.Status("v1")
	assert.Equal(t, StatusComplete, snap.Status)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 65, snap.Report.MarketPercentile)
	assert.NotNil(t, snap.CompletedAt)
	assert.True(t, snap.Done())
	assert.Equal(t, int32(1), h.gen.calls.Load())

	h.sched.Advance(time.Hour)
	assert.Equal(t, int32(1), h.gen.calls.Load())
}

func TestRestartDiscardsPreviousRun(t *testing.T) {
	h := newHarness(t)
	rec := models.ManualIntake("twenty characters ok")

	first := h.mgr.Start(context.Background(), "v1", rec)
	h.sched.Advance(2 * interval)

	second := h.mgr.Start(context.Background(), "v1", rec)
	assert.Greater(t, second.Generation, first.Generation)
	assert.Equal(t, 0, second.StageIndex)
	assert.Equal(t, StatusScanning, second.Status)

	h.sched.Advance(3*interval + finalDelay)
	snap, _ := h.mgr.Status("v1")
	assert.Equal(t, StatusComplete, snap.Status)
	assert.Equal(t, int32(1), h.gen.calls.Load(), "only the latest run generates")
	assert.Equal(t, 0, h.sched.Pending())
}

func TestCancelStopsScan(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(context.Background(), "v1", nil)
	h.sched.Advance(interval)

	require.True(t, h.mgr.Cancel("v1", 0))
	assert.False(t, h.mgr.Cancel("v1", 0))

	snap, _ := h.mgr.Status("v1")
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, 1, snap.StageIndex)

	h.sched.Advance(time.Hour)
	snap, _ = h.mgr.Status("v1")
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, 1, snap.StageIndex)
	assert.Equal(t, int32(0), h.gen.calls.Load())
}

func TestCancelIgnoresReplacedGeneration(t *testing.T) {
	h := newHarness(t)
	rec := models.ManualIntake("twenty characters ok")

	first := h.mgr.Start(context.Background(), "v1", rec)
	h.sched.Advance(interval)
	second := h.mgr.Start(context.Background(), "v1", rec)
	require.NotEqual(t, first.Generation, second.Generation)

	assert.False(t, h.mgr.Cancel("v1", first.Generation), "teardown of the replaced view")
	snap, _ := h.mgr.Status("v1")
	assert.Equal(t, StatusScanning, snap.Status)
	assert.Equal(t, second.Generation, snap.Generation)

	h.sched.Advance(3*interval + finalDelay)
	snap, _ = h.mgr.Status("v1")
	assert.Equal(t, StatusComplete, snap.Status)
	assert.Equal(t, int32(1), h.gen.calls.Load())
}

func TestCancelMatchingGeneration(t *testing.T) {
	h := newHarness(t)
	snap := h.mgr.Start(context.Background(), "v1", nil)

	require.True(t, h.mgr.Cancel("v1", snap.Generation))
	h.sched.Advance(time.Hour)
	snap, _ = h.mgr.Status("v1")
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, int32(0), h.gen.calls.Load())
}

func TestCancelUnknownVisitor(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.mgr.Cancel("nobody", 0))
	_, ok := h.mgr.Status("nobody")
	assert.False(t, ok)
}

func TestVisitorsAreIndependent(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(context.Background(), "a", nil)
	h.mgr.Start(context.Background(), "b", nil)
	h.mgr.Cancel("a", 0)

	h.sched.Advance(3*interval + finalDelay)
	a, _ := h.mgr.Status("a")
	b, _ := h.mgr.Status("b")
	assert.Equal(t, StatusCancelled, a.Status)
	assert.Equal(t, StatusComplete, b.Status)
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	h := newHarness(t)
	ch, unsubscribe := h.mgr.Subscribe("v1")
	defer unsubscribe()

	select {
	case <-ch:
		t.Fatal("nothing to deliver before a scan starts")
	default:
	}

	h.mgr.Start(context.Background(), "v1", nil)
	snap := <-ch
	assert.Equal(t, StatusScanning, snap.Status)

	// nobody reads while the scan runs; only the last value is kept
	h.sched.Advance(3*interval + finalDelay)
	snap = <-ch
	assert.Equal(t, StatusComplete, snap.Status)
	require.NotNil(t, snap.Report)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot: %+v", extra)
	default:
	}
}

func TestSubscribeAfterStartGetsCurrent(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(context.Background(), "v1", nil)
	h.sched.Advance(interval)

	ch, unsubscribe := h.mgr.Subscribe("v1")
	snap := <-ch
	assert.Equal(t, 1, snap.StageIndex)

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestGeneratorFailure(t *testing.T) {
	h := newHarness(t)
	h.gen.err = errors.New("backend down")
	h.mgr.Start(context.Background(), "v1", nil)
	h.sched.Advance(3*interval + finalDelay)

	snap, _ := h.mgr.Status("v1")
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Nil(t, snap.Report)
	assert.NotEmpty(t, snap.Error)
}

func TestSweepDropsIdleVisitors(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(context.Background(), "idle", nil)
	h.mgr.Start(context.Background(), "watching", nil)
	_, unsubscribe := h.mgr.Subscribe("watching")
	defer unsubscribe()
	h.sched.Advance(3*interval + finalDelay)

	h.clock.Add(time.Minute)
	assert.Equal(t, 0, h.mgr.Sweep(time.Hour))

	h.clock.Add(2 * time.Hour)
	assert.Equal(t, 1, h.mgr.Sweep(time.Hour))
	_, ok := h.mgr.Status("idle")
	assert.False(t, ok)
	_, ok = h.mgr.Status("watching")
	assert.True(t, ok)
}

func TestSweepCancelsRunningScan(t *testing.T) {
	h := newHarness(t)
	h.mgr.Start(context.Background(), "v1", nil)
	h.clock.Add(2 * time.Hour)

	assert.Equal(t, 1, h.mgr.Sweep(time.Hour))
	h.sched.Advance(time.Hour)
	assert.Equal(t, int32(0), h.gen.calls.Load())
	assert.Equal(t, 0, h.sched.Pending())
}

func TestCustomStages(t *testing.T) {
	sched := scan.NewManualScheduler()
	seq := scan.NewSequencer(interval, finalDelay, scan.WithScheduler(sched))
	mgr := NewManager(seq, report.Mock{}, nil, WithStages([]string{"one", "two"}))
	defer mgr.Shutdown()

	snap := mgr.Start(context.Background(), "v1", nil)
	assert.Equal(t, 2, snap.StageCount)
	assert.Equal(t, 50, snap.Progress)
	assert.Equal(t, "one", snap.Message)

	sched.Advance(interval + finalDelay)
	snap, _ = mgr.Status("v1")
	assert.Equal(t, StatusComplete, snap.Status)
}
