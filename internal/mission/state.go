package mission

import (
	"sync"
	"time"

	"raiserocket/internal/models"
	"raiserocket/internal/scan"
)

type Status string

const (
	StatusScanning  Status = "scanning"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Snapshot is what a visitor's assessment view shows at one instant.
type Snapshot struct {
	Generation  uint64                `json:"generation"`
	Status      Status                `json:"status"`
	StageIndex  int                   `json:"stageIndex"`
	StageCount  int                   `json:"stageCount"`
	Message     string                `json:"message"`
	Progress    int                   `json:"progress"`
	Report      *models.MissionReport `json:"-"`
	Error       string                `json:"error,omitempty"`
	StartedAt   time.Time             `json:"startedAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
}

// Done reports whether the snapshot will not change without a new Start.
func (s Snapshot) Done() bool {
	return s.Status != StatusScanning
}

type visitorState struct {
	// opMu serializes Start, Cancel and teardown. It is never held by
	// sequencer callbacks.
	opMu sync.Mutex

	mu sync.RWMutex
	// closed is written with both locks held.
	closed     bool
	run        *scan.Run
	generation uint64
	snapshot   Snapshot
	lastSeen   time.Time
	subs       map[int]chan Snapshot
	nextSub    int
}

func newVisitorState(now time.Time) *visitorState {
	return &visitorState{
		lastSeen: now,
		subs:     make(map[int]chan Snapshot),
	}
}

func (s *visitorState) current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.generation > 0
}

func (s *visitorState) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// update applies fn if gen is still current and fans the result out.
func (s *visitorState) update(gen uint64, fn func(*Snapshot)) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return Snapshot{}, false
	}
	fn(&s.snapshot)
	s.publishLocked()
	return s.snapshot, true
}

func (s *visitorState) publishLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.snapshot:
		default:
			// drop the stale value so the newest one is always delivered
			select {
			case <-ch:
			default:
			}
			ch <- s.snapshot
		}
	}
}

func (s *visitorState) subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.generation > 0 {
		ch <- s.snapshot
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *visitorState) closeSubscribersLocked() {
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *visitorState) idleSince(cutoff time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen.Before(cutoff) && len(s.subs) == 0
}
