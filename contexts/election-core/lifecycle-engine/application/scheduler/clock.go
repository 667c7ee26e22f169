package scheduler

import (
	"log/slog"
	"sync"
	"time"

	application "ballotcore/contexts/election-core/lifecycle-engine/application"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// PhaseClock turns the two wall-clock instants of an election window into two
// one-shot triggers. Instants are truncated to minute granularity; sub-minute
// precision is intentionally lost. A boundary that is already in the past at
// registration time fires immediately instead of never.
type PhaseClock struct {
	clock  ports.Clock
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*clockEntry

	// afterFunc is swapped out by tests to fire triggers deterministically.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

type clockEntry struct {
	start *time.Timer
	end   *time.Timer
}

func NewPhaseClock(clock ports.Clock, logger *slog.Logger) *PhaseClock {
	return &PhaseClock{
		clock:     clock,
		logger:    application.ResolveLogger(logger),
		entries:   make(map[string]*clockEntry),
		afterFunc: time.AfterFunc,
	}
}

// Schedule registers both boundary triggers for an election. Registration is
// idempotent per (election, boundary): a boundary that already has a trigger,
// fired or pending, is left untouched.
func (pc *PhaseClock) Schedule(
	electionID string,
	startTime time.Time,
	endTime time.Time,
	onStart func(),
	onEnd func(),
) error {
	if electionID == "" {
		return domainerrors.ErrInvalidElectionInput
	}
	if !startTime.Before(endTime) {
		return domainerrors.ErrElectionWindow
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	entry, ok := pc.entries[electionID]
	if !ok {
		entry = &clockEntry{}
		pc.entries[electionID] = entry
	}

	now := pc.clock.Now().UTC()
	if entry.start == nil {
		entry.start = pc.arm(electionID, "start", startTime, now, onStart)
	}
	if entry.end == nil {
		entry.end = pc.arm(electionID, "end", endTime, now, onEnd)
	}
	return nil
}

// Cancel stops both triggers and forgets the election. Pending boundaries are
// abandoned; without this, triggers leak for the life of the process.
func (pc *PhaseClock) Cancel(electionID string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	entry, ok := pc.entries[electionID]
	if !ok {
		return
	}
	if entry.start != nil {
		entry.start.Stop()
	}
	if entry.end != nil {
		entry.end.Stop()
	}
	delete(pc.entries, electionID)

	pc.logger.Info("phase clock cancelled",
		"event", "phase_clock_cancelled",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"election_id", electionID,
	)
}

// Registered reports whether an election currently holds trigger handles.
func (pc *PhaseClock) Registered(electionID string) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	_, ok := pc.entries[electionID]
	return ok
}

func (pc *PhaseClock) arm(
	electionID string,
	boundary string,
	at time.Time,
	now time.Time,
	fire func(),
) *time.Timer {
	delay := at.UTC().Truncate(time.Minute).Sub(now)
	if delay < 0 {
		delay = 0
	}
	pc.logger.Info("phase clock trigger armed",
		"event", "phase_clock_armed",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"election_id", electionID,
		"boundary", boundary,
		"delay", delay.String(),
	)
	return pc.afterFunc(delay, fire)
}
