package scheduler

import (
	"context"
	"log/slog"
	"time"

	application "ballotcore/contexts/election-core/lifecycle-engine/application"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// Wire-level broadcast contract. Observers depend on these names; payloads
// stay empty and clients fetch current state from the ledger.
const (
	ElectionTopic      = "election"
	StartElectionEvent = "start-election-event"
	EndElectionEvent   = "end-election-event"
)

const defaultPublishTimeout = 5 * time.Second

// ElectionScheduler owns the phase clock and maps trigger firings onto
// broadcast phase events. A transition that fails to broadcast still logically
// occurred: publish faults are logged and swallowed, and subscribers reconcile
// by fetching authoritative phase from the ledger.
type ElectionScheduler struct {
	Publisher      ports.EventPublisher
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Phases         ports.PhaseStore
	PublishTimeout time.Duration
	Logger         *slog.Logger

	clock *PhaseClock
}

func NewElectionScheduler(
	publisher ports.EventPublisher,
	clock ports.Clock,
	idGen ports.IDGenerator,
	phases ports.PhaseStore,
	logger *slog.Logger,
) *ElectionScheduler {
	return &ElectionScheduler{
		Publisher: publisher,
		Clock:     clock,
		IDGen:     idGen,
		Phases:    phases,
		Logger:    logger,
		clock:     NewPhaseClock(clock, logger),
	}
}

// Register arms both phase triggers for an election. Safe to call repeatedly
// for the same election; duplicate registrations never duplicate firings.
func (s *ElectionScheduler) Register(election entities.Election) error {
	electionID := election.ElectionID
	err := s.clock.Schedule(
		electionID,
		election.StartTime,
		election.EndTime,
		func() { s.fire(electionID, entities.PhaseEventStart, StartElectionEvent) },
		func() { s.fire(electionID, entities.PhaseEventEnd, EndElectionEvent) },
	)
	if err != nil {
		// SchedulingError is non-fatal: the election proceeds with polled phase
		// resolution only.
		application.ResolveLogger(s.Logger).Error("scheduler registration failed",
			"event", "scheduler_register_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return err
	}
	application.ResolveLogger(s.Logger).Info("election triggers registered",
		"event", "scheduler_registered",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"election_id", electionID,
		"start_time", election.StartTime.UTC().Format(time.RFC3339),
		"end_time", election.EndTime.UTC().Format(time.RFC3339),
	)
	return nil
}

// Cancel drops both triggers for a superseded or deleted election.
func (s *ElectionScheduler) Cancel(electionID string) {
	s.clock.Cancel(electionID)
}

// Registered reports whether an election already holds trigger handles.
func (s *ElectionScheduler) Registered(electionID string) bool {
	return s.clock.Registered(electionID)
}

func (s *ElectionScheduler) fire(
	electionID string,
	kind entities.PhaseEventKind,
	eventName string,
) {
	logger := application.ResolveLogger(s.Logger)
	now := s.Clock.Now().UTC()

	// The local phase store advances even when the broadcast fails; the
	// transition happened regardless of who heard about it.
	if s.Phases != nil {
		s.Phases.Apply(entities.PhaseEvent{
			Kind:       kind,
			ElectionID: electionID,
			FiredAt:    now,
		})
	}

	timeout := s.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("phase event id generation failed",
			"event", "scheduler_event_id_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "application",
			"election_id", electionID,
			"event_name", eventName,
			"error", err.Error(),
		)
		return
	}

	envelope := ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventName,
		OccurredAt:       now,
		SourceService:    "lifecycle-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     electionID,
	}
	if err := s.Publisher.Publish(ctx, ElectionTopic, envelope); err != nil {
		logger.Error("phase event publish failed",
			"event", "scheduler_publish_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "application",
			"election_id", electionID,
			"event_name", eventName,
			"error", err.Error(),
		)
		return
	}
	logger.Info("phase event published",
		"event", "scheduler_phase_event_published",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"election_id", electionID,
		"event_name", eventName,
		"event_id", eventID,
	)
}

var _ ports.PhaseTriggers = (*ElectionScheduler)(nil)
