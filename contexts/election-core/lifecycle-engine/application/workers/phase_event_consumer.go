package workers

import (
	"context"
	"log/slog"
	"time"

	application "ballotcore/contexts/election-core/lifecycle-engine/application"
	"ballotcore/contexts/election-core/lifecycle-engine/application/scheduler"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// PhaseEventConsumer feeds the validator's phase cache from the broadcast
// channel. Phase event payloads are empty by wire contract; the election
// identity rides on the envelope partition key, and an envelope without one
// falls back to a full phase refresh against the ledger.
type PhaseEventConsumer struct {
	Subscriber ports.EventSubscriber
	Phases     ports.PhaseStore
	Ledger     ports.Ledger
	Clock      ports.Clock
	Disabled   bool
	Logger     *slog.Logger
}

// Start registers both election phase subscriptions.
func (c PhaseEventConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("phase event consumer disabled by feature flag",
			"event", "phase_consumer_disabled",
			"module", "election-core/lifecycle-engine",
			"layer", "worker",
		)
		return nil
	}
	if err := c.Subscriber.Subscribe(
		ctx,
		scheduler.ElectionTopic,
		scheduler.StartElectionEvent,
		c.handler(entities.PhaseEventStart),
	); err != nil {
		logger.Error("phase consumer subscribe failed",
			"event", "phase_consumer_subscribe_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "worker",
			"event_name", scheduler.StartElectionEvent,
			"error", err.Error(),
		)
		return err
	}
	if err := c.Subscriber.Subscribe(
		ctx,
		scheduler.ElectionTopic,
		scheduler.EndElectionEvent,
		c.handler(entities.PhaseEventEnd),
	); err != nil {
		logger.Error("phase consumer subscribe failed",
			"event", "phase_consumer_subscribe_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "worker",
			"event_name", scheduler.EndElectionEvent,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("phase event consumer started",
		"event", "phase_consumer_started",
		"module", "election-core/lifecycle-engine",
		"layer", "worker",
	)
	return nil
}

func (c PhaseEventConsumer) handler(
	kind entities.PhaseEventKind,
) func(context.Context, ports.EventEnvelope) error {
	return func(ctx context.Context, event ports.EventEnvelope) error {
		logger := application.ResolveLogger(c.Logger)
		if event.PartitionKey != "" {
			c.Phases.Apply(entities.PhaseEvent{
				Kind:       kind,
				ElectionID: event.PartitionKey,
				FiredAt:    event.OccurredAt,
			})
			logger.Info("phase event applied",
				"event", "phase_event_applied",
				"module", "election-core/lifecycle-engine",
				"layer", "worker",
				"election_id", event.PartitionKey,
				"kind", string(kind),
				"event_id", event.EventID,
			)
			return nil
		}
		return c.refreshAll(ctx)
	}
}

// refreshAll re-derives every election's phase from the ledger. Used when an
// envelope carries no election identity at all.
func (c PhaseEventConsumer) refreshAll(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	elections, err := c.Ledger.ListElections(ctx)
	if err != nil {
		logger.Error("phase refresh ledger list failed",
			"event", "phase_refresh_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	now := c.now()
	for _, election := range elections {
		switch election.DerivePhase(now) {
		case entities.PhaseLive:
			c.Phases.Apply(entities.PhaseEvent{
				Kind:       entities.PhaseEventStart,
				ElectionID: election.ElectionID,
				FiredAt:    now,
			})
		case entities.PhaseEnded:
			c.Phases.Apply(entities.PhaseEvent{
				Kind:       entities.PhaseEventEnd,
				ElectionID: election.ElectionID,
				FiredAt:    now,
			})
		}
	}
	logger.Info("phase refresh completed",
		"event", "phase_refresh_completed",
		"module", "election-core/lifecycle-engine",
		"layer", "worker",
		"election_count", len(elections),
	)
	return nil
}

func (c PhaseEventConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
