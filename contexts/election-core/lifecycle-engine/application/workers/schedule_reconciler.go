package workers

import (
	"context"
	"log/slog"
	"time"

	application "ballotcore/contexts/election-core/lifecycle-engine/application"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// ScheduleReconciler sweeps the ledger and (re)arms phase triggers for every
// election that has not ended. Trigger handles live in process memory, so a
// restart loses them; the sweep restores registrations, relying on the
// clock's idempotency to avoid duplicate firings within one process.
type ScheduleReconciler struct {
	Ledger   ports.Ledger
	Triggers ports.PhaseTriggers
	Clock    ports.Clock
	Logger   *slog.Logger
}

// RunOnce performs a single reconciliation sweep.
func (r ScheduleReconciler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	elections, err := r.Ledger.ListElections(ctx)
	if err != nil {
		logger.Error("schedule reconcile ledger list failed",
			"event", "schedule_reconcile_list_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := r.now()
	registered := 0
	for _, election := range elections {
		if election.DerivePhase(now) == entities.PhaseEnded {
			continue
		}
		// Registration faults are per-election and non-fatal; the next sweep
		// retries them.
		if err := r.Triggers.Register(election); err != nil {
			continue
		}
		registered++
	}

	logger.Info("schedule reconcile sweep completed",
		"event", "schedule_reconcile_completed",
		"module", "election-core/lifecycle-engine",
		"layer", "worker",
		"election_count", len(elections),
		"registered", registered,
	)
	return nil
}

func (r ScheduleReconciler) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
