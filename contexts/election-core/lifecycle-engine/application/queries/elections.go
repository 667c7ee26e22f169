package queries

import (
	"context"
	"log/slog"
	"time"

	application "ballotcore/contexts/election-core/lifecycle-engine/application"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// VoterPageSize matches the ledger's voter listing page size.
const VoterPageSize = 10

// ElectionQueries serves the read side: ledger passthrough reads plus the
// authoritative phase fetch every broadcast subscriber performs on
// (re)connect, since the bus never replays missed events.
type ElectionQueries struct {
	Ledger ports.Ledger
	Phases ports.PhaseStore
	Clock  ports.Clock
	Logger *slog.Logger
}

func (q ElectionQueries) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	return q.Ledger.GetElection(ctx, electionID)
}

func (q ElectionQueries) ListElections(ctx context.Context) ([]entities.Election, error) {
	return q.Ledger.ListElections(ctx)
}

func (q ElectionQueries) ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error) {
	return q.Ledger.ListCandidates(ctx, electionID)
}

func (q ElectionQueries) GetVoter(ctx context.Context, voterID string) (entities.Voter, error) {
	return q.Ledger.GetVoter(ctx, voterID)
}

func (q ElectionQueries) ListVoters(ctx context.Context, skip int) ([]entities.Voter, error) {
	if skip < 0 {
		skip = 0
	}
	return q.Ledger.ListVoters(ctx, skip, VoterPageSize)
}

// ElectionPhase resolves the effective phase for one election: the cached
// broadcast override when one exists and is ahead, otherwise the phase derived
// from the election window.
func (q ElectionQueries) ElectionPhase(
	ctx context.Context,
	electionID string,
) (entities.ElectionPhase, error) {
	election, err := q.Ledger.GetElection(ctx, electionID)
	if err != nil {
		return "", err
	}
	if q.Phases == nil {
		return election.DerivePhase(q.now()), nil
	}
	resolved := q.Phases.Resolve(election, q.now())
	application.ResolveLogger(q.Logger).Debug("phase resolved",
		"event", "phase_resolved",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"election_id", electionID,
		"phase", string(resolved),
	)
	return resolved, nil
}

func (q ElectionQueries) now() time.Time {
	if q.Clock != nil {
		return q.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
