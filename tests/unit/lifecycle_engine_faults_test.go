package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	"ballotcore/contexts/election-core/lifecycle-engine/adapters/memory"
	"ballotcore/contexts/election-core/lifecycle-engine/application/commands"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// submitFaultLedger passes reads through to the in-process ledger and fails
// every commit with a fixed error.
type submitFaultLedger struct {
	ports.Ledger
	err error
}

func (l submitFaultLedger) SubmitVote(
	context.Context,
	string,
	string,
	string,
) (entities.VoteReceipt, error) {
	return entities.VoteReceipt{}, l.err
}

func newLiveElectionStore(t *testing.T) (*memory.Store, string) {
	t.Helper()
	store := memory.NewStore(3)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.SetNow(func() time.Time { return base })

	electionID, err := store.CreateElection(context.Background(), entities.Election{
		Title:        "Local Election",
		StartTime:    base.Add(-time.Minute),
		EndTime:      base.Add(time.Hour),
		ElectionType: entities.ElectionTypeLocal,
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	if _, err := store.RegisterCandidate(context.Background(), entities.Candidate{
		CandidateID: "candidate-1",
		UserID:      "user-c1",
		Position:    "mayor",
	}); err != nil {
		t.Fatalf("register candidate failed: %v", err)
	}
	if _, err := store.RegisterVoter(context.Background(), entities.Voter{
		VoterID:  "voter-1",
		FullName: "Asha Rai",
	}); err != nil {
		t.Fatalf("register voter failed: %v", err)
	}
	return store, electionID
}

func TestVoteLedgerTimeoutYieldsUnavailableOutcome(t *testing.T) {
	store, electionID := newLiveElectionStore(t)
	uc := commands.VoteUseCase{
		Ledger:    submitFaultLedger{Ledger: store, err: context.DeadlineExceeded},
		Clock:     store,
		VoteLimit: 3,
	}

	outcome, err := uc.EvaluateAndVote(context.Background(), commands.VoteCommand{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("expected outcome, not error: %v", err)
	}
	if outcome.Accepted {
		t.Fatalf("expected rejected outcome, got %+v", outcome)
	}
	if outcome.Reason != commands.ReasonLedgerUnavailable {
		t.Fatalf("expected ledger_unavailable, got %s", outcome.Reason)
	}
	if outcome.Err == nil {
		t.Fatalf("expected wrapped fault for callers deciding on retry")
	}
	if !errors.Is(outcome.Err, domainerrors.ErrLedgerUnavailable) {
		t.Fatalf("expected fault classified as ledger unavailable, got %v", outcome.Err)
	}
	if !errors.Is(outcome.Err, context.DeadlineExceeded) {
		t.Fatalf("expected underlying timeout preserved, got %v", outcome.Err)
	}

	// The failed commit must not consume any of the voter's ceiling.
	voter, err := store.GetVoter(context.Background(), "voter-1")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if voter.VoteLimitCount != 0 {
		t.Fatalf("expected untouched vote count, got %d", voter.VoteLimitCount)
	}
}

func TestVoteLedgerRejectionOutcome(t *testing.T) {
	store, electionID := newLiveElectionStore(t)
	uc := commands.VoteUseCase{
		Ledger:    submitFaultLedger{Ledger: store, err: domainerrors.ErrLedgerRejected},
		Clock:     store,
		VoteLimit: 3,
	}

	outcome, err := uc.EvaluateAndVote(context.Background(), commands.VoteCommand{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("expected outcome, not error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != commands.ReasonLedgerRejected {
		t.Fatalf("expected ledger_rejected, got %+v", outcome)
	}
}

func TestVoteRaceLostAtCommitMapsToEligibilityReason(t *testing.T) {
	store, electionID := newLiveElectionStore(t)
	// The pre-checks pass against a point-in-time read; the ledger's
	// conditional write reports the concurrent winner.
	uc := commands.VoteUseCase{
		Ledger:    submitFaultLedger{Ledger: store, err: domainerrors.ErrDuplicateVote},
		Clock:     store,
		VoteLimit: 3,
	}

	outcome, err := uc.EvaluateAndVote(context.Background(), commands.VoteCommand{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("expected outcome, not error: %v", err)
	}
	if outcome.Accepted || outcome.Reason != commands.ReasonDuplicateVote {
		t.Fatalf("expected duplicate_vote from commit, got %+v", outcome)
	}
	if outcome.Err != nil {
		t.Fatalf("race-lost commit is a rejection, not a fault: %v", outcome.Err)
	}
}
