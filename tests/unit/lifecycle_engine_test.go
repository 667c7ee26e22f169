package unit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	lifecycleengine "ballotcore/contexts/election-core/lifecycle-engine"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	httptransport "ballotcore/contexts/election-core/lifecycle-engine/transport/http"
)

func seedCandidate(t *testing.T, module lifecycleengine.Module, candidate entities.Candidate) {
	t.Helper()
	if _, err := module.Store.RegisterCandidate(context.Background(), candidate); err != nil {
		t.Fatalf("register candidate %s failed: %v", candidate.CandidateID, err)
	}
}

func seedVoter(t *testing.T, module lifecycleengine.Module, voter entities.Voter) {
	t.Helper()
	if _, err := module.Store.RegisterVoter(context.Background(), voter); err != nil {
		t.Fatalf("register voter %s failed: %v", voter.VoterID, err)
	}
}

func TestVoteLifecycleAcrossPhases(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := base
	module.Store.SetNow(func() time.Time { return current })

	seedCandidate(t, module, entities.Candidate{CandidateID: "candidate-1", UserID: "user-c1", Position: "mayor"})
	seedCandidate(t, module, entities.Candidate{CandidateID: "candidate-2", UserID: "user-c2", Position: "mayor"})
	seedVoter(t, module, entities.Voter{VoterID: "voter-1", FullName: "Asha Rai"})

	created, err := module.Handler.CreateElectionHandler(context.Background(), httptransport.CreateElectionRequest{
		Title:              "Municipal Election",
		StartTime:          base.Add(time.Minute).Format(time.RFC3339),
		EndTime:            base.Add(3 * time.Minute).Format(time.RFC3339),
		ElectionType:       int(entities.ElectionTypeLocal),
		Position:           "mayor",
		CandidateAddresses: []string{"candidate-1", "candidate-2"},
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	if created.ElectionID == "" {
		t.Fatalf("expected assigned election id")
	}
	electionID := created.ElectionID

	phase, err := module.Handler.ElectionPhaseHandler(context.Background(), electionID)
	if err != nil {
		t.Fatalf("phase fetch failed: %v", err)
	}
	if phase.Phase != string(entities.PhasePending) {
		t.Fatalf("expected PENDING before start, got %s", phase.Phase)
	}

	outcome, err := module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if outcome.Accepted || outcome.Reason != "not_started" {
		t.Fatalf("expected not_started rejection, got %+v", outcome)
	}

	current = base.Add(90 * time.Second)
	phase, err = module.Handler.ElectionPhaseHandler(context.Background(), electionID)
	if err != nil {
		t.Fatalf("phase fetch failed: %v", err)
	}
	if phase.Phase != string(entities.PhaseLive) {
		t.Fatalf("expected LIVE inside window, got %s", phase.Phase)
	}

	outcome, err = module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected accepted vote, got %+v", outcome)
	}
	if outcome.Receipt == nil || outcome.Receipt.ElectionID != electionID ||
		outcome.Receipt.CandidateID != "candidate-1" || outcome.Receipt.VoterID != "voter-1" {
		t.Fatalf("unexpected receipt: %+v", outcome.Receipt)
	}

	outcome, err = module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if outcome.Accepted || outcome.Reason != "duplicate_vote" {
		t.Fatalf("expected duplicate_vote rejection, got %+v", outcome)
	}

	outcome, err = module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-2",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if outcome.Accepted || outcome.Reason != "seat_already_filled" {
		t.Fatalf("expected seat_already_filled rejection, got %+v", outcome)
	}

	current = base.Add(5 * time.Minute)
	phase, err = module.Handler.ElectionPhaseHandler(context.Background(), electionID)
	if err != nil {
		t.Fatalf("phase fetch failed: %v", err)
	}
	if phase.Phase != string(entities.PhaseEnded) {
		t.Fatalf("expected ENDED after window, got %s", phase.Phase)
	}

	outcome, err = module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  electionID,
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if outcome.Accepted || outcome.Reason != "ended" {
		t.Fatalf("expected ended rejection, got %+v", outcome)
	}
}

func TestPhaseQueryNeverRegressesBehindWindow(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := base
	module.Store.SetNow(func() time.Time { return current })

	created, err := module.Handler.CreateElectionHandler(context.Background(), httptransport.CreateElectionRequest{
		Title:        "Short Election",
		StartTime:    base.Add(time.Minute).Format(time.RFC3339),
		EndTime:      base.Add(2 * time.Minute).Format(time.RFC3339),
		ElectionType: int(entities.ElectionTypeLocal),
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}

	// Cached start event makes the election LIVE ahead of polled time.
	module.Phases.Apply(entities.PhaseEvent{
		Kind:       entities.PhaseEventStart,
		ElectionID: created.ElectionID,
		FiredAt:    base,
	})
	phase, err := module.Handler.ElectionPhaseHandler(context.Background(), created.ElectionID)
	if err != nil {
		t.Fatalf("phase fetch failed: %v", err)
	}
	if phase.Phase != string(entities.PhaseLive) {
		t.Fatalf("expected cached LIVE override, got %s", phase.Phase)
	}

	// A missed END broadcast must not hold the election LIVE past its window.
	current = base.Add(10 * time.Minute)
	phase, err = module.Handler.ElectionPhaseHandler(context.Background(), created.ElectionID)
	if err != nil {
		t.Fatalf("phase fetch failed: %v", err)
	}
	if phase.Phase != string(entities.PhaseEnded) {
		t.Fatalf("expected derived ENDED to win over stale cached LIVE, got %s", phase.Phase)
	}
}

func TestVoteLimitCeiling(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := base
	module.Store.SetNow(func() time.Time { return current })

	seats := []string{"mayor", "deputy-mayor", "ward-chair", "ward-member"}
	ids := make([]string, 0, len(seats))
	for i, seat := range seats {
		id := fmt.Sprintf("candidate-%d", i+1)
		ids = append(ids, id)
		seedCandidate(t, module, entities.Candidate{
			CandidateID: id,
			UserID:      fmt.Sprintf("user-c%d", i+1),
			Position:    seat,
		})
	}
	seedVoter(t, module, entities.Voter{VoterID: "voter-1", FullName: "Asha Rai"})

	created, err := module.Handler.CreateElectionHandler(context.Background(), httptransport.CreateElectionRequest{
		Title:              "Local Election",
		StartTime:          base.Add(time.Minute).Format(time.RFC3339),
		EndTime:            base.Add(time.Hour).Format(time.RFC3339),
		ElectionType:       int(entities.ElectionTypeLocal),
		CandidateAddresses: ids,
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	current = base.Add(2 * time.Minute)

	for i := 0; i < 3; i++ {
		outcome, err := module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
			VoterID:     "voter-1",
			CandidateID: ids[i],
			ElectionID:  created.ElectionID,
		})
		if err != nil {
			t.Fatalf("vote %d failed: %v", i+1, err)
		}
		if !outcome.Accepted {
			t.Fatalf("expected vote %d accepted, got %+v", i+1, outcome)
		}
	}

	outcome, err := module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: ids[3],
		ElectionID:  created.ElectionID,
	})
	if err != nil {
		t.Fatalf("fourth vote failed: %v", err)
	}
	if outcome.Accepted || outcome.Reason != "vote_limit_exceeded" {
		t.Fatalf("expected vote_limit_exceeded, got %+v", outcome)
	}

	voter, err := module.Handler.GetVoterHandler(context.Background(), "voter-1")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if voter.VoteLimitCount != 3 {
		t.Fatalf("expected vote count pinned at 3, got %d", voter.VoteLimitCount)
	}
}

func TestCandidateRequesterCastsAtMostOneVote(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := base
	module.Store.SetNow(func() time.Time { return current })

	seedCandidate(t, module, entities.Candidate{CandidateID: "candidate-1", UserID: "user-1", Position: "mayor"})
	seedCandidate(t, module, entities.Candidate{CandidateID: "candidate-2", UserID: "user-c2", Position: "deputy-mayor"})
	seedCandidate(t, module, entities.Candidate{CandidateID: "candidate-3", UserID: "user-c3", Position: "ward-chair"})
	seedVoter(t, module, entities.Voter{VoterID: "user-1", FullName: "Bikash Thapa"})

	created, err := module.Handler.CreateElectionHandler(context.Background(), httptransport.CreateElectionRequest{
		Title:        "Local Election",
		StartTime:    base.Add(time.Minute).Format(time.RFC3339),
		EndTime:      base.Add(time.Hour).Format(time.RFC3339),
		ElectionType: int(entities.ElectionTypeLocal),
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	current = base.Add(2 * time.Minute)

	outcome, err := module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "user-1",
		CandidateID: "candidate-2",
		ElectionID:  created.ElectionID,
	})
	if err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected candidate's first vote accepted, got %+v", outcome)
	}

	outcome, err = module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "user-1",
		CandidateID: "candidate-3",
		ElectionID:  created.ElectionID,
	})
	if err != nil {
		t.Fatalf("second vote failed: %v", err)
	}
	if outcome.Accepted || outcome.Reason != "already_voted_as_candidate" {
		t.Fatalf("expected already_voted_as_candidate, got %+v", outcome)
	}
}

func TestVoterListingPagination(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	for i := 1; i <= 12; i++ {
		seedVoter(t, module, entities.Voter{
			VoterID:  fmt.Sprintf("voter-%02d", i),
			FullName: fmt.Sprintf("Voter %02d", i),
		})
	}

	page, err := module.Handler.ListVotersHandler(context.Background(), 0)
	if err != nil {
		t.Fatalf("list voters failed: %v", err)
	}
	if len(page.Items) != 10 {
		t.Fatalf("expected first page of 10, got %d", len(page.Items))
	}
	if page.Items[0].VoterID != "voter-01" {
		t.Fatalf("expected stable ordering, got %s first", page.Items[0].VoterID)
	}

	page, err = module.Handler.ListVotersHandler(context.Background(), 10)
	if err != nil {
		t.Fatalf("list voters failed: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected second page of 2, got %d", len(page.Items))
	}

	page, err = module.Handler.ListVotersHandler(context.Background(), 50)
	if err != nil {
		t.Fatalf("list voters failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(page.Items))
	}
}

func TestVoteAndElectionInputValidation(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return base })

	_, err := module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		CandidateID: "candidate-1",
		ElectionID:  "election-1",
	})
	if !errors.Is(err, domainerrors.ErrInvalidVoteInput) {
		t.Fatalf("expected invalid vote input, got %v", err)
	}

	_, err = module.Handler.CastVoteHandler(context.Background(), httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  "missing",
	})
	if !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected election not found, got %v", err)
	}

	_, err = module.Handler.CreateElectionHandler(context.Background(), httptransport.CreateElectionRequest{
		Title:        "Bad Clock",
		StartTime:    "yesterday",
		EndTime:      base.Format(time.RFC3339),
		ElectionType: int(entities.ElectionTypeNational),
	})
	if !errors.Is(err, domainerrors.ErrInvalidElectionInput) {
		t.Fatalf("expected invalid election input for bad timestamp, got %v", err)
	}

	_, err = module.Handler.CreateElectionHandler(context.Background(), httptransport.CreateElectionRequest{
		Title:        "Bad Type",
		StartTime:    base.Format(time.RFC3339),
		EndTime:      base.Add(time.Hour).Format(time.RFC3339),
		ElectionType: 9,
	})
	if !errors.Is(err, domainerrors.ErrInvalidElectionInput) {
		t.Fatalf("expected invalid election input for unknown type, got %v", err)
	}

	_, err = module.Handler.CreateElectionHandler(context.Background(), httptransport.CreateElectionRequest{
		Title:        "Inverted Window",
		StartTime:    base.Add(time.Hour).Format(time.RFC3339),
		EndTime:      base.Format(time.RFC3339),
		ElectionType: int(entities.ElectionTypeNational),
	})
	if !errors.Is(err, domainerrors.ErrElectionWindow) {
		t.Fatalf("expected election window error, got %v", err)
	}
}
