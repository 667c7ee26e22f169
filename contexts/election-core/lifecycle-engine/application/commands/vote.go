package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "ballotcore/contexts/election-core/lifecycle-engine/application"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// DefaultVoteLimit is the system-wide ceiling on accepted votes per voter.
const DefaultVoteLimit = 3

type RejectionReason string

const (
	ReasonNotStarted              RejectionReason = "not_started"
	ReasonEnded                   RejectionReason = "ended"
	ReasonAlreadyVotedAsCandidate RejectionReason = "already_voted_as_candidate"
	ReasonSeatAlreadyFilled       RejectionReason = "seat_already_filled"
	ReasonDuplicateVote           RejectionReason = "duplicate_vote"
	ReasonVoteLimitExceeded       RejectionReason = "vote_limit_exceeded"
	ReasonLedgerUnavailable       RejectionReason = "ledger_unavailable"
	ReasonLedgerRejected          RejectionReason = "ledger_rejected"
)

// VoteCommand is the caller-facing vote request.
type VoteCommand struct {
	VoterID     string
	CandidateID string
	Position    string
	ElectionID  string
}

// VoteOutcome is always returned, never thrown: eligibility rejections and
// ledger faults are data, not control flow. Err carries the underlying ledger
// fault for the ledger_* reasons so callers can decide whether to retry.
type VoteOutcome struct {
	Accepted bool
	Reason   RejectionReason
	Receipt  entities.VoteReceipt
	Err      error
}

// VoteUseCase is the eligibility validator: an advisory fast-reject filter in
// front of the ledger. Its checks run against a point-in-time read, so two
// concurrent requests can both pass; the ledger's conditional write is the
// final arbiter and its rejection is mapped back onto the same reasons.
type VoteUseCase struct {
	Ledger    ports.Ledger
	Phases    ports.PhaseStore
	Clock     ports.Clock
	VoteLimit int
	Logger    *slog.Logger
}

// EvaluateAndVote applies the eligibility rules in order, short-circuiting on
// the first failure, and forwards accepted requests to the ledger. The use
// case never auto-retries a submission: without an idempotency key a retry
// risks double commit, so retry stays at the caller's discretion.
func (uc VoteUseCase) EvaluateAndVote(ctx context.Context, cmd VoteCommand) (VoteOutcome, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	candidateID := strings.TrimSpace(cmd.CandidateID)
	electionID := strings.TrimSpace(cmd.ElectionID)
	if voterID == "" || candidateID == "" || electionID == "" {
		logger.Warn("vote request validation failed",
			"event", "vote_request_validation_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "application",
			"voter_id", voterID,
			"candidate_id", candidateID,
			"election_id", electionID,
		)
		return VoteOutcome{}, domainerrors.ErrInvalidVoteInput
	}
	logger.Info("vote evaluation started",
		"event", "vote_evaluation_started",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"voter_id", voterID,
		"candidate_id", candidateID,
		"election_id", electionID,
	)

	election, err := uc.Ledger.GetElection(ctx, electionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) {
			return VoteOutcome{}, err
		}
		return uc.ledgerFault(logger, cmd, "get_election", err), nil
	}

	// Rule 1: phase window, cached event override first.
	currentPhase := uc.resolvePhase(election)
	switch currentPhase {
	case entities.PhasePending:
		return uc.reject(logger, cmd, ReasonNotStarted), nil
	case entities.PhaseEnded:
		return uc.reject(logger, cmd, ReasonEnded), nil
	}

	candidates, err := uc.Ledger.ListCandidates(ctx, electionID)
	if err != nil {
		return uc.ledgerFault(logger, cmd, "list_candidates", err), nil
	}
	target, found := findCandidate(candidates, candidateID)
	if !found {
		return VoteOutcome{}, domainerrors.ErrCandidateNotFound
	}

	// Rule 2: a voter who is also a candidate casts at most one vote total.
	if requesterIsVotedCandidate(candidates, voterID) {
		return uc.reject(logger, cmd, ReasonAlreadyVotedAsCandidate), nil
	}

	// Rule 3: one vote per seat per voter, across all candidates on the seat.
	seat := strings.TrimSpace(cmd.Position)
	if seat == "" {
		seat = target.Position
	}
	for _, candidate := range candidates {
		if candidate.CandidateID == target.CandidateID {
			continue
		}
		if candidate.Position == seat && candidate.HasVoteFrom(voterID) {
			return uc.reject(logger, cmd, ReasonSeatAlreadyFilled), nil
		}
	}

	// Rule 4: no double vote for the same candidate.
	if target.HasVoteFrom(voterID) {
		return uc.reject(logger, cmd, ReasonDuplicateVote), nil
	}

	// Rule 5: system-wide vote ceiling.
	voter, err := uc.Ledger.GetVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrVoterNotFound) {
			return VoteOutcome{}, err
		}
		return uc.ledgerFault(logger, cmd, "get_voter", err), nil
	}
	if voter.VoteLimitCount >= uc.voteLimit() {
		return uc.reject(logger, cmd, ReasonVoteLimitExceeded), nil
	}

	receipt, err := uc.Ledger.SubmitVote(ctx, electionID, candidateID, voterID)
	if err != nil {
		if reason, raced := commitRejectionReason(err); raced {
			// A concurrent request won the race past the pre-checks; the
			// ledger's conditional write re-enforced the rule.
			return uc.reject(logger, cmd, reason), nil
		}
		return uc.ledgerFault(logger, cmd, "submit_vote", err), nil
	}

	logger.Info("vote accepted",
		"event", "vote_accepted",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"voter_id", voterID,
		"candidate_id", candidateID,
		"election_id", electionID,
		"receipt_id", receipt.ReceiptID,
	)
	return VoteOutcome{Accepted: true, Receipt: receipt}, nil
}

func (uc VoteUseCase) resolvePhase(election entities.Election) entities.ElectionPhase {
	if uc.Phases == nil {
		return election.DerivePhase(uc.now())
	}
	return uc.Phases.Resolve(election, uc.now())
}

func (uc VoteUseCase) reject(
	logger *slog.Logger,
	cmd VoteCommand,
	reason RejectionReason,
) VoteOutcome {
	logger.Warn("vote rejected",
		"event", "vote_rejected",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"voter_id", strings.TrimSpace(cmd.VoterID),
		"candidate_id", strings.TrimSpace(cmd.CandidateID),
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"reason", string(reason),
	)
	return VoteOutcome{Reason: reason}
}

func (uc VoteUseCase) ledgerFault(
	logger *slog.Logger,
	cmd VoteCommand,
	operation string,
	err error,
) VoteOutcome {
	reason := ReasonLedgerUnavailable
	cause := fmt.Errorf("%w: %w", domainerrors.ErrLedgerUnavailable, err)
	if errors.Is(err, domainerrors.ErrLedgerRejected) {
		reason = ReasonLedgerRejected
		cause = err
	}
	wrapped := fmt.Errorf(
		"ledger %s for election %s candidate %s: %w",
		operation,
		strings.TrimSpace(cmd.ElectionID),
		strings.TrimSpace(cmd.CandidateID),
		cause,
	)
	logger.Error("vote ledger operation failed",
		"event", "vote_ledger_failed",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"voter_id", strings.TrimSpace(cmd.VoterID),
		"candidate_id", strings.TrimSpace(cmd.CandidateID),
		"election_id", strings.TrimSpace(cmd.ElectionID),
		"operation", operation,
		"reason", string(reason),
		"error", err.Error(),
	)
	return VoteOutcome{Reason: reason, Err: wrapped}
}

func (uc VoteUseCase) voteLimit() int {
	if uc.VoteLimit <= 0 {
		return DefaultVoteLimit
	}
	return uc.VoteLimit
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func findCandidate(candidates []entities.Candidate, candidateID string) (entities.Candidate, bool) {
	for _, candidate := range candidates {
		if candidate.CandidateID == candidateID {
			return candidate, true
		}
	}
	return entities.Candidate{}, false
}

func requesterIsVotedCandidate(candidates []entities.Candidate, voterID string) bool {
	isCandidate := false
	hasVoted := false
	for _, candidate := range candidates {
		if candidate.UserID == voterID {
			isCandidate = true
		}
		if candidate.HasVoteFrom(voterID) {
			hasVoted = true
		}
	}
	return isCandidate && hasVoted
}

// commitRejectionReason maps ledger-side rule enforcement back onto the same
// rejection vocabulary the pre-checks use.
func commitRejectionReason(err error) (RejectionReason, bool) {
	switch {
	case errors.Is(err, domainerrors.ErrDuplicateVote):
		return ReasonDuplicateVote, true
	case errors.Is(err, domainerrors.ErrSeatAlreadyFilled):
		return ReasonSeatAlreadyFilled, true
	case errors.Is(err, domainerrors.ErrVoteLimitExceeded):
		return ReasonVoteLimitExceeded, true
	case errors.Is(err, domainerrors.ErrAlreadyVotedAsCandidate):
		return ReasonAlreadyVotedAsCandidate, true
	case errors.Is(err, domainerrors.ErrElectionNotStarted):
		return ReasonNotStarted, true
	case errors.Is(err, domainerrors.ErrElectionEnded):
		return ReasonEnded, true
	default:
		return "", false
	}
}
