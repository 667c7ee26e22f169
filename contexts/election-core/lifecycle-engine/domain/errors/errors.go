package errors

import "errors"

var (
	ErrInvalidVoteInput     = errors.New("invalid vote input")
	ErrInvalidElectionInput = errors.New("invalid election input")
	ErrElectionWindow       = errors.New("election start time must precede end time")

	ErrElectionNotFound  = errors.New("election not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrVoterNotFound     = errors.New("voter not found")

	ErrElectionNotStarted      = errors.New("election has not started")
	ErrElectionEnded           = errors.New("election has ended")
	ErrAlreadyVotedAsCandidate = errors.New("candidate has already cast a vote")
	ErrSeatAlreadyFilled       = errors.New("voter has already voted for this seat")
	ErrDuplicateVote           = errors.New("voter has already voted for this candidate")
	ErrVoteLimitExceeded       = errors.New("voter has reached the vote limit")

	ErrLedgerUnavailable = errors.New("ledger is unavailable")
	ErrLedgerRejected    = errors.New("ledger rejected the vote")
)
