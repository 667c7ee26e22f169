package ports

import (
	"context"
	"time"

	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	"ballotcore/internal/shared/events"
)

// Ledger is the narrow query/command surface of the authoritative external
// vote store. Every call is a network call that may fail or time out; nothing
// cached in-process is authoritative for commit decisions.
//
// SubmitVote is the system of record: it must atomically reject a duplicate
// (election, candidate, voter) insert, a second vote for the same
// (election, seat, voter), an out-of-window commit, and a vote past the
// voter's ceiling, regardless of what the in-process validator concluded.
type Ledger interface {
	CreateElection(ctx context.Context, election entities.Election) (string, error)
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	ListElections(ctx context.Context) ([]entities.Election, error)
	ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error)
	GetVoter(ctx context.Context, voterID string) (entities.Voter, error)
	ListVoters(ctx context.Context, skip int, limit int) ([]entities.Voter, error)
	RegisterVoter(ctx context.Context, voter entities.Voter) (string, error)
	RegisterCandidate(ctx context.Context, candidate entities.Candidate) (string, error)
	SubmitVote(ctx context.Context, electionID string, candidateID string, voterID string) (entities.VoteReceipt, error)
}

type EventEnvelope = events.Envelope

// EventPublisher fans an envelope out to topic subscribers. Delivery is
// at-most-once and fire-and-forget; there is no replay for late subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a handler for one event name on a topic.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		eventName string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// PhaseTriggers is the scheduler surface consumed by election creation and the
// reconciliation worker.
type PhaseTriggers interface {
	Register(election entities.Election) error
	Cancel(electionID string)
}

// PhaseStore is the transient phase cache fed by broadcast events. Writes are
// last-writer-wins and never move a phase backwards. Resolve combines the
// cached override with the phase derived from the election window, taking
// whichever is further along.
type PhaseStore interface {
	Apply(event entities.PhaseEvent)
	Lookup(electionID string) (entities.ElectionPhase, bool)
	Resolve(election entities.Election, now time.Time) entities.ElectionPhase
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
