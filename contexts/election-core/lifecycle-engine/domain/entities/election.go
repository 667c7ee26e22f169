package entities

import "time"

type ElectionType int

const (
	ElectionTypeNational ElectionType = 1
	ElectionTypeLocal    ElectionType = 2
	ElectionTypeDistrict ElectionType = 3
)

// Election is the immutable record of one time-boxed election. StartTime must
// precede EndTime; the record is never edited after creation.
type Election struct {
	ElectionID         string
	Title              string
	Description        string
	StartTime          time.Time
	EndTime            time.Time
	ElectionType       ElectionType
	BoothPlace         string
	Position           string
	CandidateAddresses []string
	CreatedAt          time.Time
}

type ElectionPhase string

const (
	PhasePending ElectionPhase = "PENDING"
	PhaseLive    ElectionPhase = "LIVE"
	PhaseEnded   ElectionPhase = "ENDED"
)

// DerivePhase computes the phase from the election window alone, ignoring any
// broadcast override. LIVE covers [StartTime, EndTime).
func (e Election) DerivePhase(now time.Time) ElectionPhase {
	now = now.UTC()
	if now.Before(e.StartTime.UTC()) {
		return PhasePending
	}
	if now.Before(e.EndTime.UTC()) {
		return PhaseLive
	}
	return PhaseEnded
}

// phaseRank orders phases for monotonic transitions; ENDED is absorbing.
func phaseRank(phase ElectionPhase) int {
	switch phase {
	case PhaseLive:
		return 1
	case PhaseEnded:
		return 2
	default:
		return 0
	}
}

// Advances reports whether moving from current to next is a forward transition.
func Advances(current ElectionPhase, next ElectionPhase) bool {
	return phaseRank(next) > phaseRank(current)
}

type PhaseEventKind string

const (
	PhaseEventStart PhaseEventKind = "START"
	PhaseEventEnd   PhaseEventKind = "END"
)

// PhaseEvent is the ephemeral notification that an election crossed a phase
// boundary. It is broadcast, never persisted.
type PhaseEvent struct {
	Kind       PhaseEventKind
	ElectionID string
	FiredAt    time.Time
}

func (ev PhaseEvent) Phase() ElectionPhase {
	if ev.Kind == PhaseEventEnd {
		return PhaseEnded
	}
	return PhaseLive
}

// Candidate mirrors the ledger's candidate record. VotedVoterIDs is append-only
// and never contains the same voter twice.
type Candidate struct {
	CandidateID   string
	UserID        string
	Party         string
	Position      string
	VotingBooth   string
	VotedVoterIDs []string
}

// HasVoteFrom reports whether voterID already appears in the candidate's
// recorded voter list.
func (c Candidate) HasVoteFrom(voterID string) bool {
	for _, id := range c.VotedVoterIDs {
		if id == voterID {
			return true
		}
	}
	return false
}

// Voter mirrors the ledger's voter record. VoteLimitCount only ever grows and
// is capped by the system-wide ceiling.
type Voter struct {
	VoterID           string
	FullName          string
	CitizenshipNumber string
	Province          string
	District          string
	Municipality      string
	Ward              string
	Email             string
	Profile           string
	VoteLimitCount    int
	CreatedAt         time.Time
}

// VoteReceipt is the ledger's proof of a committed vote.
type VoteReceipt struct {
	ReceiptID   string
	ElectionID  string
	CandidateID string
	VoterID     string
	CommittedAt time.Time
}
