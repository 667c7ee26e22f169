package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"

	"github.com/google/uuid"
)

// Store is an in-process ledger used for tests and local wiring. Unlike the
// in-process validator, it behaves as the system of record: SubmitVote holds
// the lock across check and commit, so the duplicate, seat, window and ceiling
// rules are enforced atomically here exactly as the external ledger must.
type Store struct {
	mu sync.RWMutex

	elections  map[string]entities.Election
	candidates map[string]entities.Candidate
	voters     map[string]entities.Voter
	receipts   map[string]entities.VoteReceipt

	voteLimit int
	now       func() time.Time
}

func NewStore(voteLimit int) *Store {
	if voteLimit <= 0 {
		voteLimit = 3
	}
	return &Store{
		elections:  make(map[string]entities.Election),
		candidates: make(map[string]entities.Candidate),
		voters:     make(map[string]entities.Voter),
		receipts:   make(map[string]entities.VoteReceipt),
		voteLimit:  voteLimit,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the ledger's clock; tests use it to move elections through
// their windows without waiting.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateElection(_ context.Context, election entities.Election) (string, error) {
	if !election.StartTime.Before(election.EndTime) {
		return "", domainerrors.ErrElectionWindow
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if election.ElectionID == "" {
		election.ElectionID = uuid.NewString()
	}
	if election.CreatedAt.IsZero() {
		election.CreatedAt = s.now()
	}
	s.elections[election.ElectionID] = election
	return election.ElectionID, nil
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) ListElections(_ context.Context) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0, len(s.elections))
	for _, election := range s.elections {
		items = append(items, election)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListCandidates(_ context.Context, electionID string) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidatesForElection(strings.TrimSpace(electionID))
}

func (s *Store) GetVoter(_ context.Context, voterID string) (entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[strings.TrimSpace(voterID)]
	if !ok {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return voter, nil
}

func (s *Store) ListVoters(_ context.Context, skip int, limit int) ([]entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Voter, 0, len(s.voters))
	for _, voter := range s.voters {
		items = append(items, voter)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].VoterID < items[j].VoterID
	})
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil, nil
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) RegisterVoter(_ context.Context, voter entities.Voter) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if voter.VoterID == "" {
		voter.VoterID = uuid.NewString()
	}
	if voter.CreatedAt.IsZero() {
		voter.CreatedAt = s.now()
	}
	s.voters[voter.VoterID] = voter
	return voter.VoterID, nil
}

func (s *Store) RegisterCandidate(_ context.Context, candidate entities.Candidate) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if candidate.CandidateID == "" {
		candidate.CandidateID = uuid.NewString()
	}
	s.candidates[candidate.CandidateID] = candidate
	return candidate.CandidateID, nil
}

func (s *Store) SubmitVote(
	_ context.Context,
	electionID string,
	candidateID string,
	voterID string,
) (entities.VoteReceipt, error) {
	electionID = strings.TrimSpace(electionID)
	candidateID = strings.TrimSpace(candidateID)
	voterID = strings.TrimSpace(voterID)

	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[electionID]
	if !ok {
		return entities.VoteReceipt{}, domainerrors.ErrElectionNotFound
	}
	now := s.now()
	switch election.DerivePhase(now) {
	case entities.PhasePending:
		return entities.VoteReceipt{}, domainerrors.ErrElectionNotStarted
	case entities.PhaseEnded:
		return entities.VoteReceipt{}, domainerrors.ErrElectionEnded
	}

	target, ok := s.candidates[candidateID]
	if !ok {
		return entities.VoteReceipt{}, domainerrors.ErrCandidateNotFound
	}
	voter, ok := s.voters[voterID]
	if !ok {
		return entities.VoteReceipt{}, domainerrors.ErrVoterNotFound
	}

	if target.HasVoteFrom(voterID) {
		return entities.VoteReceipt{}, domainerrors.ErrDuplicateVote
	}
	roster, err := s.candidatesForElection(electionID)
	if err != nil {
		return entities.VoteReceipt{}, err
	}
	for _, candidate := range roster {
		if candidate.CandidateID == candidateID {
			continue
		}
		if candidate.Position == target.Position && candidate.HasVoteFrom(voterID) {
			return entities.VoteReceipt{}, domainerrors.ErrSeatAlreadyFilled
		}
	}
	if voter.VoteLimitCount >= s.voteLimit {
		return entities.VoteReceipt{}, domainerrors.ErrVoteLimitExceeded
	}

	target.VotedVoterIDs = append(target.VotedVoterIDs, voterID)
	s.candidates[candidateID] = target
	voter.VoteLimitCount++
	s.voters[voterID] = voter

	receipt := entities.VoteReceipt{
		ReceiptID:   uuid.NewString(),
		ElectionID:  electionID,
		CandidateID: candidateID,
		VoterID:     voterID,
		CommittedAt: now,
	}
	s.receipts[receipt.ReceiptID] = receipt
	return receipt, nil
}

// candidatesForElection filters the roster by the election's candidate set.
// An election with an empty set sees every registered candidate. Callers hold
// at least the read lock.
func (s *Store) candidatesForElection(electionID string) ([]entities.Candidate, error) {
	var members map[string]struct{}
	if electionID != "" {
		election, ok := s.elections[electionID]
		if !ok {
			return nil, domainerrors.ErrElectionNotFound
		}
		if len(election.CandidateAddresses) > 0 {
			members = make(map[string]struct{}, len(election.CandidateAddresses))
			for _, id := range election.CandidateAddresses {
				members[id] = struct{}{}
			}
		}
	}

	items := make([]entities.Candidate, 0, len(s.candidates))
	for _, candidate := range s.candidates {
		if members != nil {
			if _, ok := members[candidate.CandidateID]; !ok {
				continue
			}
		}
		items = append(items, candidate)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CandidateID < items[j].CandidateID
	})
	return items, nil
}

// Now implements the Clock port.
func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// NewID implements the IDGenerator port.
func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Ledger = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
