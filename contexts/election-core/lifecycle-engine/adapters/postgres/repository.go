package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Unique indexes backing the ledger's conditional-write guarantees. The
// constraint that fires decides which eligibility rule the commit lost to.
const (
	voteIdentityConstraint = "uq_votes_candidate_voter"
	voteSeatConstraint     = "uq_votes_seat_voter"
)

// Repository is the SQL-backed ledger gateway. The votes table carries two
// unique indexes, (election_id, candidate_id, voter_id) and
// (election_id, position, voter_id), so a commit that races past the
// in-process validator still gets rejected atomically at insert time.
type Repository struct {
	db        *gorm.DB
	voteLimit int
	logger    *slog.Logger
}

func NewRepository(db *gorm.DB, voteLimit int, logger *slog.Logger) *Repository {
	if voteLimit <= 0 {
		voteLimit = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:        db,
		voteLimit: voteLimit,
		logger:    logger,
	}
}

func (r *Repository) CreateElection(ctx context.Context, election entities.Election) (string, error) {
	if !election.StartTime.Before(election.EndTime) {
		return "", domainerrors.ErrElectionWindow
	}
	row, err := electionModelFromEntity(election)
	if err != nil {
		return "", err
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return "", r.logError("ledger_create_election_failed", create.Error,
			"title", strings.TrimSpace(election.Title),
		)
	}
	return row.ID, nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("ledger_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListElections(ctx context.Context) ([]entities.Election, error) {
	var rows []electionModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_list_elections_failed", err)
	}
	items := make([]entities.Election, 0, len(rows))
	for _, row := range rows {
		election, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, election)
	}
	return items, nil
}

func (r *Repository) ListCandidates(ctx context.Context, electionID string) ([]entities.Candidate, error) {
	electionID = strings.TrimSpace(electionID)

	var candidateRows []candidateModel
	query := r.db.WithContext(ctx).Order("id ASC")
	if electionID != "" {
		election, err := r.GetElection(ctx, electionID)
		if err != nil {
			return nil, err
		}
		if len(election.CandidateAddresses) > 0 {
			query = query.Where("id IN ?", election.CandidateAddresses)
		}
	}
	if err := query.Find(&candidateRows).Error; err != nil {
		return nil, r.logError("ledger_list_candidates_failed", err,
			"election_id", electionID,
		)
	}

	votesByCandidate, err := r.votesByCandidate(ctx, electionID)
	if err != nil {
		return nil, err
	}
	items := make([]entities.Candidate, 0, len(candidateRows))
	for _, row := range candidateRows {
		candidate := row.toEntity()
		candidate.VotedVoterIDs = votesByCandidate[row.ID]
		items = append(items, candidate)
	}
	return items, nil
}

func (r *Repository) GetVoter(ctx context.Context, voterID string) (entities.Voter, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, domainerrors.ErrVoterNotFound
		}
		return entities.Voter{}, r.logError("ledger_get_voter_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListVoters(ctx context.Context, skip int, limit int) ([]entities.Voter, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 10
	}
	var rows []voterModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(skip).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_list_voters_failed", err, "skip", skip)
	}
	items := make([]entities.Voter, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) RegisterVoter(ctx context.Context, voter entities.Voter) (string, error) {
	row := voterModelFromEntity(voter)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return "", r.logError("ledger_register_voter_failed", create.Error,
			"voter_id", row.ID,
		)
	}
	return row.ID, nil
}

func (r *Repository) RegisterCandidate(ctx context.Context, candidate entities.Candidate) (string, error) {
	row := candidateModelFromEntity(candidate)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return "", r.logError("ledger_register_candidate_failed", create.Error,
			"candidate_id", row.ID,
		)
	}
	return row.ID, nil
}

// SubmitVote is the authoritative commit. The whole check-and-insert runs in
// one transaction: window re-check, conditional vote insert guarded by the two
// unique indexes, then a ceiling-guarded counter increment. Any guard firing
// rolls the transaction back, so no phantom increments survive a rejection.
func (r *Repository) SubmitVote(
	ctx context.Context,
	electionID string,
	candidateID string,
	voterID string,
) (entities.VoteReceipt, error) {
	electionID = strings.TrimSpace(electionID)
	candidateID = strings.TrimSpace(candidateID)
	voterID = strings.TrimSpace(voterID)

	var receipt entities.VoteReceipt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var electionRow electionModel
		if err := tx.Where("id = ?", electionID).First(&electionRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return err
		}
		election, err := electionRow.toEntity()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		switch election.DerivePhase(now) {
		case entities.PhasePending:
			return domainerrors.ErrElectionNotStarted
		case entities.PhaseEnded:
			return domainerrors.ErrElectionEnded
		}

		var candidateRow candidateModel
		if err := tx.Where("id = ?", candidateID).First(&candidateRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrCandidateNotFound
			}
			return err
		}

		row := voteModel{
			ReceiptID:   uuid.NewString(),
			ElectionID:  electionID,
			CandidateID: candidateID,
			VoterID:     voterID,
			Position:    candidateRow.Position,
			CommittedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			if reason, ok := constraintRejection(err); ok {
				return reason
			}
			return err
		}

		increment := tx.Model(&voterModel{}).
			Where("id = ?", voterID).
			Where("vote_limit_count < ?", r.voteLimit).
			Update("vote_limit_count", gorm.Expr("vote_limit_count + 1"))
		if increment.Error != nil {
			return increment.Error
		}
		if increment.RowsAffected == 0 {
			var voterRow voterModel
			if err := tx.Where("id = ?", voterID).First(&voterRow).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domainerrors.ErrVoterNotFound
				}
				return err
			}
			return domainerrors.ErrVoteLimitExceeded
		}

		receipt = entities.VoteReceipt{
			ReceiptID:   row.ReceiptID,
			ElectionID:  electionID,
			CandidateID: candidateID,
			VoterID:     voterID,
			CommittedAt: now,
		}
		return nil
	})
	if err != nil {
		if isEligibilityError(err) {
			return entities.VoteReceipt{}, err
		}
		return entities.VoteReceipt{}, r.logError("ledger_submit_vote_failed", err,
			"election_id", electionID,
			"candidate_id", candidateID,
			"voter_id", voterID,
		)
	}
	return receipt, nil
}

func (r *Repository) votesByCandidate(
	ctx context.Context,
	electionID string,
) (map[string][]string, error) {
	query := r.db.WithContext(ctx).Model(&voteModel{}).Order("committed_at ASC")
	if electionID != "" {
		query = query.Where("election_id = ?", electionID)
	}
	var rows []voteModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_list_votes_failed", err,
			"election_id", electionID,
		)
	}
	grouped := make(map[string][]string, len(rows))
	for _, row := range rows {
		grouped[row.CandidateID] = append(grouped[row.CandidateID], row.VoterID)
	}
	return grouped, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-core/lifecycle-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

type electionModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Title              string    `gorm:"column:title"`
	Description        string    `gorm:"column:description"`
	StartTime          time.Time `gorm:"column:start_time"`
	EndTime            time.Time `gorm:"column:end_time"`
	ElectionType       int       `gorm:"column:election_type"`
	BoothPlace         string    `gorm:"column:booth_place"`
	Position           string    `gorm:"column:position"`
	CandidateAddresses []byte    `gorm:"column:candidate_addresses"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election) (electionModel, error) {
	addresses, err := json.Marshal(election.CandidateAddresses)
	if err != nil {
		return electionModel{}, err
	}
	row := electionModel{
		ID:                 strings.TrimSpace(election.ElectionID),
		Title:              strings.TrimSpace(election.Title),
		Description:        strings.TrimSpace(election.Description),
		StartTime:          election.StartTime.UTC(),
		EndTime:            election.EndTime.UTC(),
		ElectionType:       int(election.ElectionType),
		BoothPlace:         strings.TrimSpace(election.BoothPlace),
		Position:           strings.TrimSpace(election.Position),
		CandidateAddresses: addresses,
		CreatedAt:          election.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

func (m electionModel) toEntity() (entities.Election, error) {
	var addresses []string
	if len(m.CandidateAddresses) > 0 {
		if err := json.Unmarshal(m.CandidateAddresses, &addresses); err != nil {
			return entities.Election{}, err
		}
	}
	return entities.Election{
		ElectionID:         m.ID,
		Title:              m.Title,
		Description:        m.Description,
		StartTime:          m.StartTime.UTC(),
		EndTime:            m.EndTime.UTC(),
		ElectionType:       entities.ElectionType(m.ElectionType),
		BoothPlace:         m.BoothPlace,
		Position:           m.Position,
		CandidateAddresses: addresses,
		CreatedAt:          m.CreatedAt.UTC(),
	}, nil
}

type candidateModel struct {
	ID          string `gorm:"column:id;primaryKey"`
	UserID      string `gorm:"column:user_id"`
	Party       string `gorm:"column:party"`
	Position    string `gorm:"column:position"`
	VotingBooth string `gorm:"column:voting_booth"`
}

func (candidateModel) TableName() string {
	return "candidates"
}

func candidateModelFromEntity(candidate entities.Candidate) candidateModel {
	return candidateModel{
		ID:          strings.TrimSpace(candidate.CandidateID),
		UserID:      strings.TrimSpace(candidate.UserID),
		Party:       strings.TrimSpace(candidate.Party),
		Position:    strings.TrimSpace(candidate.Position),
		VotingBooth: strings.TrimSpace(candidate.VotingBooth),
	}
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		CandidateID: m.ID,
		UserID:      m.UserID,
		Party:       m.Party,
		Position:    m.Position,
		VotingBooth: m.VotingBooth,
	}
}

type voterModel struct {
	ID                string    `gorm:"column:id;primaryKey"`
	FullName          string    `gorm:"column:full_name"`
	CitizenshipNumber string    `gorm:"column:citizenship_number"`
	Province          string    `gorm:"column:province"`
	District          string    `gorm:"column:district"`
	Municipality      string    `gorm:"column:municipality"`
	Ward              string    `gorm:"column:ward"`
	Email             string    `gorm:"column:email"`
	Profile           string    `gorm:"column:profile"`
	VoteLimitCount    int       `gorm:"column:vote_limit_count"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (voterModel) TableName() string {
	return "voters"
}

func voterModelFromEntity(voter entities.Voter) voterModel {
	row := voterModel{
		ID:                strings.TrimSpace(voter.VoterID),
		FullName:          strings.TrimSpace(voter.FullName),
		CitizenshipNumber: strings.TrimSpace(voter.CitizenshipNumber),
		Province:          strings.TrimSpace(voter.Province),
		District:          strings.TrimSpace(voter.District),
		Municipality:      strings.TrimSpace(voter.Municipality),
		Ward:              strings.TrimSpace(voter.Ward),
		Email:             strings.TrimSpace(voter.Email),
		Profile:           strings.TrimSpace(voter.Profile),
		VoteLimitCount:    voter.VoteLimitCount,
		CreatedAt:         voter.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m voterModel) toEntity() entities.Voter {
	return entities.Voter{
		VoterID:           m.ID,
		FullName:          m.FullName,
		CitizenshipNumber: m.CitizenshipNumber,
		Province:          m.Province,
		District:          m.District,
		Municipality:      m.Municipality,
		Ward:              m.Ward,
		Email:             m.Email,
		Profile:           m.Profile,
		VoteLimitCount:    m.VoteLimitCount,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

type voteModel struct {
	ReceiptID   string    `gorm:"column:receipt_id;primaryKey"`
	ElectionID  string    `gorm:"column:election_id"`
	CandidateID string    `gorm:"column:candidate_id"`
	VoterID     string    `gorm:"column:voter_id"`
	Position    string    `gorm:"column:position"`
	CommittedAt time.Time `gorm:"column:committed_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func constraintRejection(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil, false
	}
	switch pgErr.ConstraintName {
	case voteSeatConstraint:
		return domainerrors.ErrSeatAlreadyFilled, true
	default:
		return domainerrors.ErrDuplicateVote, true
	}
}

func isEligibilityError(err error) bool {
	for _, sentinel := range []error{
		domainerrors.ErrElectionNotFound,
		domainerrors.ErrCandidateNotFound,
		domainerrors.ErrVoterNotFound,
		domainerrors.ErrElectionNotStarted,
		domainerrors.ErrElectionEnded,
		domainerrors.ErrDuplicateVote,
		domainerrors.ErrSeatAlreadyFilled,
		domainerrors.ErrVoteLimitExceeded,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

var _ ports.Ledger = (*Repository)(nil)

// SystemClock implements the Clock port against the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator implements the IDGenerator port.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
