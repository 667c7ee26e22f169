package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ballotcore/contexts/election-core/lifecycle-engine/application"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	"ballotcore/contexts/election-core/lifecycle-engine/ports"
)

// CreateElectionCommand is the write-model input for election registration.
type CreateElectionCommand struct {
	Title              string
	Description        string
	StartTime          time.Time
	EndTime            time.Time
	ElectionType       entities.ElectionType
	BoothPlace         string
	Position           string
	CandidateAddresses []string
}

// ElectionUseCase creates the ledger record and arms the phase triggers.
// Elections are immutable after creation; there is no edit or cancel command.
type ElectionUseCase struct {
	Ledger   ports.Ledger
	Triggers ports.PhaseTriggers
	Clock    ports.Clock
	Logger   *slog.Logger
}

// CreateElection validates the window, commits the record to the ledger and
// registers both phase triggers. A trigger registration fault is logged and
// swallowed: the election stands, clients fall back to polled phase.
func (uc ElectionUseCase) CreateElection(
	ctx context.Context,
	cmd CreateElectionCommand,
) (entities.Election, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return entities.Election{}, domainerrors.ErrInvalidElectionInput
	}
	switch cmd.ElectionType {
	case entities.ElectionTypeNational, entities.ElectionTypeLocal, entities.ElectionTypeDistrict:
	default:
		return entities.Election{}, domainerrors.ErrInvalidElectionInput
	}
	if !cmd.StartTime.Before(cmd.EndTime) {
		return entities.Election{}, domainerrors.ErrElectionWindow
	}

	election := entities.Election{
		Title:              title,
		Description:        strings.TrimSpace(cmd.Description),
		StartTime:          cmd.StartTime.UTC(),
		EndTime:            cmd.EndTime.UTC(),
		ElectionType:       cmd.ElectionType,
		BoothPlace:         strings.TrimSpace(cmd.BoothPlace),
		Position:           strings.TrimSpace(cmd.Position),
		CandidateAddresses: dedupeIDs(cmd.CandidateAddresses),
		CreatedAt:          uc.now(),
	}

	electionID, err := uc.Ledger.CreateElection(ctx, election)
	if err != nil {
		logger.Error("election create ledger commit failed",
			"event", "election_create_ledger_failed",
			"module", "election-core/lifecycle-engine",
			"layer", "application",
			"title", title,
			"error", err.Error(),
		)
		return entities.Election{}, err
	}
	election.ElectionID = electionID

	if uc.Triggers != nil {
		// Best effort: a failed registration leaves the election reachable
		// through polled phase resolution and the reconciler worker retries.
		_ = uc.Triggers.Register(election)
	}

	logger.Info("election created",
		"event", "election_created",
		"module", "election-core/lifecycle-engine",
		"layer", "application",
		"election_id", electionID,
		"title", title,
		"start_time", election.StartTime.Format(time.RFC3339),
		"end_time", election.EndTime.Format(time.RFC3339),
	)
	return election, nil
}

func (uc ElectionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
