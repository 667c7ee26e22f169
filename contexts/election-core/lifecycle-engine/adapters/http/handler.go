package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"ballotcore/contexts/election-core/lifecycle-engine/application/commands"
	"ballotcore/contexts/election-core/lifecycle-engine/application/queries"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	httptransport "ballotcore/contexts/election-core/lifecycle-engine/transport/http"
)

type Handler struct {
	Elections commands.ElectionUseCase
	Votes     commands.VoteUseCase
	Queries   queries.ElectionQueries
	Logger    *slog.Logger
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	req httptransport.CreateElectionRequest,
) (httptransport.ElectionResponse, error) {
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return httptransport.ElectionResponse{}, domainerrors.ErrInvalidElectionInput
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return httptransport.ElectionResponse{}, domainerrors.ErrInvalidElectionInput
	}

	election, err := h.Elections.CreateElection(ctx, commands.CreateElectionCommand{
		Title:              req.Title,
		Description:        req.Description,
		StartTime:          startTime,
		EndTime:            endTime,
		ElectionType:       entities.ElectionType(req.ElectionType),
		BoothPlace:         req.BoothPlace,
		Position:           req.Position,
		CandidateAddresses: req.CandidateAddresses,
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	req httptransport.CastVoteRequest,
) (httptransport.VoteOutcomeResponse, error) {
	outcome, err := h.Votes.EvaluateAndVote(ctx, commands.VoteCommand{
		VoterID:     req.VoterID,
		CandidateID: req.CandidateID,
		Position:    req.Position,
		ElectionID:  req.ElectionID,
	})
	if err != nil {
		return httptransport.VoteOutcomeResponse{}, err
	}

	resp := httptransport.VoteOutcomeResponse{
		Accepted: outcome.Accepted,
		Reason:   string(outcome.Reason),
	}
	if outcome.Accepted {
		resp.Receipt = &httptransport.VoteReceiptResponse{
			ReceiptID:   outcome.Receipt.ReceiptID,
			ElectionID:  outcome.Receipt.ElectionID,
			CandidateID: outcome.Receipt.CandidateID,
			VoterID:     outcome.Receipt.VoterID,
			CommittedAt: outcome.Receipt.CommittedAt.UTC().Format(time.RFC3339),
		}
	}
	return resp, nil
}

func (h Handler) GetElectionHandler(
	ctx context.Context,
	electionID string,
) (httptransport.ElectionResponse, error) {
	election, err := h.Queries.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) ListElectionsHandler(ctx context.Context) (httptransport.ElectionListResponse, error) {
	elections, err := h.Queries.ListElections(ctx)
	if err != nil {
		return httptransport.ElectionListResponse{}, err
	}
	items := make([]httptransport.ElectionResponse, 0, len(elections))
	for _, election := range elections {
		items = append(items, mapElection(election))
	}
	return httptransport.ElectionListResponse{Items: items}, nil
}

func (h Handler) ElectionPhaseHandler(
	ctx context.Context,
	electionID string,
) (httptransport.ElectionPhaseResponse, error) {
	currentPhase, err := h.Queries.ElectionPhase(ctx, electionID)
	if err != nil {
		return httptransport.ElectionPhaseResponse{}, err
	}
	return httptransport.ElectionPhaseResponse{
		ElectionID: electionID,
		Phase:      string(currentPhase),
	}, nil
}

func (h Handler) ListCandidatesHandler(
	ctx context.Context,
	electionID string,
) (httptransport.CandidateListResponse, error) {
	candidates, err := h.Queries.ListCandidates(ctx, electionID)
	if err != nil {
		return httptransport.CandidateListResponse{}, err
	}
	items := make([]httptransport.CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, httptransport.CandidateResponse{
			CandidateID:   candidate.CandidateID,
			UserID:        candidate.UserID,
			Party:         candidate.Party,
			Position:      candidate.Position,
			VotingBooth:   candidate.VotingBooth,
			VotedVoterIDs: candidate.VotedVoterIDs,
		})
	}
	return httptransport.CandidateListResponse{Items: items}, nil
}

func (h Handler) GetVoterHandler(
	ctx context.Context,
	voterID string,
) (httptransport.VoterResponse, error) {
	voter, err := h.Queries.GetVoter(ctx, voterID)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return mapVoter(voter), nil
}

func (h Handler) ListVotersHandler(
	ctx context.Context,
	skip int,
) (httptransport.VoterListResponse, error) {
	voters, err := h.Queries.ListVoters(ctx, skip)
	if err != nil {
		return httptransport.VoterListResponse{}, err
	}
	items := make([]httptransport.VoterResponse, 0, len(voters))
	for _, voter := range voters {
		items = append(items, mapVoter(voter))
	}
	return httptransport.VoterListResponse{Items: items}, nil
}

func mapElection(election entities.Election) httptransport.ElectionResponse {
	return httptransport.ElectionResponse{
		ElectionID:         election.ElectionID,
		Title:              election.Title,
		Description:        election.Description,
		StartTime:          election.StartTime.UTC().Format(time.RFC3339),
		EndTime:            election.EndTime.UTC().Format(time.RFC3339),
		ElectionType:       int(election.ElectionType),
		BoothPlace:         election.BoothPlace,
		Position:           election.Position,
		CandidateAddresses: election.CandidateAddresses,
		CreatedAt:          election.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapVoter(voter entities.Voter) httptransport.VoterResponse {
	return httptransport.VoterResponse{
		VoterID:           voter.VoterID,
		FullName:          voter.FullName,
		CitizenshipNumber: voter.CitizenshipNumber,
		Province:          voter.Province,
		District:          voter.District,
		Municipality:      voter.Municipality,
		Ward:              voter.Ward,
		Email:             voter.Email,
		Profile:           voter.Profile,
		VoteLimitCount:    voter.VoteLimitCount,
	}
}
