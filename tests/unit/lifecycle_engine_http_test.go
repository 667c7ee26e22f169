package unit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	lifecycleengine "ballotcore/contexts/election-core/lifecycle-engine"
	"ballotcore/contexts/election-core/lifecycle-engine/domain/entities"
	httptransport "ballotcore/contexts/election-core/lifecycle-engine/transport/http"
	"ballotcore/internal/platform/httpserver"
)

func doJSON(t *testing.T, handler http.Handler, method string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode request failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}

func TestHTTPVoteStatusMapping(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := base
	module.Store.SetNow(func() time.Time { return current })

	seedCandidate(t, module, entities.Candidate{CandidateID: "candidate-1", UserID: "user-c1", Position: "mayor"})
	seedVoter(t, module, entities.Voter{VoterID: "voter-1", FullName: "Asha Rai"})

	handler := httpserver.New(module, nil, ":0").Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/elections", httptransport.CreateElectionRequest{
		Title:        "Municipal Election",
		StartTime:    base.Add(time.Minute).Format(time.RFC3339),
		EndTime:      base.Add(time.Hour).Format(time.RFC3339),
		ElectionType: int(entities.ElectionTypeLocal),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on create, got %d: %s", rec.Code, rec.Body.String())
	}
	var created httptransport.ElectionResponse
	decodeInto(t, rec, &created)
	if created.ElectionID == "" {
		t.Fatalf("expected election id in response")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/elections/"+created.ElectionID+"/phase", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on phase fetch, got %d", rec.Code)
	}
	var phaseResp httptransport.ElectionPhaseResponse
	decodeInto(t, rec, &phaseResp)
	if phaseResp.Phase != string(entities.PhasePending) {
		t.Fatalf("expected PENDING, got %s", phaseResp.Phase)
	}

	vote := httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  created.ElectionID,
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/votes", vote)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 before start, got %d: %s", rec.Code, rec.Body.String())
	}
	var outcome httptransport.VoteOutcomeResponse
	decodeInto(t, rec, &outcome)
	if outcome.Accepted || outcome.Reason != "not_started" {
		t.Fatalf("expected not_started outcome, got %+v", outcome)
	}

	current = base.Add(2 * time.Minute)
	rec = doJSON(t, handler, http.MethodPost, "/api/votes", vote)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on accepted vote, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &outcome)
	if !outcome.Accepted || outcome.Receipt == nil {
		t.Fatalf("expected accepted vote with receipt, got %+v", outcome)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/votes", vote)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate vote, got %d", rec.Code)
	}
	decodeInto(t, rec, &outcome)
	if outcome.Accepted || outcome.Reason != "duplicate_vote" {
		t.Fatalf("expected duplicate_vote outcome, got %+v", outcome)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/votes", httptransport.CastVoteRequest{
		VoterID:     "voter-1",
		CandidateID: "candidate-1",
		ElectionID:  "missing",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown election, got %d", rec.Code)
	}
	var apiErr httptransport.ErrorResponse
	decodeInto(t, rec, &apiErr)
	if apiErr.Code != "election_not_found" {
		t.Fatalf("expected election_not_found code, got %s", apiErr.Code)
	}
}

func TestHTTPListingAndBadQuery(t *testing.T) {
	module := lifecycleengine.NewInMemoryModule(3, nil)
	seedVoter(t, module, entities.Voter{VoterID: "voter-1", FullName: "Asha Rai"})
	seedCandidate(t, module, entities.Candidate{CandidateID: "candidate-1", UserID: "user-c1", Position: "mayor"})

	handler := httpserver.New(module, nil, ":0").Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/voters?skip=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric skip, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/voters?skip=0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on voter listing, got %d", rec.Code)
	}
	var voters httptransport.VoterListResponse
	decodeInto(t, rec, &voters)
	if len(voters.Items) != 1 || voters.Items[0].VoterID != "voter-1" {
		t.Fatalf("unexpected voter listing: %+v", voters.Items)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/voters/voter-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on voter fetch, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/voters/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown voter, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/candidates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on candidate listing, got %d", rec.Code)
	}
	var candidates httptransport.CandidateListResponse
	decodeInto(t, rec, &candidates)
	if len(candidates.Items) != 1 {
		t.Fatalf("expected one candidate, got %d", len(candidates.Items))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/elections", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on election listing, got %d", rec.Code)
	}
}
