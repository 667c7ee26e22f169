package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	lifecycleengine "ballotcore/contexts/election-core/lifecycle-engine"
	domainerrors "ballotcore/contexts/election-core/lifecycle-engine/domain/errors"
	enginehttp "ballotcore/contexts/election-core/lifecycle-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "ballotcore/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	engine lifecycleengine.Module
}

func New(engine lifecycleengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		engine: engine,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the route mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /api/elections", s.handleListElections)
	s.mux.HandleFunc("GET /api/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("GET /api/elections/{election_id}/phase", s.handleElectionPhase)
	s.mux.HandleFunc("GET /api/candidates", s.handleListCandidates)
	s.mux.HandleFunc("GET /api/voters", s.handleListVoters)
	s.mux.HandleFunc("GET /api/voters/{voter_id}", s.handleGetVoter)
	s.mux.HandleFunc("POST /api/votes", s.handleCastVote)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req enginehttp.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CreateElectionHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListElections(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.ListElectionsHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.GetElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleElectionPhase(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.ElectionPhaseHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.ListCandidatesHandler(r.Context(), r.URL.Query().Get("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListVoters(w http.ResponseWriter, r *http.Request) {
	skip := 0
	if raw := r.URL.Query().Get("skip"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_skip", "skip must be an integer")
			return
		}
		skip = value
	}
	resp, err := s.engine.Handler.ListVotersHandler(r.Context(), skip)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.engine.Handler.GetVoterHandler(r.Context(), r.PathValue("voter_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req enginehttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.engine.Handler.CastVoteHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Rejections are outcomes, not transport errors; status reflects the
	// decision so dumb clients can branch without parsing the reason.
	status := http.StatusOK
	if !resp.Accepted {
		status = rejectionStatus(resp.Reason)
	}
	writeJSON(w, status, resp)
}

func rejectionStatus(reason string) int {
	switch reason {
	case "not_started", "ended":
		return http.StatusUnprocessableEntity
	case "duplicate_vote", "seat_already_filled",
		"already_voted_as_candidate", "vote_limit_exceeded":
		return http.StatusConflict
	case "ledger_unavailable":
		return http.StatusServiceUnavailable
	case "ledger_rejected":
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrElectionNotFound):
		writeError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrCandidateNotFound):
		writeError(w, http.StatusNotFound, "candidate_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrVoterNotFound):
		writeError(w, http.StatusNotFound, "voter_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrElectionWindow):
		writeError(w, http.StatusBadRequest, "invalid_election_window", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidElectionInput):
		writeError(w, http.StatusBadRequest, "invalid_election_input", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidVoteInput):
		writeError(w, http.StatusBadRequest, "invalid_vote_input", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, enginehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
