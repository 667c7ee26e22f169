package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateElectionRequest struct {
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	StartTime          string   `json:"start_time"`
	EndTime            string   `json:"end_time"`
	ElectionType       int      `json:"election_type"`
	BoothPlace         string   `json:"booth_place,omitempty"`
	Position           string   `json:"position,omitempty"`
	CandidateAddresses []string `json:"candidate_addresses,omitempty"`
}

type ElectionResponse struct {
	ElectionID         string   `json:"election_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	StartTime          string   `json:"start_time"`
	EndTime            string   `json:"end_time"`
	ElectionType       int      `json:"election_type"`
	BoothPlace         string   `json:"booth_place,omitempty"`
	Position           string   `json:"position,omitempty"`
	CandidateAddresses []string `json:"candidate_addresses,omitempty"`
	CreatedAt          string   `json:"created_at"`
}

type ElectionListResponse struct {
	Items []ElectionResponse `json:"items"`
}

type ElectionPhaseResponse struct {
	ElectionID string `json:"election_id"`
	Phase      string `json:"phase"`
}

type CastVoteRequest struct {
	VoterID     string `json:"voter_id"`
	CandidateID string `json:"candidate_id"`
	Position    string `json:"position,omitempty"`
	ElectionID  string `json:"election_id"`
}

type VoteReceiptResponse struct {
	ReceiptID   string `json:"receipt_id"`
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
	VoterID     string `json:"voter_id"`
	CommittedAt string `json:"committed_at"`
}

type VoteOutcomeResponse struct {
	Accepted bool                 `json:"accepted"`
	Reason   string               `json:"reason,omitempty"`
	Receipt  *VoteReceiptResponse `json:"receipt,omitempty"`
}

type CandidateResponse struct {
	CandidateID   string   `json:"candidate_id"`
	UserID        string   `json:"user_id"`
	Party         string   `json:"party,omitempty"`
	Position      string   `json:"position,omitempty"`
	VotingBooth   string   `json:"voting_booth,omitempty"`
	VotedVoterIDs []string `json:"voted_voter_ids,omitempty"`
}

type CandidateListResponse struct {
	Items []CandidateResponse `json:"items"`
}

type VoterResponse struct {
	VoterID           string `json:"voter_id"`
	FullName          string `json:"full_name"`
	CitizenshipNumber string `json:"citizenship_number,omitempty"`
	Province          string `json:"province,omitempty"`
	District          string `json:"district,omitempty"`
	Municipality      string `json:"municipality,omitempty"`
	Ward              string `json:"ward,omitempty"`
	Email             string `json:"email,omitempty"`
	Profile           string `json:"profile,omitempty"`
	VoteLimitCount    int    `json:"vote_limit_count"`
}

type VoterListResponse struct {
	Items []VoterResponse `json:"items"`
}
