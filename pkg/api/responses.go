package api

// ErrorResponse is the uniform error body: one short, user-facing detail
// string and nothing else.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// SubmitQueryResponse acknowledges an accepted submission. Status is always
// "PROCESSING": execution happens asynchronously regardless of how fast a
// worker picks the session up.
type SubmitQueryResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// QueryStatusResponse reports the stored lifecycle state.
type QueryStatusResponse struct {
	Status string `json:"status"`
}
