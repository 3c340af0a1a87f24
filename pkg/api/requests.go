package api

// SubmitQueryRequest is the HTTP request body for POST /api/query.
type SubmitQueryRequest struct {
	Question string `json:"question"`
}
