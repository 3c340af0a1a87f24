package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SubmitQuery handles POST /api/query. It only creates the session row; the
// worker pool discovers it through the database, so the handler returns as
// soon as the row is durable.
func (s *Server) SubmitQuery(c *gin.Context) {
	var req SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "Invalid request body"})
		return
	}

	session, err := s.service.Submit(c.Request.Context(), req.Question)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	s.logger.Info("Query submitted", "session_id", session.ID)
	c.JSON(http.StatusOK, SubmitQueryResponse{
		SessionID: session.ID,
		Status:    "PROCESSING",
	})
}
