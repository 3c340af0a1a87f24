package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueryResult handles GET /api/query/:id/result. Available once the session
// is terminal; repeated reads return the same stored outcome.
func (s *Server) QueryResult(c *gin.Context) {
	result, err := s.service.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
