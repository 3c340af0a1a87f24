package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueryTrace handles GET /api/query/:id/trace. The response carries planner
// decisions and search metadata only; the token middleware has already run
// by the time this handler executes.
func (s *Server) QueryTrace(c *gin.Context) {
	trace, err := s.service.Trace(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trace)
}
