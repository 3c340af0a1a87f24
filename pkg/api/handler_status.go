package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueryStatus handles GET /api/query/:id/status. It reports the stored
// lifecycle state verbatim, including the intermediate planner states.
func (s *Server) QueryStatus(c *gin.Context) {
	status, err := s.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, QueryStatusResponse{Status: string(status)})
}
