package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veriq-io/veriq/pkg/version"
)

// Health handles GET /healthz. Liveness only: it deliberately skips the
// database so a storage outage does not get the pod restarted while workers
// are still draining.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Full(),
	})
}
