package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Validate only runs after the JWT middleware accepted the request.
func (a *API) Validate(c *gin.Context) {
	c.Status(http.StatusOK)
}
