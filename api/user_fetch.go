package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserFetch returns the profile of the authenticated user
func (a *API) UserFetch(c *gin.Context) {
	user, err := a.Accounts.Me(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
