package api

import (
	"bitwise74/account-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) UserUpdate(c *gin.Context) {
	var data service.UpdateUserRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	user, err := a.Accounts.UpdateProfile(c.Request.Context(), principal(c), data)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
