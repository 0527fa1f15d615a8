package api

import (
	"bitwise74/account-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) PasswordForgot(c *gin.Context) {
	var data emailBody
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	if err := a.Accounts.ForgotPassword(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Password reset email sent",
	})
}

func (a *API) PasswordReset(c *gin.Context) {
	var data service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	if err := a.Accounts.ResetPassword(c.Request.Context(), data); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password has been reset",
	})
}

func (a *API) PasswordUpdate(c *gin.Context) {
	var data service.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	user, err := a.Accounts.UpdatePassword(c.Request.Context(), principal(c), data)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
