package api

import (
	"bitwise74/account-api/pkg/middleware"
	"bitwise74/account-api/pkg/security"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) UserLogin(c *gin.Context) {
	requestID := c.GetString("requestID")

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	user, err := a.Accounts.Authenticate(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		fail(c, err)
		return
	}

	authToken, err := security.MakeAuthToken(a.jwtSecret, user.ID, a.jwtTTL, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate JWT auth token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	maxAge := int(a.jwtTTL.Seconds())
	c.SetCookie(middleware.AuthCookie, authToken, maxAge, "/", "", a.secureCookies, true)
	c.SetCookie("logged_in", "1", maxAge, "/", "", a.secureCookies, false)

	c.JSON(http.StatusOK, gin.H{
		"userID":   user.ID,
		"verified": user.Verified,
		"token":    authToken,
	})
}
