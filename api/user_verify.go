package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type verifyBody struct {
	Code string `json:"code"`
}

type emailBody struct {
	Email string `json:"email"`
}

// UserVerify accepts the code either as ?code= (links from the email) or in
// a JSON body.
func (a *API) UserVerify(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		var data verifyBody
		if err := c.ShouldBindJSON(&data); err != nil {
			badBody(c, err)
			return
		}

		code = data.Code
	}

	if err := a.Accounts.VerifyEmail(c.Request.Context(), code); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified",
	})
}

func (a *API) UserVerifyResend(c *gin.Context) {
	var data emailBody
	if err := c.ShouldBindJSON(&data); err != nil {
		badBody(c, err)
		return
	}

	if err := a.Accounts.ResendVerification(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Verification email sent",
	})
}
