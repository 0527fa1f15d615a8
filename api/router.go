// Package api contains all endpoints available
package api

import (
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/pkg/middleware"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Accounts      *service.AccountService
	Users         middleware.UserFinder
	JWTSecret     []byte
	JWTTTL        time.Duration
	SecureCookies bool
	CORSOrigins   []string
	MaxBodySize   int64
	Turnstile     middleware.TurnstileConfig
}

type API struct {
	Router        *gin.Engine
	Accounts      *service.AccountService
	jwtSecret     []byte
	jwtTTL        time.Duration
	secureCookies bool
}

func NewRouter(o Options) *API {
	a := &API{
		Accounts:      o.Accounts,
		jwtSecret:     o.JWTSecret,
		jwtTTL:        o.JWTTTL,
		secureCookies: o.SecureCookies,
	}

	if o.MaxBodySize <= 0 {
		o.MaxBodySize = 1 << 20
	}

	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"http://localhost:5173"}
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     o.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetUint("userID"); v != 0 {
					fields = append(fields, zap.Uint("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	jwt := middleware.NewJWTMiddleware(o.JWTSecret, o.Users)
	turnstile := middleware.NewTurnstileMiddleware(o.Turnstile)

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// HEAD /api/validate		-> Validates a JWT token
		main.HEAD("/validate", jwt, a.Validate)
	}

	users := main.Group("/users", middleware.BodySizeLimiter(o.MaxBodySize))
	{
		// POST /api/users 			-> Registers a new user
		users.POST("", turnstile, a.UserRegister)

		// POST /api/users/login 		-> Logs in a user and returns a JWT token
		users.POST("/login", a.UserLogin)

		// POST /api/users/verify		-> Redeems an email verification code
		users.POST("/verify", a.UserVerify)

		// POST /api/users/verify/resend	-> Sends a fresh verification email
		users.POST("/verify/resend", turnstile, a.UserVerifyResend)

		// POST /api/users/password/forgot	-> Emails a password reset link
		users.POST("/password/forgot", turnstile, a.PasswordForgot)

		// POST /api/users/password/reset	-> Sets a new password using a reset token
		users.POST("/password/reset", a.PasswordReset)
	}

	me := users.Group("/me", jwt)
	{
		// GET /api/users/me			-> Returns the authenticated user
		me.GET("", a.UserFetch)

		// PATCH /api/users/me			-> Updates the profile of the authenticated user
		me.PATCH("", a.UserUpdate)

		// PUT /api/users/me/password		-> Changes the password of the authenticated user
		me.PUT("/password", a.PasswordUpdate)
	}

	return a
}

func principal(c *gin.Context) service.Principal {
	return service.Principal{UserID: c.MustGet("userID").(uint)}
}
