package cmd

import (
	"bitwise74/account-api/api"
	"bitwise74/account-api/pkg/middleware"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("no-worker", false, "don't drain the job outbox in this process")
}

func runServe(cmd *cobra.Command, _ []string) error {
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup()
	if err != nil {
		return err
	}
	defer d.Close()

	a := api.NewRouter(api.Options{
		Accounts:      d.Accounts,
		Users:         d.Users,
		JWTSecret:     []byte(v.GetString("jwt.secret")),
		JWTTTL:        v.GetDuration("jwt.ttl"),
		SecureCookies: v.GetBool("host.ssl.enabled"),
		CORSOrigins:   v.GetStringSlice("host.cors"),
		MaxBodySize:   v.GetInt64("host.max_body_size"),
		Turnstile: middleware.TurnstileConfig{
			Enabled: v.GetBool("cloudflare.turnstile.enabled"),
			Secret:  v.GetString("cloudflare.turnstile.secret_token"),
		},
	})

	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		stopWorkers, err := startWorkers(ctx, d)
		if err != nil {
			return err
		}
		defer stopWorkers()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", v.GetInt("host.port")),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
