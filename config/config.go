// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels   = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers     = []string{"sqlite", "postgres"}
	validJobBackends = []string{"local", "asynq"}

	ErrNoJWTSecret = errors.New("no jwt secret provided")
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup(flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("failed to bind flags, %w", err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		// Environment only deployments are fine
		fmt.Println("[WARNING]: config.toml not found, using defaults and environment variables")
	}

	err := validate()
	if errors.Is(err, ErrNoJWTSecret) {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return err
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost:5173")
	v.SetDefault("host.ssl.enabled", false)
	v.SetDefault("host.cors", []string{"http://localhost:5173"})
	v.SetDefault("host.max_body_size", 1<<20)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db?_busy_timeout=5000")

	v.SetDefault("jwt.ttl", "720h")

	v.SetDefault("tokens.verification_ttl", "0s")
	v.SetDefault("tokens.reset_ttl", "24h")

	v.SetDefault("jobs.backend", "local")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.batch_size", 16)
	v.SetDefault("jobs.poll_interval", "1s")
	v.SetDefault("jobs.lease", "1m")
	v.SetDefault("jobs.max_attempts", 5)
	v.SetDefault("jobs.redis_addr", "localhost:6379")

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	v.SetDefault("cleanup.schedule", "@daily")
	v.SetDefault("cleanup.retention", "168h")

	v.SetDefault("cloudflare.turnstile.enabled", false)
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt64("host.max_body_size") <= 0 {
		return errors.New("host.max_body_size must be bigger than 0")
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("no database dsn provided")
	}

	if v.GetDuration("jwt.ttl") <= 0 {
		return errors.New("jwt.ttl must be bigger than 0")
	}

	if v.GetDuration("tokens.verification_ttl") < 0 {
		return errors.New("tokens.verification_ttl can't be negative")
	}

	if v.GetDuration("tokens.reset_ttl") <= 0 {
		return errors.New("tokens.reset_ttl must be bigger than 0")
	}

	if !slices.Contains(validJobBackends, v.GetString("jobs.backend")) {
		return errors.New("invalid job backend provided")
	}

	if v.GetString("jobs.backend") == "asynq" && v.GetString("jobs.redis_addr") == "" {
		return errors.New("jobs.redis_addr is required for the asynq backend")
	}

	if v.GetInt("jobs.workers") <= 0 {
		return errors.New("jobs.workers must be bigger than 0")
	}

	if v.GetInt("jobs.max_attempts") <= 0 {
		return errors.New("jobs.max_attempts must be bigger than 0")
	}

	if v.GetDuration("jobs.poll_interval") <= 0 || v.GetDuration("jobs.lease") <= 0 {
		return errors.New("jobs.poll_interval and jobs.lease must be bigger than 0")
	}

	if v.GetBool("mail.enabled") {
		if v.GetString("mail.host") == "" {
			return errors.New("no mail host provided")
		}

		if v.GetString("mail.sender_address") == "" {
			return errors.New("no mail sender address provided")
		}
	} else {
		fmt.Println("[WARNING]: Mail delivery is disabled. Emails will only be logged")
	}

	if v.GetDuration("cleanup.retention") < 0 {
		return errors.New("cleanup.retention can't be negative")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Some public endpoints won't be guarded against bots")
	} else if v.GetString("cloudflare.turnstile.secret_token") == "" {
		return errors.New("turnstile secret token is missing")
	}

	if v.GetString("jwt.secret") == "" {
		return ErrNoJWTSecret
	}

	return nil
}

// BaseURL is the public address of the frontend, used for email links.
func BaseURL() string {
	var s string
	if v.GetBool("host.ssl.enabled") {
		s = "s"
	}

	return fmt.Sprintf("http%v://%v", s, v.GetString("host.domain"))
}
