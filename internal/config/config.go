// Package config resolves Tiny SSE's CLI flags, falling back to
// TINYSSE_<UPPER_CASE> environment variables for any flag left at its
// default, in the same style buffkit's examples/main.go uses gobuffalo/envy
// to resolve PORT/HOST/GO_ENV: envy.Get(key, default) supplies the flag's
// default value, so an environment variable and an explicit flag both work
// and the flag wins when both are set.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/spf13/cobra"
)

// Config holds every value spec.md §6 lists as a CLI option.
type Config struct {
	ListenAddr string
	LogLevel   string

	KeepAliveInterval time.Duration
	KeepAliveText     string
	Timeout           time.Duration
	TimeoutRetry      time.Duration

	QueueCapacity int

	ScriptPath         string
	ScriptData         string
	ScriptTickInterval time.Duration
	UnsafeScript       bool

	MaxBodySize int64

	PubPath string
	SubPath string

	StaticDir  string
	StaticPath string

	CORSAllowOrigin      string
	CORSAllowMethods     string
	CORSAllowHeaders     string
	CORSAllowCredentials bool
	CORSMaxAge           int

	ShutdownGrace time.Duration
}

// rawFlags mirrors Config but holds the primitive types cobra/pflag knows
// how to bind directly; durations are parsed from their string flags by
// the resolver RegisterFlags returns.
type rawFlags struct {
	keepAliveInterval string
	timeout           string
	timeoutRetry      string
	scriptTickInterval string
	shutdownGrace      string
}

// envDefault resolves a flag's default value: the TINYSSE_<name> env var if
// set, else fallback.
func envDefault(name, fallback string) string {
	return envy.Get("TINYSSE_"+name, fallback)
}

// RegisterFlags defines every CLI flag on cmd, sourcing defaults from the
// environment, and returns a Config plus a resolver to call after
// cmd.Execute() parses arguments.
func RegisterFlags(cmd *cobra.Command) (*Config, func() error) {
	cfg := &Config{}
	raw := &rawFlags{}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ListenAddr, "listen", envDefault("LISTEN", ":8080"), "address to listen on")
	flags.StringVar(&cfg.LogLevel, "log-level", envDefault("LOG_LEVEL", "info"), "log level (error, warn, info, debug, trace)")

	flags.StringVar(&raw.keepAliveInterval, "keep-alive", envDefault("KEEP_ALIVE", "60s"), "keep-alive interval")
	flags.StringVar(&cfg.KeepAliveText, "keep-alive-text", envDefault("KEEP_ALIVE_TEXT", "keep-alive"), "keep-alive comment text")
	flags.StringVar(&raw.timeout, "timeout", envDefault("TIMEOUT", "5m"), "subscriber idle timeout")
	flags.StringVar(&raw.timeoutRetry, "timeout-retry", envDefault("TIMEOUT_RETRY", "0ms"), "retry: value sent on timeout")

	flags.IntVar(&cfg.QueueCapacity, "queue-capacity", mustAtoi(envDefault("QUEUE_CAPACITY", "256")), "broadcast queue capacity")

	flags.StringVar(&cfg.ScriptPath, "script", envDefault("SCRIPT", ""), "path to the hook script")
	flags.StringVar(&cfg.ScriptData, "script-data", envDefault("SCRIPT_DATA", ""), "inline script source, alternative to --script")
	flags.StringVar(&raw.scriptTickInterval, "script-tick-interval", envDefault("SCRIPT_TICK_INTERVAL", "500ms"), "tick hook interval")
	flags.BoolVar(&cfg.UnsafeScript, "unsafe-script", envDefault("UNSAFE_SCRIPT", "") == "true", "allow the script to open io/os Lua libraries")

	flags.Int64Var(&cfg.MaxBodySize, "max-body-size", int64(mustAtoi(envDefault("MAX_BODY_SIZE", "65536"))), "maximum publish body size in bytes")

	flags.StringVar(&cfg.PubPath, "pub-path", envDefault("PUB_PATH", "/sse"), "publish endpoint path")
	flags.StringVar(&cfg.SubPath, "sub-path", envDefault("SUB_PATH", "/sse"), "subscribe endpoint path")

	flags.StringVar(&cfg.StaticDir, "static-dir", envDefault("STATIC_DIR", ""), "directory to serve static files from")
	flags.StringVar(&cfg.StaticPath, "static-path", envDefault("STATIC_PATH", "/"), "URL path prefix for static files")

	flags.StringVar(&cfg.CORSAllowOrigin, "cors-allow-origin", envDefault("CORS_ALLOW_ORIGIN", ""), "Access-Control-Allow-Origin value")
	flags.StringVar(&cfg.CORSAllowMethods, "cors-allow-methods", envDefault("CORS_ALLOW_METHODS", "GET, POST"), "Access-Control-Allow-Methods value")
	flags.StringVar(&cfg.CORSAllowHeaders, "cors-allow-headers", envDefault("CORS_ALLOW_HEADERS", ""), "Access-Control-Allow-Headers value")
	flags.BoolVar(&cfg.CORSAllowCredentials, "cors-allow-credentials", envDefault("CORS_ALLOW_CREDENTIALS", "") == "true", "Access-Control-Allow-Credentials value")
	flags.IntVar(&cfg.CORSMaxAge, "cors-max-age", mustAtoi(envDefault("CORS_MAX_AGE", "0")), "Access-Control-Max-Age value")

	flags.StringVar(&raw.shutdownGrace, "shutdown-grace", envDefault("SHUTDOWN_GRACE", "5s"), "grace period for in-flight sessions on shutdown")

	resolve := func() error {
		var err error
		if cfg.KeepAliveInterval, err = time.ParseDuration(raw.keepAliveInterval); err != nil {
			return fmt.Errorf("config: --keep-alive: %w", err)
		}
		if cfg.Timeout, err = time.ParseDuration(raw.timeout); err != nil {
			return fmt.Errorf("config: --timeout: %w", err)
		}
		if cfg.TimeoutRetry, err = time.ParseDuration(raw.timeoutRetry); err != nil {
			return fmt.Errorf("config: --timeout-retry: %w", err)
		}
		if cfg.ScriptTickInterval, err = time.ParseDuration(raw.scriptTickInterval); err != nil {
			return fmt.Errorf("config: --script-tick-interval: %w", err)
		}
		if cfg.ShutdownGrace, err = time.ParseDuration(raw.shutdownGrace); err != nil {
			return fmt.Errorf("config: --shutdown-grace: %w", err)
		}
		return nil
	}

	return cfg, resolve
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
