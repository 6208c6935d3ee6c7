// Command tinysse runs the programmable SSE broker: it loads the
// configured hook script (if any), starts the broadcast queue, the ticker,
// and the HTTP publish/subscribe endpoints, and shuts down gracefully on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/benwilber/tinysse/internal/broker"
	"github.com/benwilber/tinysse/internal/config"
	"github.com/benwilber/tinysse/internal/hooks"
	"github.com/benwilber/tinysse/internal/queue"
	"github.com/benwilber/tinysse/internal/scripting"
	"github.com/benwilber/tinysse/internal/session"
	"github.com/benwilber/tinysse/internal/ticker"
)

func main() {
	os.Exit(run())
}

// Exit codes follow spec.md §6: 0 normal shutdown, non-zero on bind
// failure or script error at load/startup.
const (
	exitOK            = 0
	exitScriptError   = 1
	exitBindFailure   = 2
	exitStartupHook   = 3
)

func run() int {
	log := logrus.StandardLogger()

	var exitCode int
	cmd := &cobra.Command{
		Use:   "tinysse",
		Short: "Tiny SSE is a programmable broker for Server-Sent Events",
	}
	cfg, resolve := config.RegisterFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := resolve(); err != nil {
			exitCode = exitScriptError
			return err
		}

		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)

		source, err := loadScriptSource(cfg.ScriptPath, cfg.ScriptData)
		if err != nil {
			exitCode = exitScriptError
			return err
		}

		engine, err := scripting.New(source, scripting.Options{
			Logger:       log,
			UnsafeScript: cfg.UnsafeScript,
		})
		if err != nil {
			exitCode = exitScriptError
			return err
		}
		defer engine.Close()

		var pipeline hooks.Pipeline = hooks.DefaultPipeline{}
		if source != "" {
			pipeline = scripting.NewPipeline(engine)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := pipeline.Startup(ctx, cliSnapshot(cfg)); err != nil {
			log.WithError(err).Error("startup hook failed")
			exitCode = exitStartupHook
			return err
		}

		q := queue.New(cfg.QueueCapacity)

		t := &ticker.Ticker{
			Interval: cfg.ScriptTickInterval,
			Pipeline: pipeline,
			Logger:   log,
		}
		go t.Run(ctx)

		b := broker.New(broker.Config{
			PubPath:     cfg.PubPath,
			SubPath:     cfg.SubPath,
			MaxBodySize: cfg.MaxBodySize,
			StaticDir:   cfg.StaticDir,
			StaticPath:  cfg.StaticPath,
			CORS: broker.CORSOptions{
				AllowOrigin:      cfg.CORSAllowOrigin,
				AllowMethods:     cfg.CORSAllowMethods,
				AllowHeaders:     cfg.CORSAllowHeaders,
				AllowCredentials: cfg.CORSAllowCredentials,
				MaxAge:           cfg.CORSMaxAge,
			},
			Session: sessionConfig(cfg, log),
		}, q, pipeline, log)

		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: b,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.WithField("addr", cfg.ListenAddr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serveErr <- err
				return
			}
			serveErr <- nil
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serveErr:
			if err != nil {
				log.WithError(err).Error("listen failed")
				exitCode = exitBindFailure
				return err
			}
		case <-sigCh:
			log.Info("shutting down")
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
			b.Shutdown(shutdownCtx, cfg.ShutdownGrace)
		}

		return nil
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = exitScriptError
		}
	}
	return exitCode
}

func loadScriptSource(path, inline string) (string, error) {
	if path == "" {
		return inline, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading script %s: %w", path, err)
	}
	return string(data), nil
}

func cliSnapshot(cfg *config.Config) hooks.Value {
	return hooks.Map(map[string]hooks.Value{
		"listen":       hooks.String(cfg.ListenAddr),
		"pub_path":     hooks.String(cfg.PubPath),
		"sub_path":     hooks.String(cfg.SubPath),
		"queue_capacity": hooks.Int(int64(cfg.QueueCapacity)),
	})
}

func sessionConfig(cfg *config.Config, log *logrus.Logger) session.Config {
	return session.Config{
		KeepAliveInterval: cfg.KeepAliveInterval,
		KeepAliveText:     cfg.KeepAliveText,
		Timeout:           cfg.Timeout,
		TimeoutRetryMs:    cfg.TimeoutRetry.Milliseconds(),
		Logger:            log,
	}
}
