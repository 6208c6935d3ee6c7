package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestDefaultsResolve(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cfg, resolve := RegisterFlags(cmd)

	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if err := resolve(); err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Fatalf("Timeout = %v, want 5m", cfg.Timeout)
	}
	if cfg.QueueCapacity != 256 {
		t.Fatalf("QueueCapacity = %d, want 256", cfg.QueueCapacity)
	}
	if cfg.PubPath != "/sse" || cfg.SubPath != "/sse" {
		t.Fatalf("pub/sub path defaults wrong: %q %q", cfg.PubPath, cfg.SubPath)
	}
}

func TestEnvOverridesDefault(t *testing.T) {
	os.Setenv("TINYSSE_LISTEN", "127.0.0.1:9999")
	defer os.Unsetenv("TINYSSE_LISTEN")

	cmd := &cobra.Command{Use: "test"}
	cfg, resolve := RegisterFlags(cmd)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if err := resolve(); err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("ListenAddr = %q, want env override", cfg.ListenAddr)
	}
}

func TestExplicitFlagWinsOverEnv(t *testing.T) {
	os.Setenv("TINYSSE_LISTEN", "127.0.0.1:9999")
	defer os.Unsetenv("TINYSSE_LISTEN")

	cmd := &cobra.Command{Use: "test"}
	cfg, resolve := RegisterFlags(cmd)
	if err := cmd.ParseFlags([]string{"--listen", ":1234"}); err != nil {
		t.Fatal(err)
	}
	if err := resolve(); err != nil {
		t.Fatal(err)
	}

	if cfg.ListenAddr != ":1234" {
		t.Fatalf("ListenAddr = %q, want :1234", cfg.ListenAddr)
	}
}
