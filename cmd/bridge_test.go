package cmd

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/hoangnv-dev/igbridge/internal/config"
)

func TestMissingConfig(t *testing.T) {
	t.Run("default config lacks everything", func(t *testing.T) {
		cfg := config.Default()
		if cfg.Enabled() {
			t.Fatal("default config must not be enabled")
		}
		missing := missingConfig(cfg)
		want := []string{"instagram.session_file", "IGBRIDGE_TG_TOKEN", "telegram.group_id"}
		if len(missing) != len(want) {
			t.Fatalf("missing = %v, want %v", missing, want)
		}
		for i := range want {
			if missing[i] != want[i] {
				t.Errorf("missing[%d] = %q, want %q", i, missing[i], want[i])
			}
		}
	})

	t.Run("fully configured reports nothing", func(t *testing.T) {
		cfg := config.Default()
		cfg.Instagram.SessionFile = "session.json"
		cfg.Telegram.Token = "123:abc"
		cfg.Telegram.GroupID = -100500
		if !cfg.Enabled() {
			t.Fatal("config should be enabled")
		}
		if missing := missingConfig(cfg); len(missing) != 0 {
			t.Errorf("missing = %v, want none", missing)
		}
	})
}

// An unconfigured bridge idles as a no-op until signalled; it must not
// exit on its own.
func TestRunDisabledIdlesUntilSignal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		runDisabled(config.Default(), sigCh)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("disabled bridge returned before any signal")
	case <-time.After(50 * time.Millisecond):
	}

	sigCh <- syscall.SIGTERM
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled bridge did not stop on signal")
	}
}
