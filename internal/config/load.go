package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			DedupWindow:  1000,
			VerifyTTLSec: 90,
			SendRPM:      20,
		},
		Follow: FollowConfig{
			MaxPerHour:  18,
			DelayMinSec: 4,
			DelayMaxSec: 12,
			TickSec:     30,
		},
		Store: StoreConfig{
			Database: "igbridge",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; the defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays secrets and overrides that never live in the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("IGBRIDGE_TG_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("IGBRIDGE_TG_GROUP"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.GroupID = id
		}
	}
	if v := os.Getenv("IGBRIDGE_MONGO_URI"); v != "" {
		cfg.Store.MongoURI = v
	}
	if v := os.Getenv("IGBRIDGE_IG_SESSION"); v != "" {
		cfg.Instagram.SessionFile = v
	}
}

// Watch re-reads the config file on change and pushes the follow section
// into the Runtime holder, so file edits take effect like operator
// commands do. Returns a stop function.
func Watch(path string, rt *Runtime) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					slog.Warn("config reload failed", "error", err)
					continue
				}
				rt.SetAutoFollow(cfg.Follow.AutoFollow)
				rt.SetAutoRequests(cfg.Follow.AutoRequests)
				rt.SetMaxPerHour(cfg.Follow.MaxPerHour)
				slog.Info("config reloaded",
					"auto_follow", cfg.Follow.AutoFollow,
					"auto_requests", cfg.Follow.AutoRequests,
					"max_per_hour", cfg.Follow.MaxPerHour,
				)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
