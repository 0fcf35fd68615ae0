package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoangnv-dev/igbridge/internal/bridge"
	"github.com/hoangnv-dev/igbridge/internal/config"
	"github.com/hoangnv-dev/igbridge/internal/instagram"
	"github.com/hoangnv-dev/igbridge/internal/store"
	"github.com/hoangnv-dev/igbridge/internal/telegram"
)

func runBridge() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Missing credentials disable the bridge instead of crashing it: a
	// half-configured deployment idles as a no-op until stopped.
	if !cfg.Enabled() {
		runDisabled(cfg, sigCh)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistent store: Mongo when a URI is provided, otherwise mappings
	// live in memory and are lost on restart.
	var st store.Store
	if cfg.Store.MongoURI != "" {
		st, err = store.NewMongo(ctx, cfg.Store.MongoURI, cfg.Store.Database)
		if err != nil {
			slog.Error("mongo connect failed", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no IGBRIDGE_MONGO_URI set, mappings are in-memory only")
		st = store.NewMemory()
	}
	defer st.Close(context.Background())

	sess, err := instagram.LoadSession(cfg.Instagram.SessionFile)
	if err != nil {
		slog.Error("session load failed", "error", err)
		os.Exit(1)
	}
	if cfg.Instagram.RealtimeURL != "" {
		sess.WSURL = cfg.Instagram.RealtimeURL
	}

	igClient, err := instagram.NewClient(sess, cfg.Instagram.Proxy)
	if err != nil {
		slog.Error("instagram client setup failed", "error", err)
		os.Exit(1)
	}

	sender, err := telegram.NewSender(cfg.Telegram, cfg.Bridge.SendRPM, cfg.Bridge.MaxMediaBytes())
	if err != nil {
		slog.Error("telegram setup failed", "error", err)
		os.Exit(1)
	}

	mapper := bridge.NewMapper(st, sender, cfg.Bridge.VerifyTTL())
	if err := mapper.Load(ctx); err != nil {
		slog.Error("mapping load failed", "error", err)
		os.Exit(1)
	}

	filter := bridge.NewFilter(cfg.Bridge.FilterWords)
	if words, err := st.ListFilterWords(ctx); err != nil {
		slog.Warn("filter word load failed", "error", err)
	} else {
		for _, w := range words {
			filter.Add(w)
		}
	}

	rt := config.NewRuntime(cfg.Follow)
	normalizer := bridge.NewNormalizer(igClient, cfg.Bridge.DedupCapacity())
	relay := bridge.NewRelay(mapper, filter, sender, igClient)
	queue := bridge.NewAutoFollow(igClient, rt, cfg.Follow.Tick(), cfg.Follow.RequestDelay())

	normalizer.Normalized.Subscribe(func(msg bridge.Message) {
		if err := relay.Relay(ctx, msg); err != nil {
			slog.Error("relay failed", "item_id", msg.ID, "thread_id", msg.ThreadID, "error", err)
		}
	})

	registry := telegram.NewRegistry(
		&bridge.BridgeModule{Normalizer: normalizer, Mapper: mapper, Filter: filter, Words: st},
		&bridge.FollowModule{Client: igClient, Queue: queue, RT: rt},
	)

	channel := telegram.NewChannel(sender, registry)
	channel.OnTopicMessage = relay.RelayBack
	if err := channel.Start(ctx); err != nil {
		slog.Error("telegram polling start failed", "error", err)
		os.Exit(1)
	}
	defer channel.Stop()

	go queue.Run(ctx)
	go runRealtime(ctx, sess.Realtime(), normalizer, queue)

	// Flipping follow.* in the config file takes effect without restart.
	if stopWatch, err := config.Watch(cfgPath, rt); err != nil {
		slog.Warn("config watch unavailable", "error", err)
	} else {
		defer stopWatch()
	}

	slog.Info("igbridge started",
		"version", Version,
		"group_id", cfg.Telegram.GroupID,
		"mappings", mapper.Size(),
		"auto_follow", rt.AutoFollow(),
		"auto_requests", rt.AutoRequests(),
	)

	sig := <-sigCh
	slog.Info("graceful shutdown initiated", "signal", sig)
	cancel()
}

// missingConfig names what Enabled() found absent.
func missingConfig(cfg *config.Config) []string {
	var missing []string
	if cfg.Instagram.SessionFile == "" {
		missing = append(missing, "instagram.session_file")
	}
	if cfg.Telegram.Token == "" {
		missing = append(missing, "IGBRIDGE_TG_TOKEN")
	}
	if cfg.Telegram.GroupID == 0 {
		missing = append(missing, "telegram.group_id")
	}
	return missing
}

// runDisabled keeps the process alive without wiring any component and
// waits for a shutdown signal. `igbridge check` reports the details.
func runDisabled(cfg *config.Config, sigCh <-chan os.Signal) {
	slog.Warn("bridge disabled, nothing will be relayed",
		"missing", missingConfig(cfg))
	sig := <-sigCh
	slog.Info("shutdown", "signal", sig)
}

// runRealtime keeps one realtime connection alive, reconnecting with
// capped exponential backoff when the socket closes.
func runRealtime(ctx context.Context, sess *instagram.Session, normalizer *bridge.Normalizer, queue *bridge.AutoFollow) {
	const (
		initialBackoff = 2 * time.Second
		maxBackoff     = 2 * time.Minute
	)
	backoff := initialBackoff

	for ctx.Err() == nil {
		listener, err := instagram.NewListener(sess)
		if err != nil {
			slog.Error("realtime listener setup failed", "error", err)
			return
		}
		if err := listener.Start(ctx); err != nil {
			slog.Warn("realtime connect failed", "error", err, "retry_in", backoff)
			sleepOrDone(ctx, backoff)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		pumpEvents(ctx, listener, normalizer, queue)
		listener.Stop()

		if ctx.Err() == nil {
			slog.Warn("realtime connection lost, reconnecting", "retry_in", backoff)
			sleepOrDone(ctx, backoff)
		}
	}
}

func pumpEvents(ctx context.Context, listener *instagram.Listener, normalizer *bridge.Normalizer, queue *bridge.AutoFollow) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-listener.Messages():
			normalizer.HandleEvent(ctx, ev)
		case ev := <-listener.Followers():
			queue.HandleFollower(ev)
		case ev := <-listener.Requests():
			queue.HandleRequest(ctx, ev)
		case err := <-listener.Errors():
			slog.Warn("realtime event error", "error", err)
		case info := <-listener.Closed():
			slog.Info("realtime closed", "code", info.Code, "reason", info.Reason)
			return
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// checkCmd validates the local setup without starting the bridge.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate config, session file, and connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				fmt.Printf("✗ config: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("✓ config: %s\n", cfgPath)

			ok := true
			if cfg.Telegram.Token == "" {
				fmt.Println("✗ telegram: IGBRIDGE_TG_TOKEN not set")
				ok = false
			} else {
				fmt.Println("✓ telegram: token present")
			}
			if cfg.Telegram.GroupID == 0 {
				fmt.Println("✗ telegram: group_id not set")
				ok = false
			}

			if cfg.Instagram.SessionFile == "" {
				fmt.Println("✗ instagram: session_file not set")
				ok = false
			} else if sess, err := instagram.LoadSession(cfg.Instagram.SessionFile); err != nil {
				fmt.Printf("✗ instagram: %v\n", err)
				ok = false
			} else {
				fmt.Printf("✓ instagram: session for user %s\n", sess.UserID)
				if sess.WSURL == "" && cfg.Instagram.RealtimeURL == "" {
					fmt.Println("✗ instagram: no realtime URL in session or config")
					ok = false
				}
			}

			if cfg.Store.MongoURI == "" {
				fmt.Println("- store: in-memory (IGBRIDGE_MONGO_URI not set)")
			} else {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				st, err := store.NewMongo(ctx, cfg.Store.MongoURI, cfg.Store.Database)
				if err != nil {
					fmt.Printf("✗ store: %v\n", err)
					ok = false
				} else {
					st.Close(ctx)
					fmt.Println("✓ store: mongo reachable")
				}
			}

			if !ok {
				os.Exit(1)
			}
		},
	}
}
