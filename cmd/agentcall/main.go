// Command agentcall joins a voice call with a conversational agent and, in
// simulation mode, plays a configured list of WAV clips into the call as if
// they came from a live microphone.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voximind/agentcall/internal/config"
	"github.com/voximind/agentcall/internal/health"
	"github.com/voximind/agentcall/internal/observe"
	"github.com/voximind/agentcall/pkg/audio"
	"github.com/voximind/agentcall/pkg/client"
	"github.com/voximind/agentcall/pkg/transport/livekit"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	envPath := flag.String("env", "", "optional .env file with credential overrides")
	flag.Parse()

	// ── Environment ────────────────────────────────────────────────────────────
	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			fmt.Fprintf(os.Stderr, "agentcall: load %q: %v\n", *envPath, err)
			return 1
		}
	} else {
		// A .env next to the binary is picked up when present.
		_ = godotenv.Load()
	}

	// ── Configuration ──────────────────────────────────────────────────────────
	// The watcher keeps the config live so log level and send pacing can be
	// adjusted mid-call by editing the file.
	logLevel := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(d config.ConfigDiff, _ *config.Config) {
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.SendChanged || d.ClipsChanged {
			slog.Info("send pacing or clips changed; applied on next call")
		}
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "agentcall: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "agentcall: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()

	cfg := watcher.Current()
	applyEnvOverrides(cfg)

	// ── Logger ─────────────────────────────────────────────────────────────────
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("agentcall starting",
		"config", *configPath,
		"server", cfg.Server.URL,
		"simulation", cfg.Call.Simulation,
		"clips", len(cfg.Clips),
	)

	// ── Signal context ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ────────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "agentcall"})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Client ─────────────────────────────────────────────────────────────────
	c := client.NewClient(livekit.NewConnector(),
		client.WithSendTiming(cfg.Send.SettleDelay, cfg.Send.ChunkDuration, cfg.Send.TailMargin),
	)
	registerEventLogging(c)

	callEnded := make(chan struct{}, 1)
	c.On(client.EventCallEnded, func(client.Event) {
		select {
		case callEnded <- struct{}{}:
		default:
		}
	})

	// ── Run ────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	var metricsSrv *http.Server
	if cfg.Metrics.ListenAddr != "" {
		metricsSrv = metricsServer(cfg.Metrics.ListenAddr, c)
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.Metrics.ListenAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer stop()
		return runCall(gctx, c, watcher, callEnded)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runCall starts the call, plays the configured clips, then waits for the
// agent to hang up or for a shutdown signal.
func runCall(ctx context.Context, c *client.Client, watcher *config.Watcher, callEnded <-chan struct{}) error {
	cfg := watcher.Current()

	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}

	err = c.StartCall(ctx, client.CallConfig{
		AccessToken:         token,
		ServerURL:           cfg.Server.URL,
		SampleRate:          cfg.Call.SampleRate,
		CaptureDeviceID:     cfg.Call.CaptureDevice,
		PlaybackDeviceID:    cfg.Call.PlaybackDevice,
		EmitRawAudioSamples: cfg.Call.EmitRawAudio,
		SimulationMode:      cfg.Call.Simulation,
		AgentIdentity:       cfg.Call.AgentIdentity,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := c.StopCall(); err != nil {
			slog.Warn("stop call error", "err", err)
		}
	}()

	rate := cfg.Call.SampleRate
	if rate == 0 {
		rate = client.DefaultSampleRate
	}

	// Clips come from the watcher so an edited playlist applies to calls
	// started after the change.
	for i, clipCfg := range watcher.Current().Clips {
		if err := sendClip(ctx, c, clipCfg, rate); err != nil {
			return fmt.Errorf("clip %d (%s): %w", i+1, clipCfg.Path, err)
		}
		if clipCfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-callEnded:
				return nil
			case <-time.After(clipCfg.Pause):
			}
		}
	}

	if len(watcher.Current().Clips) == 0 {
		slog.Info("no clips configured; staying on the call until interrupted")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-callEnded:
		return nil
	}
}

func sendClip(ctx context.Context, c *client.Client, clipCfg config.ClipConfig, rate int) error {
	clip, err := audio.LoadWAV(clipCfg.Path)
	if err != nil {
		return err
	}
	clip = audio.Conform(clip, rate)

	slog.Info("sending clip",
		"path", clipCfg.Path,
		"duration", clip.Duration().Round(time.Millisecond),
	)
	return c.SendAudioBuffer(ctx, clip)
}

// resolveToken returns the configured access token, minting one from the API
// key pair when no pre-issued token is set.
func resolveToken(cfg *config.Config) (string, error) {
	if cfg.Server.AccessToken != "" {
		return cfg.Server.AccessToken, nil
	}
	return livekit.NewToken(livekit.TokenParams{
		APIKey:    cfg.Server.APIKey,
		APISecret: cfg.Server.APISecret,
		Room:      cfg.Server.Room,
		Identity:  cfg.Server.Identity,
	})
}

// applyEnvOverrides lets credentials come from the environment instead of the
// config file, so tokens never need to be committed alongside it.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("AGENTCALL_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("AGENTCALL_ACCESS_TOKEN"); v != "" {
		cfg.Server.AccessToken = v
	}
	if v := os.Getenv("AGENTCALL_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("AGENTCALL_API_SECRET"); v != "" {
		cfg.Server.APISecret = v
	}
}

// registerEventLogging logs every call notification so a demo run shows the
// full lifecycle on stderr.
func registerEventLogging(c *client.Client) {
	c.On(client.EventCallStarted, func(client.Event) { slog.Info("call started") })
	c.On(client.EventCallReady, func(client.Event) { slog.Info("call ready; agent audio subscribed") })
	c.On(client.EventCallEnded, func(client.Event) { slog.Info("call ended") })
	c.On(client.EventAgentStartTalking, func(client.Event) { slog.Info("agent started talking") })
	c.On(client.EventAgentStopTalking, func(client.Event) { slog.Info("agent stopped talking") })
	c.On(client.EventError, func(e client.Event) { slog.Error("call error", "err", e.Data) })
	c.On(client.EventNodeTransition, func(e client.Event) {
		slog.Debug("node transition", "payload", rawJSON(e.Data))
	})
	c.On(client.EventMetadata, func(e client.Event) {
		slog.Debug("metadata", "payload", rawJSON(e.Data))
	})
	c.On(client.EventUpdate, func(e client.Event) {
		slog.Debug("transcript update", "payload", rawJSON(e.Data))
	})
}

func rawJSON(data any) string {
	raw, ok := data.(json.RawMessage)
	if !ok {
		return fmt.Sprintf("%v", data)
	}
	return string(raw)
}

// metricsServer serves Prometheus metrics plus liveness and readiness probes.
// Readiness reflects whether a call is currently connected.
func metricsServer(addr string, c *client.Client) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	h := health.New(health.Checker{
		Name: "call",
		Check: func(context.Context) error {
			if !c.Connected() {
				return errors.New("no active call")
			}
			return nil
		},
	})
	h.Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
