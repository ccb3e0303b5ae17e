package config_test

import (
	"testing"
	"time"

	"github.com/voximind/agentcall/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			URL:         "wss://example.livekit.cloud",
			AccessToken: "tok",
			LogLevel:    config.LogInfo,
		},
		Call: config.CallConfig{Simulation: true},
		Send: config.SendConfig{
			SettleDelay:   300 * time.Millisecond,
			ChunkDuration: 20 * time.Millisecond,
		},
		Clips: []config.ClipConfig{
			{Path: "hello.wav", Pause: time.Second},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	new := baseConfig()
	d := config.Diff(old, new)
	if d.LogLevelChanged || d.SendChanged || d.ClipsChanged {
		t.Errorf("diff of identical configs = %+v", d)
	}
	if d.Any() {
		t.Error("Any() = true for identical configs")
	}
}

func TestDiff_ConnectTimeChangeOnly(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	new := baseConfig()
	new.Server.AccessToken = "rotated"
	new.Call.AgentIdentity = "assistant"

	if d := config.Diff(old, new); d.Any() {
		t.Errorf("Any() = true for connect-time-only changes, diff = %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("log level change not detected")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("new log level = %q, want debug", d.NewLogLevel)
	}
	if d.SendChanged || d.ClipsChanged {
		t.Errorf("unrelated changes flagged: %+v", d)
	}
}

func TestDiff_SendPacing(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	new := baseConfig()
	new.Send.SettleDelay = 250 * time.Millisecond

	d := config.Diff(old, new)
	if !d.SendChanged {
		t.Fatal("send pacing change not detected")
	}
	if d.NewSend.SettleDelay != 250*time.Millisecond {
		t.Errorf("new settle delay = %v", d.NewSend.SettleDelay)
	}
}

func TestDiff_Clips(t *testing.T) {
	t.Parallel()

	t.Run("path change", func(t *testing.T) {
		old := baseConfig()
		new := baseConfig()
		new.Clips[0].Path = "other.wav"
		if d := config.Diff(old, new); !d.ClipsChanged {
			t.Error("clip path change not detected")
		}
	})

	t.Run("added clip", func(t *testing.T) {
		old := baseConfig()
		new := baseConfig()
		new.Clips = append(new.Clips, config.ClipConfig{Path: "extra.wav"})
		if d := config.Diff(old, new); !d.ClipsChanged {
			t.Error("added clip not detected")
		}
	})
}
