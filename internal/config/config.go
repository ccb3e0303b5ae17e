// Package config provides the configuration schema, loader, and file watcher
// for the agentcall command-line client.
package config

import "time"

// LogLevel controls log verbosity for the agentcall CLI.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the agentcall CLI.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Call    CallConfig    `yaml:"call"`
	Send    SendConfig    `yaml:"send"`
	Metrics MetricsConfig `yaml:"metrics"`
	Clips   []ClipConfig  `yaml:"clips"`
}

// ServerConfig holds the media server endpoint, credentials, and logging
// settings.
type ServerConfig struct {
	// URL is the media server endpoint (e.g., "wss://myproject.livekit.cloud").
	URL string `yaml:"url"`

	// AccessToken is a pre-issued room-join token. When set, the API key
	// pair below is ignored.
	AccessToken string `yaml:"access_token"`

	// APIKey and APISecret mint a token locally when AccessToken is empty.
	// Intended for development setups; production clients receive a token
	// from their backend.
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`

	// Room is the room name to join when minting a token locally.
	Room string `yaml:"room"`

	// Identity is the participant identity to join with when minting a
	// token locally.
	Identity string `yaml:"identity"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// CallConfig holds per-call settings.
type CallConfig struct {
	// AgentIdentity is the participant identity of the remote agent.
	// Defaults to "server".
	AgentIdentity string `yaml:"agent_identity"`

	// SampleRate is the capture rate in Hz for published audio.
	// Defaults to 24000.
	SampleRate int `yaml:"sample_rate"`

	// Simulation disables live microphone capture and enables sending
	// buffered clips.
	Simulation bool `yaml:"simulation"`

	// EmitRawAudio enables continuous raw-frame notifications from the
	// agent's track.
	EmitRawAudio bool `yaml:"emit_raw_audio"`

	// CaptureDevice and PlaybackDevice select audio hardware on transports
	// that support it. Ignored in simulation mode.
	CaptureDevice  string `yaml:"capture_device"`
	PlaybackDevice string `yaml:"playback_device"`
}

// SendConfig tunes the pacing of simulated sends. Zero values use the
// built-in defaults.
type SendConfig struct {
	// SettleDelay is the pause between publishing a fresh track and the
	// first chunk, giving the agent's speech detection time to initialize
	// on the new track.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// ChunkDuration is the nominal playback length of one chunk.
	ChunkDuration time.Duration `yaml:"chunk_duration"`

	// TailMargin is the extra wait after the clip finishes playing before
	// the send resolves.
	TailMargin time.Duration `yaml:"tail_margin"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// ListenAddr is the TCP address for the /metrics endpoint
	// (e.g., ":9464"). Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// ClipConfig describes one audio clip the CLI sends during a simulated call.
type ClipConfig struct {
	// Path is the WAV file to send (16-bit PCM, mono or stereo).
	Path string `yaml:"path"`

	// Pause is how long to wait after this clip resolves before sending
	// the next one, leaving room for the agent's reply.
	Pause time.Duration `yaml:"pause"`
}
