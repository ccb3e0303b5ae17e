package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settle delays outside this range either leave the agent's speech detection
// cold or add noticeable latency to every send.
const (
	settleDelayMin = 150 * time.Millisecond
	settleDelayMax = 400 * time.Millisecond
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	}
	if cfg.Server.AccessToken == "" {
		switch {
		case cfg.Server.APIKey == "" || cfg.Server.APISecret == "":
			errs = append(errs, errors.New("server: either access_token or an api_key/api_secret pair is required"))
		case cfg.Server.Room == "":
			errs = append(errs, errors.New("server.room is required when minting a token from an API key pair"))
		case cfg.Server.Identity == "":
			errs = append(errs, errors.New("server.identity is required when minting a token from an API key pair"))
		}
	} else if cfg.Server.APIKey != "" || cfg.Server.APISecret != "" {
		slog.Warn("server.access_token is set; ignoring api_key/api_secret")
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Call
	if cfg.Call.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("call.sample_rate %d must not be negative", cfg.Call.SampleRate))
	}
	if !cfg.Call.Simulation && len(cfg.Clips) > 0 {
		errs = append(errs, errors.New("clips are configured but call.simulation is false; simulated sends need simulation mode"))
	}

	// Send pacing
	if cfg.Send.SettleDelay < 0 || cfg.Send.ChunkDuration < 0 || cfg.Send.TailMargin < 0 {
		errs = append(errs, errors.New("send: settle_delay, chunk_duration and tail_margin must not be negative"))
	}
	if d := cfg.Send.SettleDelay; d != 0 && (d < settleDelayMin || d > settleDelayMax) {
		slog.Warn("send.settle_delay is outside the recommended range",
			"settle_delay", d,
			"min", settleDelayMin,
			"max", settleDelayMax,
		)
	}

	// Clips
	for i, clip := range cfg.Clips {
		if clip.Path == "" {
			errs = append(errs, fmt.Errorf("clips[%d].path is required", i))
		}
		if clip.Pause < 0 {
			errs = append(errs, fmt.Errorf("clips[%d].pause must not be negative", i))
		}
	}

	return errors.Join(errs...)
}
