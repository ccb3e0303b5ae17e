package client

import "errors"

// DefaultSampleRate is the capture rate used when [CallConfig.SampleRate]
// is zero. All simulated audio handed to [Client.SendAudioBuffer] must
// already be at the configured rate.
const DefaultSampleRate = 24000

// defaultAgentIdentity is the participant identity the remote agent joins
// with. Tracks, disconnects and control messages from this identity drive the
// call lifecycle.
const defaultAgentIdentity = "server"

// CallConfig configures one call started via [Client.StartCall].
type CallConfig struct {
	// AccessToken is the credential for the media session. Required.
	AccessToken string

	// ServerURL overrides the media server endpoint baked into the connector.
	// Optional; adapters may resolve the endpoint from the token instead.
	ServerURL string

	// SampleRate is the capture rate in Hz for audio published on this call.
	// Defaults to [DefaultSampleRate].
	SampleRate int

	// CaptureDeviceID and PlaybackDeviceID select audio hardware on
	// transports that capture or render locally. Ignored in simulation mode.
	CaptureDeviceID  string
	PlaybackDeviceID string

	// EmitRawAudioSamples enables continuous [EventAudio] notifications
	// carrying the agent's decoded audio frames.
	EmitRawAudioSamples bool

	// SimulationMode disables live microphone capture and enables
	// [Client.SendAudioBuffer]. Calls started without it reject simulated
	// sends.
	SimulationMode bool

	// AgentIdentity is the participant identity of the remote agent.
	// Defaults to "server".
	AgentIdentity string
}

// withDefaults returns a copy with zero-valued optional fields filled in.
func (c CallConfig) withDefaults() CallConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.AgentIdentity == "" {
		c.AgentIdentity = defaultAgentIdentity
	}
	return c
}

// Validate checks the configuration for missing or contradictory values.
func (c CallConfig) Validate() error {
	var errs []error
	if c.AccessToken == "" {
		errs = append(errs, errors.New("accessToken is required"))
	}
	if c.SampleRate < 0 {
		errs = append(errs, errors.New("sampleRate must be positive"))
	}
	return errors.Join(errs...)
}
