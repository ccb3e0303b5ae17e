package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; server and call
// settings require a restart because they are fixed at connect time.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SendChanged is true if any send pacing parameter changed. New values
	// apply from the next simulated send onward.
	SendChanged bool
	NewSend     SendConfig

	// ClipsChanged is true if the clip playlist changed.
	ClipsChanged bool
}

// Any reports whether the diff carries at least one hot-reloadable change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.SendChanged || d.ClipsChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Send != new.Send {
		d.SendChanged = true
		d.NewSend = new.Send
	}

	if len(old.Clips) != len(new.Clips) {
		d.ClipsChanged = true
	} else {
		for i := range old.Clips {
			if old.Clips[i] != new.Clips[i] {
				d.ClipsChanged = true
				break
			}
		}
	}

	return d
}
