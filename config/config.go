package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ClockSource selects what drives the master scheduler.
type ClockSource string

const (
	ClockInternal ClockSource = "internal"
	ClockMIDI     ClockSource = "midi"
)

// MIDIConfig defines the MIDI input/output wiring.
type MIDIConfig struct {
	OutPort string  `json:"outPort,omitempty"`
	InPort  string  `json:"inPort,omitempty"`
	Channel uint8   `json:"channel,omitempty"` // 1-16
	Notes   []uint8 `json:"notes,omitempty"`   // per-lane note numbers
}

// UIConfig stores UI preferences.
type UIConfig struct {
	LastTempo float64 `json:"lastTempo,omitempty"`
	LastSwing float64 `json:"lastSwing,omitempty"`
}

// Config is the main configuration structure.
type Config struct {
	Channels    int         `json:"channels,omitempty"`
	Seed        int64       `json:"seed,omitempty"`
	ClockSource ClockSource `json:"clockSource,omitempty"`
	MIDI        MIDIConfig  `json:"midi,omitempty"`
	UI          UIConfig    `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Channels:    4,
		Seed:        1,
		ClockSource: ClockInternal,
		MIDI: MIDIConfig{
			Channel: 10,
			Notes:   []uint8{36, 38, 42, 46, 39, 43, 49, 51},
		},
		UI: UIConfig{
			LastTempo: 120,
			LastSwing: 50,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "euclogic"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()

	return cfg, nil
}

// normalize clamps loaded values into usable ranges so a hand-edited
// config never produces a broken session.
func (c *Config) normalize() {
	if c.Channels < 1 {
		c.Channels = 1
	}
	if c.Channels > 16 {
		c.Channels = 16
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		c.MIDI.Channel = 10
	}
	if c.ClockSource != ClockMIDI {
		c.ClockSource = ClockInternal
	}
	if c.UI.LastTempo < 20 || c.UI.LastTempo > 300 {
		c.UI.LastTempo = 120
	}
	if c.UI.LastSwing < 50 || c.UI.LastSwing > 75 {
		c.UI.LastSwing = 50
	}
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LaneNote returns the MIDI note assigned to a lane, falling back to a
// GM drum note when the lane has no explicit assignment.
func (c *Config) LaneNote(lane int) uint8 {
	if lane >= 0 && lane < len(c.MIDI.Notes) {
		return c.MIDI.Notes[lane]
	}
	return uint8(36 + lane)
}
