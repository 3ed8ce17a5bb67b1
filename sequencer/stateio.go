package sequencer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/timini/wiggleroom-sub000/debug"
)

// StateDir returns the directory holding the persisted engine state.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "euclogic"), nil
}

// StatePath returns the full path to state.json.
func StatePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

// SaveState writes the runner's persisted state to disk.
func SaveState(r *Runner) error {
	dir, err := StateDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := StatePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(r.Serialize(), "", "  ")
	if err != nil {
		return err
	}

	debug.Log("state", "save %s", path)
	return os.WriteFile(path, data, 0644)
}

// LoadState restores persisted state into the runner. A missing file is
// not an error; a malformed one loads whatever fields survive decoding,
// since Deserialize defaults anything missing.
func LoadState(r *Runner) error {
	path, err := StatePath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var st PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		debug.Log("state", "load %s: %v, keeping defaults", path, err)
		return nil
	}

	r.Deserialize(st)
	debug.Log("state", "load %s", path)
	return nil
}
