package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBundleStateNotFound is returned when state.json is missing.
var ErrBundleStateNotFound = errors.New("model bundle state not found")

// BundleState tracks the active and previous model bundle versions under a
// base directory laid out as <base>/<version>/model.onnx.
type BundleState struct {
	CurrentVersion  string `json:"current_version"`
	PreviousVersion string `json:"previous_version,omitempty"`
}

func stateFilePath(baseDir string) string {
	return filepath.Join(baseDir, "state.json")
}

// LoadBundleState reads <base>/state.json.
func LoadBundleState(baseDir string) (BundleState, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return BundleState{}, errors.New("baseDir is empty")
	}

	data, err := os.ReadFile(stateFilePath(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return BundleState{}, ErrBundleStateNotFound
		}
		return BundleState{}, fmt.Errorf("read bundle state: %w", err)
	}

	var state BundleState
	if err := json.Unmarshal(data, &state); err != nil {
		return BundleState{}, fmt.Errorf("decode bundle state: %w", err)
	}
	return state, nil
}

// SaveBundleState writes <base>/state.json atomically.
func SaveBundleState(baseDir string, state BundleState) error {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return errors.New("baseDir is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("create bundle base dir: %w", err)
	}

	state.CurrentVersion = strings.TrimSpace(state.CurrentVersion)
	state.PreviousVersion = strings.TrimSpace(state.PreviousVersion)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle state: %w", err)
	}

	tmpFile, err := os.CreateTemp(baseDir, "state.json.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), stateFilePath(baseDir)); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// ResolveBundleDir returns the directory holding the active model and its
// version. A versioned layout is used when state.json names an existing
// version; otherwise baseDir itself is treated as an unversioned bundle.
func ResolveBundleDir(baseDir string) (dir, version string, err error) {
	state, err := LoadBundleState(baseDir)
	switch {
	case err == nil:
		current := strings.TrimSpace(state.CurrentVersion)
		if current == "" {
			return baseDir, "", nil
		}
		versioned := filepath.Join(baseDir, current)
		if _, statErr := os.Stat(versioned); statErr != nil {
			return "", "", fmt.Errorf("bundle version %s listed in state but missing: %w", current, statErr)
		}
		return versioned, current, nil
	case errors.Is(err, ErrBundleStateNotFound):
		return baseDir, "", nil
	default:
		return "", "", err
	}
}

// Activate makes version the current bundle, remembering the prior one.
func Activate(baseDir, version string) (BundleState, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return BundleState{}, errors.New("version is empty")
	}
	if _, err := os.Stat(filepath.Join(baseDir, version, DefaultModelFile)); err != nil {
		return BundleState{}, fmt.Errorf("bundle version %s has no %s: %w", version, DefaultModelFile, err)
	}

	state, err := LoadBundleState(baseDir)
	if err != nil && !errors.Is(err, ErrBundleStateNotFound) {
		return BundleState{}, err
	}
	if state.CurrentVersion == version {
		return state, nil
	}
	state.PreviousVersion = state.CurrentVersion
	state.CurrentVersion = version
	if err := SaveBundleState(baseDir, state); err != nil {
		return BundleState{}, err
	}
	return state, nil
}

// Rollback swaps the current and previous bundle versions.
func Rollback(baseDir string) (BundleState, error) {
	state, err := LoadBundleState(baseDir)
	if err != nil {
		return BundleState{}, err
	}
	if strings.TrimSpace(state.PreviousVersion) == "" {
		return BundleState{}, errors.New("no previous bundle version to roll back to")
	}
	state.CurrentVersion, state.PreviousVersion = state.PreviousVersion, state.CurrentVersion
	if err := SaveBundleState(baseDir, state); err != nil {
		return BundleState{}, err
	}
	return state, nil
}
