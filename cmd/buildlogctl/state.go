package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// cliState is persisted between invocations.
type cliState struct {
	UserID  string `yaml:"user_id"`
	Email   string `yaml:"email"`
	Name    string `yaml:"name,omitempty"`
	Session string `yaml:"session"`
}

func (s cliState) loggedIn() bool {
	return strings.TrimSpace(s.UserID) != "" && strings.TrimSpace(s.Session) != ""
}

func statePath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("BUILDLOG_CLI_STATE")); override != "" {
		return override, nil
	}
	base, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, ".config", "buildlog", "cli.yaml"), nil
}

func loadState(path string) (cliState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliState{}, nil
		}
		return cliState{}, err
	}
	var state cliState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return cliState{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return state, nil
}

func saveState(path string, state cliState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func clearState(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// requireLogin loads the saved state and fails when nobody is signed in.
func requireLogin() (cliState, error) {
	path, err := statePath()
	if err != nil {
		return cliState{}, err
	}
	state, err := loadState(path)
	if err != nil {
		return cliState{}, err
	}
	if !state.loggedIn() {
		return cliState{}, errors.New("please login first using 'buildlogctl login'")
	}
	return state, nil
}
