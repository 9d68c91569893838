// Package export serializes a session as the session.json artifact.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"selenex/internal/models"
)

const FileName = "session.json"

var ErrEmptySession = errors.New("No session data found!")

// Marshal renders session as a 2-space indented JSON array.
func Marshal(session []models.ActionRecord) ([]byte, error) {
	if len(session) == 0 {
		return nil, ErrEmptySession
	}
	return json.MarshalIndent(session, "", "  ")
}

func Write(w io.Writer, session []models.ActionRecord) error {
	data, err := Marshal(session)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile writes session.json into dir and returns its path. An empty session
// produces no file.
func WriteFile(dir string, session []models.ActionRecord) (string, error) {
	data, err := Marshal(session)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Load reads a session.json artifact back.
func Load(path string) ([]models.ActionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var session []models.ActionRecord
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return session, nil
}
