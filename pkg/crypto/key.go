// Package crypto loads the key that encrypts the client state directory.
package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// KeySize is the length of a state key in bytes (AES-256).
const KeySize = 32

// KeySource names where a state key came from.
type KeySource string

const (
	KeySourceEnv       KeySource = "env"
	KeySourceFile      KeySource = "file"
	KeySourceGenerated KeySource = "generated"
)

// KeyOptions says where to find the state key.
type KeyOptions struct {
	// EnvVar holds a base64 key. When set and non-empty it wins over FilePath.
	EnvVar string
	// FilePath holds a base64 key. A missing file is created with a fresh
	// random key.
	FilePath string
}

// LoadOrCreateKey returns the state key and where it was read from.
func LoadOrCreateKey(opts KeyOptions) ([]byte, KeySource, error) {
	if opts.EnvVar != "" {
		if v := os.Getenv(opts.EnvVar); v != "" {
			key, err := decodeKey(v)
			if err != nil {
				return nil, "", fmt.Errorf("invalid key in %s: %w", opts.EnvVar, err)
			}
			return key, KeySourceEnv, nil
		}
	}

	if opts.FilePath == "" {
		return nil, "", errors.New("state key file path is required")
	}
	data, err := os.ReadFile(opts.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		key, err := createKeyFile(opts.FilePath)
		if err != nil {
			return nil, "", err
		}
		return key, KeySourceGenerated, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read state key: %w", err)
	}

	key, err := decodeKey(string(bytes.TrimSpace(data)))
	if err != nil {
		return nil, "", fmt.Errorf("invalid state key file %s: %w", opts.FilePath, err)
	}
	return key, KeySourceFile, nil
}

// createKeyFile writes a new random key readable only by the owner.
func createKeyFile(path string) ([]byte, error) {
	key, err := RandomBytes(KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write state key: %w", err)
	}
	return key, nil
}

func decodeKey(v string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: got %d, want %d", len(key), KeySize)
	}
	return key, nil
}
