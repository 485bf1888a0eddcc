package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = "control-token"

// LoadOrCreateToken reads the control API token from dir, or generates and
// persists a new 256-bit hex-encoded token if the file is missing or empty.
func LoadOrCreateToken(dir string) (string, error) {
	path := filepath.Join(dir, tokenFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}

	return RotateToken(dir)
}

// RotateToken generates a new token, replacing the existing one.
// Clients holding the old token are rejected from then on.
func RotateToken(dir string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	if err := writeToken(dir, token); err != nil {
		return "", err
	}

	return token, nil
}

// Equal compares a presented token with the expected one in constant time.
func Equal(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func writeToken(dir, token string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tokenFileName), []byte(token), 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
