package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	keyLength        = 32
	saltLength       = 32
)

// CredentialCipher seals camera passwords before they are written to disk
type CredentialCipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// KeyFileCipher is an AES-256-GCM CredentialCipher. The key is derived with
// PBKDF2 from a salt kept in a key file and a passphrase bound to the host and
// user.
type KeyFileCipher struct {
	path string
	aead cipher.AEAD
}

// NewKeyFileCipher loads the salt at path, creating it on first use. An empty
// path selects DefaultKeyPath.
func NewKeyFileCipher(path string) (*KeyFileCipher, error) {
	if path == "" {
		p, err := DefaultKeyPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine security key path: %w", err)
		}
		path = p
	}

	salt, err := loadOrCreateSalt(path)
	if err != nil {
		return nil, err
	}
	key := pbkdf2.Key([]byte(hostPassphrase()), salt, pbkdf2Iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &KeyFileCipher{path: path, aead: aead}, nil
}

// DefaultKeyPath returns $XDG_DATA_HOME/ptzctl/security/master.key, falling back to
// ~/.local/share/ptzctl/security/master.key.
func DefaultKeyPath() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "ptzctl", "security", "master.key"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "ptzctl", "security", "master.key"), nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		salt, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode key file %s: %w", path, err)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate random salt: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create security directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(salt)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return salt, nil
}

func hostPassphrase() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	return "ptzctl-security-" + hostname + "-" + username
}

// Seal encrypts plaintext with a fresh nonce and returns nonce||ciphertext in base64
func (c *KeyFileCipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(c.aead.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

// Open reverses Seal
func (c *KeyFileCipher) Open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed credential: %w", err)
	}
	n := c.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("sealed credential too short")
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}

// Forget removes the key file. Credentials sealed with it can no longer be opened.
func (c *KeyFileCipher) Forget() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove key file: %w", err)
	}
	return nil
}
