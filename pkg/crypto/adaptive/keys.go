package adaptive

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinKeyLength is the minimum accepted raw or master key length.
	MinKeyLength = 16

	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the salt length NewSalt produces and DeriveKey expects.
	SaltLength = 16

	// KeyLength is the length of keys DeriveKey produces.
	KeyLength = 32
)

var (
	ErrKeyTooShort       = errors.New("adaptive: key too short (minimum 16 bytes)")
	ErrPassphraseTooWeak = errors.New("adaptive: passphrase too weak (minimum 8 characters)")
	ErrBadSalt           = errors.New("adaptive: salt must be 16 bytes")
)

// KeyParams tunes Argon2id.
type KeyParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultKeyParams returns the Argon2id parameters used when none are
// configured.
func DefaultKeyParams() KeyParams {
	return KeyParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}
}

// DeriveKey stretches passphrase into a KeyLength key with Argon2id. The
// same passphrase, salt and params always yield the same key, so the salt
// must be stored next to the data it protects.
func DeriveKey(passphrase, salt []byte, p KeyParams) ([]byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooWeak
	}
	if len(salt) != SaltLength {
		return nil, ErrBadSalt
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		p = DefaultKeyParams()
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, KeyLength), nil
}

// NewSalt returns a random salt for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("adaptive: new salt: %w", err)
	}
	return salt, nil
}

// DeriveSubkey derives a purpose-bound subkey from masterKey using HKDF-SHA256.
func DeriveSubkey(masterKey []byte, info string, length int) ([]byte, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("adaptive: derive subkey: %w", err)
	}
	return key, nil
}

// GenerateKey returns a random key of the given length.
func GenerateKey(length int) ([]byte, error) {
	if length < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("adaptive: generate key: %w", err)
	}
	return key, nil
}

// DecodeKey accepts a key written as hex or standard base64.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if key, err := hex.DecodeString(s); err == nil {
		if len(key) < MinKeyLength {
			return nil, ErrKeyTooShort
		}
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("adaptive: key is neither hex nor base64")
	}
	if len(key) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	return key, nil
}

// Zero overwrites key in place.
func Zero(key []byte) {
	clear(key)
}
