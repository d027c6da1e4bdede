package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

var (
	ErrKeySize         = errors.New("adaptive: invalid key size")
	ErrUnknownCipher   = errors.New("adaptive: unknown cipher type")
	ErrCiphertextShort = errors.New("adaptive: ciphertext too short")
)

// Cipher provides authenticated encryption. Implementations are safe for
// concurrent use.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt encrypts plaintext bound to additionalData.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt reverses Encrypt. It fails if either input was altered.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the bytes Encrypt adds beyond the plaintext.
	Overhead() int
}

// New creates a cipher for key using the preferred algorithm for this
// platform.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, Preferred())
}

// NewWithType creates a cipher of the specified type.
//
// AES-GCM accepts 16, 24 or 32 byte keys; ChaCha20-Poly1305 needs 32.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	var (
		aead cipher.AEAD
		err  error
	)
	switch cipherType {
	case CipherAESGCM:
		switch len(key) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: aes-gcm needs 16, 24 or 32 bytes, got %d", ErrKeySize, len(key))
		}
		block, berr := aes.NewCipher(key)
		if berr != nil {
			return nil, berr
		}
		aead, err = cipher.NewGCM(block)
	case CipherChaCha20:
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("%w: chacha20-poly1305 needs %d bytes, got %d", ErrKeySize, chacha20poly1305.KeySize, len(key))
		}
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, cipherType)
	}
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: cipherType, aead: aead}, nil
}

// ParseCipherType parses a configured algorithm name. "" and "auto" select
// Preferred.
func ParseCipherType(s string) (CipherType, error) {
	switch t := CipherType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", "auto":
		return Preferred(), nil
	case CipherAESGCM, CipherChaCha20:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCipher, s)
	}
}

// Preferred returns the algorithm New uses on this platform.
func Preferred() CipherType {
	// crypto/aes uses AES-NI on amd64 and the ARMv8 crypto extensions on
	// arm64. Elsewhere ChaCha20 is faster in software.
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType { return c.typ }

func (c *aeadCipher) NonceSize() int { return c.aead.NonceSize() }

func (c *aeadCipher) Overhead() int { return c.aead.NonceSize() + c.aead.Overhead() }

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	// Nonce is prepended to the ciphertext.
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n+c.aead.Overhead() {
		return nil, ErrCiphertextShort
	}
	return c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}
