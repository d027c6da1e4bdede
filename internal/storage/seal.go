package storage

import (
	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/pkg/crypto/adaptive"
)

// sealer encrypts item values. A nil sealer passes values through.
type sealer struct {
	cipher adaptive.Cipher
}

func newSealer(c adaptive.Cipher) *sealer {
	if c == nil {
		return nil
	}
	return &sealer{cipher: c}
}

func (s *sealer) seal(category, key string, plain []byte) ([]byte, error) {
	if s == nil {
		out := make([]byte, len(plain))
		copy(out, plain)
		return out, nil
	}
	sealed, err := s.cipher.Encrypt(plain, encodeKey(category, key))
	if err != nil {
		return nil, domain.ErrStorageError.WithDetailsf("seal %s/%s", category, key).WithCause(err)
	}
	return sealed, nil
}

func (s *sealer) open(category, key string, sealed []byte) ([]byte, error) {
	if s == nil {
		return sealed, nil
	}
	plain, err := s.cipher.Decrypt(sealed, encodeKey(category, key))
	if err != nil {
		return nil, domain.ErrDecryptionFailed.WithDetailsf("item %s/%s", category, key).WithCause(err)
	}
	return plain, nil
}
