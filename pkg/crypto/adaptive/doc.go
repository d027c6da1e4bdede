// Package adaptive provides the AEAD ciphers used to seal checkpoint items
// at rest, and the key material helpers that feed them.
//
// New picks AES-GCM on platforms where Go's crypto/aes is hardware
// accelerated and ChaCha20-Poly1305 elsewhere. Ciphertexts carry their
// nonce as a prefix.
//
// Keys come from one of three places: a raw key (hex or base64, see
// DecodeKey), a passphrase stretched with Argon2id (DeriveKey), or a
// master key split into purpose-specific subkeys with HKDF (DeriveSubkey).
package adaptive
