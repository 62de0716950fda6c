// Package credentials implements an opaque, encrypted credential handle
// and a scoped holder: the plaintext password is materialized only for
// the duration of one deployment and zeroed on completion.
// Encryption-at-rest is machine-local, not a security boundary against a
// determined local attacker — it only keeps a profile JSON file from
// holding a plaintext password.
//
// Key derivation is HKDF-SHA256 from a machine-local master key, with
// AES-256-GCM sealing short password strings into a portable ciphertext
// handle.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hkdf"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

const keySize = 32 // AES-256

// Handle is an opaque, base64-encoded ciphertext stored in a profile file
// in place of a plaintext password. It is never logged or printed.
type Handle string

// Store derives a per-machine master key from a locally persisted random
// seed and uses it to seal/open credential Handles. It has no network
// dependency and no per-profile state.
type Store struct {
	masterKey []byte
}

// Open loads (or creates, on first run) the machine-local seed file under
// seedDir and derives the master key from it via HKDF-SHA256.
func Open(seedDir string) (*Store, error) {
	seedPath := filepath.Join(seedDir, ".credential-seed")
	seed, err := os.ReadFile(seedPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read credential seed: %w", err)
		}
		seed = make([]byte, keySize)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("generate credential seed: %w", err)
		}
		if err := os.MkdirAll(seedDir, 0700); err != nil {
			return nil, fmt.Errorf("create credential dir: %w", err)
		}
		tmp := seedPath + ".tmp"
		if err := os.WriteFile(tmp, seed, 0600); err != nil {
			return nil, fmt.Errorf("write credential seed: %w", err)
		}
		if err := os.Rename(tmp, seedPath); err != nil {
			return nil, fmt.Errorf("install credential seed: %w", err)
		}
	}

	key, err := hkdf.Key(sha256.New, seed, nil, "ftpsheep-credential-v1", keySize)
	if err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}
	return &Store{masterKey: key}, nil
}

// Seal encrypts plaintext into an opaque Handle suitable for storing in a
// profile JSON file.
func (s *Store) Seal(plaintext string) (Handle, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return Handle(base64.StdEncoding.EncodeToString(sealed)), nil
}

// Open decrypts a Handle back to a scoped Holder. The caller must call
// Zero() when done; Coordinator.Deploy does this in a defer once the
// deployment returns.
func (s *Store) Open(h Handle) (*Holder, error) {
	raw, err := base64.StdEncoding.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("decode credential handle: %w", err)
	}
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, fmt.Errorf("credential handle truncated")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential handle: %w", err)
	}
	return &Holder{password: plain}, nil
}

// Holder is a scoped, mutable view of one decrypted password. It exists
// only for the duration of one deployment and must be zeroed on exit from
// the Coordinator.
type Holder struct {
	password []byte
}

// Password returns the plaintext password. Callers must not retain the
// returned string beyond the deployment's lifetime.
func (h *Holder) Password() string { return string(h.password) }

// Zero overwrites the held plaintext in place. Go cannot guarantee a
// string's backing array is scrubbed once copied, so Holder stores the
// password as a byte slice specifically so Zero has something to clear.
// After Zero, Password returns an empty string.
func (h *Holder) Zero() {
	for i := range h.password {
		h.password[i] = 0
	}
	h.password = h.password[:0]
}
