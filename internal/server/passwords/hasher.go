// Package passwords turns plaintext passwords into salted, non-reversible
// digests and checks candidates against them.
package passwords

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	AlgorithmHMACSHA512 = "hmac-sha512"
	AlgorithmArgon2ID   = "argon2id"
)

// Hasher computes and verifies password digests.
type Hasher interface {
	Hash(password string) (hash, salt []byte, err error)
	Verify(password string, hash, salt []byte) bool
}

// NewHasher returns the hasher registered under name.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case AlgorithmHMACSHA512, "":
		return HMACHasher{}, nil
	case AlgorithmArgon2ID:
		return Argon2Hasher{}, nil
	default:
		return nil, fmt.Errorf("unknown password hash algorithm %q", name)
	}
}

// HMACHasher keys HMAC-SHA512 with a fresh random salt per password.
// The salt has the SHA-512 block size, the digest is 64 bytes.
type HMACHasher struct{}

const hmacSaltSize = sha512.BlockSize

func (HMACHasher) Hash(password string) ([]byte, []byte, error) {
	salt := make([]byte, hmacSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	return hmacDigest(password, salt), salt, nil
}

func (HMACHasher) Verify(password string, hash, salt []byte) bool {
	return subtle.ConstantTimeCompare(hmacDigest(password, salt), hash) == 1
}

func hmacDigest(password string, key []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

// Argon2Hasher derives a 64-byte argon2id key with a 16-byte salt.
type Argon2Hasher struct{}

const (
	argon2SaltSize = 16
	argon2KeySize  = 64
	argon2Time     = 1
	argon2Memory   = 64 * 1024
	argon2Threads  = 4
)

func (Argon2Hasher) Hash(password string) ([]byte, []byte, error) {
	salt := make([]byte, argon2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	return argon2Key(password, salt), salt, nil
}

func (Argon2Hasher) Verify(password string, hash, salt []byte) bool {
	return subtle.ConstantTimeCompare(argon2Key(password, salt), hash) == 1
}

func argon2Key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeySize)
}
