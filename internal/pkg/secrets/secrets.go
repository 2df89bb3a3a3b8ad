// Package secrets hashes API tokens into argon2id PHC strings so the config
// never has to hold the plain token.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	Time      = 2
	MemoryMB  = 16
	Threads   = 1
	KeyLen    = 32
	SaltBytes = 16
)

var (
	ErrEmptyToken        = errors.New("empty token")
	ErrUnsupportedFormat = errors.New("unsupported hash format")
	ErrMalformedHash     = errors.New("malformed phc string")
)

type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// HashToken returns "$argon2id$v=19$m=...,t=...,p=...$salt$key".
func HashToken(token, pepper string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(token+pepper), salt, Time, MemoryMB*1024, Threads, KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, MemoryMB*1024, Time, Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func parse(s string) (*phc, error) {
	if !strings.HasPrefix(s, "$argon2id$") {
		return nil, ErrUnsupportedFormat
	}
	parts := strings.Split(s, "$")
	if len(parts) != 6 {
		return nil, ErrMalformedHash
	}

	var (
		m, t uint32
		p    uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return &phc{memory: m, time: t, threads: p, salt: salt, key: key}, nil
}

// VerifyToken reports whether token+pepper matches the stored PHC hash.
func VerifyToken(token, pepper, hash string) (bool, error) {
	h, err := parse(hash)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(token+pepper), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// Validate checks that hash is a well-formed argon2id PHC string.
func Validate(hash string) error {
	_, err := parse(hash)
	return err
}
