package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/luhive/luhive-backend/pkg/config"
)

var (
	ErrInvalidHash         = errors.New("invalid argon2id hash")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	ErrEmptyPassword       = errors.New("password cannot be empty")
)

// Params are the argon2id cost settings encoded into every hash.
type Params struct {
	Memory     uint32
	Iterations uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// Hasher hashes new passwords with the configured params and verifies
// hashes produced with any params.
type Hasher struct {
	params Params
	dummy  string
}

func NewHasher(cfg config.PasswordConfig) *Hasher {
	h := &Hasher{params: Params{
		Memory:     uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
		Iterations: uint32(bounded(cfg.ArgonTime, 1, 10)),
		Threads:    uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLength: uint32(bounded(cfg.ArgonSaltLen, 8, 64)),
		KeyLength:  uint32(bounded(cfg.ArgonKeyLen, 16, 64)),
	}}
	// Only fails if the system RNG does; verifications against an empty
	// dummy still burn no time, which is acceptable in that state.
	h.dummy, _ = h.Hash("luhive-dummy-password")
	return h
}

func (h *Hasher) Params() Params {
	return h.params
}

// Hash returns the PHC string for password:
// $argon2id$v=19$m=<kb>,t=<iterations>,p=<threads>$<salt>$<key>
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := derive(password, salt, h.params)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. rehash is set on a match
// whose stored params differ from the hasher's current ones.
func (h *Hasher) Verify(password, encoded string) (match, rehash bool, err error) {
	params, salt, key, err := decode(encoded)
	if err != nil {
		return false, false, err
	}
	if subtle.ConstantTimeCompare(key, derive(password, salt, params)) != 1 {
		return false, false, nil
	}
	return true, params != h.params, nil
}

// Burn runs one verification against a throwaway hash so lookups for unknown
// accounts cost about as much as real ones.
func (h *Hasher) Burn(password string) {
	if h.dummy != "" {
		_, _, _ = h.Verify(password, h.dummy)
	}
}

var b64 = base64.RawStdEncoding

func derive(password string, salt []byte, p Params) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Threads, p.KeyLength)
}

func decode(encoded string) (Params, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return Params{}, nil, nil, ErrIncompatibleVersion
	}

	var p Params
	if n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Threads); err != nil || n != 3 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Threads == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}

	salt, err := b64.Strict().DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.Strict().DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
