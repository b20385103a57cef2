package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	saltLength   = 16
	hashLength   = 32
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	MinPasswordLength = 8
	MaxPasswordLength = 128
)

const argon2DigestPrefix = "$argon2id$"

var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	errInvalidDigest = errors.New("invalid password digest")
)

// PasswordHasher turns plaintext passwords into self-describing digests and
// checks candidates against them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches digest. A mismatch or an
	// unreadable digest is false, never an error.
	Verify(password, digest string) bool
	// NeedsUpgrade reports whether digest was produced by an older scheme
	// and should be replaced after the next successful Verify.
	NeedsUpgrade(digest string) bool
}

type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{time: argonTime, memory: argonMemory, threads: argonThreads}
}

func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func ValidatePassword(password string) error {
	if !utf8.ValidString(password) {
		return errors.New("password must be valid UTF-8 text")
	}
	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if length > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters long", MaxPasswordLength)
	}
	return nil
}

// Hash returns a PHC-formatted argon2id digest with the salt embedded:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2Hasher) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", ErrEmptyPassword
	}
	salt, err := GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, hashLength)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Verify(password, digest string) bool {
	if len(password) == 0 || len(digest) == 0 {
		return false
	}
	if isBcryptDigest(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	params, salt, expected, err := decodeArgon2Digest(digest)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(candidate, expected) == 1
}

func (h *Argon2Hasher) NeedsUpgrade(digest string) bool {
	if !strings.HasPrefix(digest, argon2DigestPrefix) {
		return true
	}
	params, _, _, err := decodeArgon2Digest(digest)
	if err != nil {
		return true
	}
	return params.time != h.time || params.memory != h.memory || params.threads != h.threads
}

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
}

func decodeArgon2Digest(digest string) (argon2Params, []byte, []byte, error) {
	var params argon2Params
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, errInvalidDigest
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, errInvalidDigest
	}
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &threads); err != nil {
		return params, nil, nil, errInvalidDigest
	}
	if threads == 0 || threads > 255 || params.time == 0 || params.memory == 0 {
		return params, nil, nil, errInvalidDigest
	}
	params.threads = uint8(threads)
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, errInvalidDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1024 {
		return params, nil, nil, errInvalidDigest
	}
	return params, salt, key, nil
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}
