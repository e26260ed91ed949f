// Package password hashes and verifies account passwords with argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	dErrors "quizforge/pkg/domain-errors"
)

// OWASP-recommended argon2id parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonSaltLen = 16
	argonKeyLen  = 32
)

// Hash produces a PHC-encoded argon2id hash of the password:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate salt")
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// Verify checks the password against an encoded hash. Returns (true, nil) on
// match, (false, nil) on mismatch, error only for malformed hashes.
func Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, dErrors.New(dErrors.CodeInternal, "invalid password hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "invalid password hash version")
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "invalid password hash parameters")
	}
	if threads > 255 {
		return false, dErrors.New(dErrors.CodeInternal, "invalid password hash parallelism")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "invalid password hash salt")
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "invalid password hash digest")
	}
	if len(expected) == 0 || len(expected) > 1<<10 {
		return false, dErrors.New(dErrors.CodeInternal, "invalid password hash length")
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
