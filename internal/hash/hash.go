// Package hash implements Argon2id hashing for passwords and refresh
// tokens. Hashes are stored in the standard encoded form:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	memoryKiB  = 64 * 1024
	iterations = 3
	saltLength = 16
	keyLength  = 32
)

// parallelism is clamped to [1..4] to keep resource usage predictable
// in containers.
func parallelism() uint8 {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}
	return uint8(threads)
}

func Hash(plain string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	par := parallelism()
	key := argon2.IDKey([]byte(plain), salt, iterations, memoryKiB, par, keyLength)

	b64 := base64.RawStdEncoding
	enc := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memoryKiB, iterations, par,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	)
	return enc, nil
}

// Verify reports whether plain matches the encoded hash. Malformed input
// counts as a mismatch.
func Verify(encoded, plain string) bool {
	params, salt, expected, ok := decode(encoded)
	if !ok {
		return false
	}

	key := argon2.IDKey([]byte(plain), salt, params.iterations, params.memoryKiB, params.parallelism, uint32(len(expected)))

	return subtle.ConstantTimeCompare(key, expected) == 1
}

type params struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8
}

func decode(encoded string) (params, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params{}, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params{}, nil, nil, false
	}

	var p params
	var par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memoryKiB, &p.iterations, &par); err != nil {
		return params{}, nil, nil, false
	}
	// Refuse attacker-controlled hash strings with pathological cost
	// settings.
	if p.memoryKiB > 2*memoryKiB || p.iterations > 2*iterations || par > 8 {
		return params{}, nil, nil, false
	}
	p.parallelism = uint8(par)

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) < 8 || len(salt) > 64 {
		return params{}, nil, nil, false
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) < 16 || len(key) > 128 {
		return params{}, nil, nil, false
	}

	return p, salt, key, true
}
