package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Variant = "argon2id"
	argon2Version = "v=19"

	saltLength         = 16
	keyLength   uint32 = 32
)

var errInvalidHashFormat = errors.New("argon2: invalid encoded hash format")

// Argon2Params defines tunable parameters for Argon2id password hashing.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

var (
	activeParams = Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
	}
	paramsMu sync.RWMutex
)

// ConfigureArgon2 sets the active hashing parameters after validation.
func ConfigureArgon2(params Argon2Params) error {
	if params.Memory < 8*1024 {
		return fmt.Errorf("argon2: memory must be at least 8192")
	}
	if params.Iterations == 0 {
		return fmt.Errorf("argon2: iterations must be greater than zero")
	}
	if params.Parallelism == 0 {
		return fmt.Errorf("argon2: parallelism must be greater than zero")
	}

	paramsMu.Lock()
	activeParams = params
	paramsMu.Unlock()
	return nil
}

func currentParams() Argon2Params {
	paramsMu.RLock()
	defer paramsMu.RUnlock()
	return activeParams
}

// HashPassword generates an Argon2id hash for the provided password. The
// returned value embeds the parameters, salt, and hash in a portable format:
// argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
func HashPassword(password string) (string, error) {
	params := currentParams()

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, keyLength)

	encoded := strings.Join([]string{
		argon2Variant,
		argon2Version,
		fmt.Sprintf("m=%d,t=%d,p=%d", params.Memory, params.Iterations, params.Parallelism),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	}, "$")

	return encoded, nil
}

// VerifyPassword compares the provided password against the stored Argon2id
// hash using a constant-time comparison.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	params, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return Argon2Params{}, nil, nil, errInvalidHashFormat
	}

	if parts[0] != argon2Variant {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: unexpected variant %q", parts[0])
	}
	if parts[1] != argon2Version {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: unsupported version %q", parts[1])
	}

	params, err := parseParams(parts[2])
	if err != nil {
		return Argon2Params{}, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("argon2: decode hash: %w", err)
	}

	return params, salt, hash, nil
}

func parseParams(segment string) (Argon2Params, error) {
	entries := strings.Split(segment, ",")
	if len(entries) != 3 {
		return Argon2Params{}, errInvalidHashFormat
	}

	var params Argon2Params
	for _, entry := range entries {
		kv := strings.Split(entry, "=")
		if len(kv) != 2 {
			return Argon2Params{}, errInvalidHashFormat
		}

		value, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return Argon2Params{}, fmt.Errorf("argon2: parse %s: %w", kv[0], err)
		}

		switch kv[0] {
		case "m":
			params.Memory = uint32(value)
		case "t":
			params.Iterations = uint32(value)
		case "p":
			params.Parallelism = uint8(value)
		default:
			return Argon2Params{}, errInvalidHashFormat
		}
	}

	return params, nil
}
