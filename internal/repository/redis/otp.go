package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/repository"
)

const (
	defaultOTPPrefix = "otp"

	fieldCodeHash  = "code_hash"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
)

// OTPRepository persists temporary one-time codes in Redis. Only the hash of a
// code is stored; callers hash the candidate before comparing.
type OTPRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewOTPRepository constructs a new OTP repository with the provided Redis client and key prefix.
func NewOTPRepository(client *red.Client, keyPrefix string) *OTPRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultOTPPrefix
	}

	return &OTPRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Store persists a hashed OTP value with the supplied purpose/identifier and TTL.
func (r *OTPRepository) Store(ctx context.Context, purpose, identifier, codeHash string, ttl time.Duration) (*port.OTPRecord, error) {
	purpose = strings.TrimSpace(purpose)
	identifier = strings.TrimSpace(identifier)
	codeHash = strings.TrimSpace(codeHash)

	switch {
	case purpose == "":
		return nil, errors.New("purpose is required")
	case identifier == "":
		return nil, errors.New("identifier is required")
	case codeHash == "":
		return nil, errors.New("code hash is required")
	case ttl <= 0:
		return nil, errors.New("ttl must be positive")
	}

	now := r.now().UTC()
	expiresAt := now.Add(ttl)

	key := r.key(purpose, identifier)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldCodeHash:  codeHash,
		fieldCreatedAt: strconv.FormatInt(now.Unix(), 10),
		fieldExpiresAt: strconv.FormatInt(expiresAt.Unix(), 10),
		fieldAttempts:  "0",
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis store otp: %w", err)
	}

	return &port.OTPRecord{
		Purpose:    purpose,
		Identifier: identifier,
		Code:       codeHash,
		Attempts:   0,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}, nil
}

// Fetch retrieves the OTP record for the provided purpose and identifier.
func (r *OTPRepository) Fetch(ctx context.Context, purpose, identifier string) (*port.OTPRecord, error) {
	purpose = strings.TrimSpace(purpose)
	identifier = strings.TrimSpace(identifier)
	if purpose == "" || identifier == "" {
		return nil, errors.New("purpose and identifier are required")
	}

	key := r.key(purpose, identifier)

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall otp: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	codeHash := strings.TrimSpace(values[fieldCodeHash])
	if codeHash == "" {
		return nil, repository.ErrNotFound
	}

	createdAt, err := parseUnix(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	attempts := 0
	if raw := values[fieldAttempts]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			attempts = v
		}
	}

	return &port.OTPRecord{
		Purpose:    purpose,
		Identifier: identifier,
		Code:       codeHash,
		Attempts:   attempts,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, purpose, identifier string) (int, error) {
	key := r.key(strings.TrimSpace(purpose), strings.TrimSpace(identifier))

	attempts, err := r.client.HIncrBy(ctx, key, fieldAttempts, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby otp: %w", err)
	}

	return int(attempts), nil
}

// Delete removes the OTP record.
func (r *OTPRepository) Delete(ctx context.Context, purpose, identifier string) error {
	key := r.key(strings.TrimSpace(purpose), strings.TrimSpace(identifier))

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del otp: %w", err)
	}

	return nil
}

func (r *OTPRepository) key(purpose, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, purpose, identifier)
}

func parseUnix(raw string) (time.Time, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(value, 0).UTC(), nil
}

var _ port.OTPStore = (*OTPRepository)(nil)
