package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shift-tracker/backend/internal/utils"
)

var (
	ErrCodeNotFound    = errors.New("код не найден или истек")
	ErrTooManyAttempts = errors.New("слишком много попыток, запроси новый код")
)

// Commands is the subset of redis commands the store needs. *redis.Client satisfies it.
type Commands interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Store keeps one web login code per user in redis. Wrong guesses are counted per user and the
// code is burned once the limit is reached.
type Store struct {
	rdb          Commands
	expiration   time.Duration
	failureLimit int64
}

// NewStore builds a store. A failureLimit below one is treated as one.
func NewStore(rdb Commands, expiration time.Duration, failureLimit int) *Store {
	return &Store{rdb: rdb, expiration: expiration, failureLimit: int64(max(failureLimit, 1))}
}

func loginCodeKey(userID int64) string {
	return fmt.Sprintf("otp_%d_login_code", userID)
}

func loginAttemptsKey(userID int64) string {
	return fmt.Sprintf("otp_%d_login_attempts", userID)
}

// IssueLoginCode replaces the user's code with a fresh six digit one and clears the failure counter.
func (s *Store) IssueLoginCode(ctx context.Context, userID int64) (string, error) {
	code, err := utils.GenerateRandomOTP()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, loginCodeKey(userID), code, s.expiration).Err(); err != nil {
		return "", err
	}
	if err := s.rdb.Del(ctx, loginAttemptsKey(userID)).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// ConsumeLoginCode checks code against the one issued to userID and deletes it on success.
func (s *Store) ConsumeLoginCode(ctx context.Context, userID int64, code string) error {
	attempts, err := s.rdb.Incr(ctx, loginAttemptsKey(userID)).Result()
	if err != nil {
		return err
	}
	if attempts == 1 {
		if err := s.rdb.Expire(ctx, loginAttemptsKey(userID), s.expiration).Err(); err != nil {
			return err
		}
	}
	if attempts > s.failureLimit {
		return ErrTooManyAttempts
	}

	stored, err := s.rdb.Get(ctx, loginCodeKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeNotFound
	}
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		if attempts < s.failureLimit {
			return ErrCodeNotFound
		}
		if err := s.rdb.Del(ctx, loginCodeKey(userID)).Err(); err != nil {
			return err
		}
		return ErrTooManyAttempts
	}

	// a concurrent request may have consumed the same code
	deleted, err := s.rdb.Del(ctx, loginCodeKey(userID)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrCodeNotFound
	}
	return s.rdb.Del(ctx, loginAttemptsKey(userID)).Err()
}

// TTL is how long an issued code stays valid.
func (s *Store) TTL() time.Duration {
	return s.expiration
}
