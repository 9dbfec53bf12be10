package otp

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errNoCode      = errors.New("otp: no code stored")
	errCodeChanged = errors.New("otp: code was replaced")
)

// Store keeps one pending code per email and counts failed guesses.
type Store interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Peek(ctx context.Context, email string) (string, error)
	// ConsumeIf atomically removes the code and its attempt counter, but
	// only while the stored code still equals code.
	ConsumeIf(ctx context.Context, email, code string) error
	IncrAttempts(ctx context.Context, email string, ttl time.Duration) (int64, error)
	Clear(ctx context.Context, email string) error
}

// RedisStore keeps codes under otp:<email> and attempt counters under
// otp:attempts:<email>, both expiring with the code.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func codeKey(email string) string     { return "otp:" + email }
func attemptsKey(email string) string { return "otp:attempts:" + email }

func (s *RedisStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, codeKey(email), code, ttl)
		p.Del(ctx, attemptsKey(email))
		return nil
	})
	return err
}

func (s *RedisStore) Peek(ctx context.Context, email string) (string, error) {
	code, err := s.client.Get(ctx, codeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", errNoCode
	}
	return code, err
}

// consumeScript deletes the code and attempts keys when the code matches.
// It returns 1 on success, 0 on mismatch and -1 when no code is stored.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then return -1 end
if v ~= ARGV[1] then return 0 end
redis.call("DEL", KEYS[1], KEYS[2])
return 1
`)

func (s *RedisStore) ConsumeIf(ctx context.Context, email, code string) error {
	n, err := consumeScript.Run(ctx, s.client, []string{codeKey(email), attemptsKey(email)}, code).Int()
	if err != nil {
		return err
	}
	switch n {
	case -1:
		return errNoCode
	case 0:
		return errCodeChanged
	}
	return nil
}

func (s *RedisStore) IncrAttempts(ctx context.Context, email string, ttl time.Duration) (int64, error) {
	key := attemptsKey(email)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		s.client.Expire(ctx, key, ttl)
	}
	return n, nil
}

func (s *RedisStore) Clear(ctx context.Context, email string) error {
	return s.client.Del(ctx, codeKey(email), attemptsKey(email)).Err()
}
