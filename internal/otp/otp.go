// Package otp issues and checks one-time email codes.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"fixmycity/backend/internal/config"
	"fixmycity/backend/internal/localization"
	"fixmycity/backend/internal/logging"

	"golang.org/x/time/rate"
)

var (
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrExpired         = errors.New("verification code expired or not requested")
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new code")
	ErrRateLimited     = errors.New("too many code requests, try again later")
	ErrMissingEmail    = errors.New("email is required")
)

// Service issues codes, mails them and verifies them.
type Service struct {
	store       Store
	mailer      Mailer
	loc         *localization.Localizer
	ttl         time.Duration
	maxAttempts int64

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
	every     rate.Limit
	burst     int
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterIdle is how long an unused per-email limiter is kept. It exceeds
// the time a limiter needs to refill, so an evicted one behaves exactly
// like a fresh one.
const limiterIdle = 10 * time.Minute

func NewService(store Store, mailer Mailer, loc *localization.Localizer) *Service {
	return &Service{
		store:       store,
		mailer:      mailer,
		loc:         loc,
		ttl:         config.OTPTTL,
		maxAttempts: config.OTPMaxAttempts,
		limiters:    make(map[string]*limiterEntry),
		every:       rate.Every(time.Minute / config.OTPRequestsPerMin),
		burst:       config.OTPRequestsPerMin,
		now:         time.Now,
	}
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// limiter returns the request limiter for email. Idle limiters are swept
// at most once per limiterIdle.
func (s *Service) limiter(email string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= limiterIdle {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) >= limiterIdle {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.limiters[email]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.every, s.burst)}
		s.limiters[email] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Request stores a fresh code for email and mails it in lang. A new request
// replaces any pending code.
func (s *Service) Request(ctx context.Context, email, lang string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrMissingEmail
	}
	if !s.limiter(email).AllowN(s.now(), 1) {
		return ErrRateLimited
	}

	code, err := GenerateCode(config.OTPLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.store.Save(ctx, email, code, s.ttl); err != nil {
		return fmt.Errorf("save code: %w", err)
	}

	subject := s.loc.GetString(lang, "otp_subject")
	body := s.loc.Format(lang, "otp_body", map[string]string{
		"code":    code,
		"minutes": strconv.Itoa(int(s.ttl / time.Minute)),
	})
	if err := s.mailer.Send(ctx, email, subject, body); err != nil {
		_ = s.store.Clear(ctx, email)
		return fmt.Errorf("send code: %w", err)
	}

	logging.Ctx(ctx).Info().Str("email", email).Msg("otp issued")
	return nil
}

// Verify checks code for email. A correct code is consumed; repeated wrong
// guesses invalidate the pending code.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrMissingEmail
	}

	stored, err := s.store.Peek(ctx, email)
	if errors.Is(err, errNoCode) {
		return ErrExpired
	}
	if err != nil {
		return fmt.Errorf("read code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		n, err := s.store.IncrAttempts(ctx, email, s.ttl)
		if err != nil {
			return fmt.Errorf("count attempt: %w", err)
		}
		if n >= s.maxAttempts {
			_ = s.store.Clear(ctx, email)
			return ErrTooManyAttempts
		}
		return ErrInvalidCode
	}

	// A code replaced since Peek is left for its own verification.
	err = s.store.ConsumeIf(ctx, email, stored)
	if errors.Is(err, errNoCode) || errors.Is(err, errCodeChanged) {
		return ErrExpired
	}
	if err != nil {
		return fmt.Errorf("consume code: %w", err)
	}
	return nil
}

// GenerateCode returns a zero-padded random decimal code of n digits.
func GenerateCode(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
