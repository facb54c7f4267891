// Package otp issues and verifies six digit one-time codes for signup and
// password reset.
package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/notify"
	"github.com/raushankrgupta/temple-connect/store"
	"go.uber.org/zap"
)

// ErrInvalidOrExpiredCode is returned for every failed verification.
var ErrInvalidOrExpiredCode = apperr.Validation("invalid or expired code")

// Notifiers resolves the provider for a channel.
type Notifiers interface {
	GetNotifier(channel models.Channel) (notify.Notifier, error)
}

// Observer receives issuance and verification outcomes, e.g. for metrics.
type Observer interface {
	Issued(channel models.Channel, purpose models.Purpose)
	Verified(result string)
}

type nopObserver struct{}

func (nopObserver) Issued(models.Channel, models.Purpose) {}
func (nopObserver) Verified(string)                       {}

type Config struct {
	TTL         time.Duration
	MaxAttempts int
}

type Service struct {
	otps      store.OTPs
	notifiers Notifiers
	limiter   Limiter
	ttl       time.Duration
	maxTries  int
	observer  Observer

	Now     func() time.Time
	NewCode func() string
}

func NewService(otps store.OTPs, notifiers Notifiers, limiter Limiter, cfg Config) *Service {
	if limiter == nil {
		limiter = NoLimit{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &Service{
		otps:      otps,
		notifiers: notifiers,
		limiter:   limiter,
		ttl:       cfg.TTL,
		maxTries:  cfg.MaxAttempts,
		observer:  nopObserver{},
		Now:       time.Now,
		NewCode:   randomCode,
	}
}

func (s *Service) SetObserver(o Observer) {
	if o != nil {
		s.observer = o
	}
}

// Issue stores a fresh code for target and sends it over channel. name is
// used to address the recipient. A stored code survives a delivery failure,
// which is reported as an apperr delivery error.
func (s *Service) Issue(ctx context.Context, target string, channel models.Channel, purpose models.Purpose, name string) (*models.OTP, error) {
	if target == "" {
		return nil, apperr.Validation("target is required")
	}
	if !channel.Valid() {
		return nil, apperr.Validation("unsupported channel: %s", channel)
	}

	// 1. Rate-limit
	if err := s.limiter.CanRequest(ctx, fmt.Sprintf("%s:%s:%s", purpose, channel, target)); err != nil {
		return nil, err
	}

	notifier, err := s.notifiers.GetNotifier(channel)
	if err != nil {
		return nil, apperr.Delivery(err, "cannot deliver codes over %s", channel)
	}

	// 2. Create and store
	now := s.Now().UTC()
	code := &models.OTP{
		Target:    target,
		Code:      s.NewCode(),
		Channel:   channel,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.otps.Create(ctx, code); err != nil {
		return nil, errors.Wrap(err, "storing otp")
	}

	// 3. Send via the channel's provider
	if err := notifier.Send(ctx, s.message(code, name)); err != nil {
		zap.S().Warnw("otp delivery failed", "channel", channel, "purpose", purpose, "error", err)
		return code, apperr.Delivery(err, "could not send verification code, please retry")
	}

	s.observer.Issued(channel, purpose)
	return code, nil
}

func (s *Service) message(code *models.OTP, name string) notify.Message {
	minutes := int(s.ttl.Minutes())
	purpose := formatPurpose(string(code.Purpose))
	return notify.Message{
		To:      code.Target,
		Name:    name,
		Subject: fmt.Sprintf("Your %s verification code", purpose),
		Text:    fmt.Sprintf("Your OTP code for %s is %s. It is valid for %d minutes.", purpose, code.Code, minutes),
		HTML: fmt.Sprintf("<p>Your OTP code for %s is <strong>%s</strong>.</p><p>It is valid for %d minutes.</p>",
			purpose, code.Code, minutes),
		Code: code.Code,
	}
}

// Verify checks submitted against the newest live code for the key and
// consumes it on a match.
func (s *Service) Verify(ctx context.Context, target, submitted string, channel models.Channel, purpose models.Purpose) (*models.OTP, error) {
	now := s.Now().UTC()

	code, err := s.otps.Latest(ctx, target, channel, purpose, now)
	if errors.Is(err, store.ErrNotFound) {
		s.observer.Verified("not_found")
		return nil, ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding otp")
	}

	if code.ConsumedAt != nil {
		s.observer.Verified("consumed")
		return nil, ErrInvalidOrExpiredCode
	}
	if !code.Usable(now, s.maxTries) {
		s.observer.Verified("exhausted")
		return nil, ErrInvalidOrExpiredCode
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(submitted)) != 1 {
		if err := s.otps.IncrementAttempts(ctx, code.ID); err != nil {
			return nil, errors.Wrap(err, "recording otp attempt")
		}
		s.observer.Verified("mismatch")
		return nil, ErrInvalidOrExpiredCode
	}

	if err := s.otps.Consume(ctx, code.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// a concurrent verify consumed it first
			s.observer.Verified("mismatch")
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, errors.Wrap(err, "consuming otp")
	}
	code.ConsumedAt = &now

	s.observer.Verified("success")
	return code, nil
}
