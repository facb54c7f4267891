// Package account runs the signup state machine and the login, password
// reset and profile flows that sit on top of it.
package account

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/utils"
)

// Codes issues and verifies one-time codes.
type Codes interface {
	Issue(ctx context.Context, target string, channel models.Channel, purpose models.Purpose, name string) (*models.OTP, error)
	Verify(ctx context.Context, target, code string, channel models.Channel, purpose models.Purpose) (*models.OTP, error)
}

// TokenIssuer signs session and reset tokens.
type TokenIssuer interface {
	GenerateToken(userID, role, email string) (string, error)
	GenerateResetToken(userID, email, passwordHash string) (string, error)
	ValidateToken(token, purpose string) (*utils.Claims, error)
}

// ActivationHook runs once for every account activated by a signup code.
type ActivationHook func(ctx context.Context, u *models.User) error

type Service struct {
	accounts    store.Accounts
	codes       Codes
	tokens      TokenIssuer
	onActivated []ActivationHook

	Now func() time.Time
}

func NewService(accounts store.Accounts, codes Codes, tokens TokenIssuer) *Service {
	return &Service{accounts: accounts, codes: codes, tokens: tokens, Now: time.Now}
}

// OnActivated registers a hook called after an account becomes active.
func (s *Service) OnActivated(hook ActivationHook) {
	s.onActivated = append(s.onActivated, hook)
}

const minPasswordLength = 6

func checkPassword(pwd string) error {
	if len(pwd) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// lookup maps a store miss to nil so callers can branch on presence.
func lookup(u *models.User, err error) (*models.User, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (s *Service) findByTarget(ctx context.Context, target string, channel models.Channel) (*models.User, error) {
	if channel == models.ChannelPhone {
		return s.accounts.GetByPhone(ctx, target)
	}
	return s.accounts.GetByEmail(ctx, target)
}

func normalizeTarget(target string, channel models.Channel) string {
	if channel == models.ChannelPhone {
		return utils.NormalizePhone(target)
	}
	return utils.NormalizeEmail(target)
}
