package account

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errBadCredentials = apperr.Unauthenticated("Invalid email or password")

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login authenticates by email or phone. Only active accounts with a
// password can log in.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.Validation("Email and Password are required")
	}

	channel := models.ChannelPhone
	if strings.Contains(identifier, "@") {
		channel = models.ChannelEmail
	}
	user, err := lookup(s.findByTarget(ctx, normalizeTarget(identifier, channel), channel))
	if err != nil {
		return nil, errors.Wrap(err, "finding user for login")
	}
	if user == nil || user.Password == "" {
		return nil, errBadCredentials
	}
	if err := user.CheckPassword(password); err != nil {
		return nil, errBadCredentials
	}
	if !user.CanLogin() {
		if user.IsPending() {
			return nil, apperr.Forbidden("Please verify your account before logging in")
		}
		return nil, apperr.Forbidden("This account has been deactivated")
	}

	token, err := s.tokens.GenerateToken(user.ID.Hex(), string(user.Role), user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "issuing session token")
	}
	return &LoginResult{User: user, Token: token}, nil
}

// SendResetOTP emails a password reset code.
func (s *Service) SendResetOTP(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return apperr.Validation("email is required")
	}

	user, err := lookup(s.accounts.GetByEmail(ctx, email))
	if err != nil {
		return errors.Wrap(err, "finding user by email")
	}
	if user == nil {
		return apperr.NotFound("no account found for this email")
	}
	if user.IsPending() {
		return apperr.Forbidden("Please complete signup verification first")
	}

	_, err = s.codes.Issue(ctx, email, models.ChannelEmail, models.PurposeReset, user.Name)
	return err
}

// VerifyResetOTP consumes a reset code and returns a token for ResetPassword.
func (s *Service) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || code == "" {
		return "", apperr.Validation("email and otp are required")
	}

	if _, err := s.codes.Verify(ctx, email, code, models.ChannelEmail, models.PurposeReset); err != nil {
		return "", err
	}

	user, err := lookup(s.accounts.GetByEmail(ctx, email))
	if err != nil {
		return "", errors.Wrap(err, "finding user by email")
	}
	if user == nil {
		return "", apperr.NotFound("no account found for this email")
	}

	token, err := s.tokens.GenerateResetToken(user.ID.Hex(), user.Email, user.Password)
	if err != nil {
		return "", errors.Wrap(err, "issuing reset token")
	}
	return token, nil
}

// ResetPassword sets a new password. A reset token stops working once the
// password it was issued against has changed.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return apperr.Validation("reset token is required")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	claims, err := s.tokens.ValidateToken(resetToken, utils.PurposeReset)
	if err != nil {
		return apperr.Unauthenticated("invalid or expired reset token")
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return apperr.Unauthenticated("invalid or expired reset token")
	}

	user, err := lookup(s.accounts.GetByID(ctx, id))
	if err != nil {
		return errors.Wrap(err, "finding user by id")
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}
	if utils.Fingerprint(user.Password) != claims.PasswordHash {
		return apperr.Unauthenticated("reset token has already been used")
	}

	if err := user.SetPassword(newPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	user.UpdatedAt = s.Now().UTC()
	return errors.Wrap(s.accounts.Update(ctx, user), "saving new password")
}
