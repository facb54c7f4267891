package account

import (
	"context"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SignupRequest represents the payload for user registration
type SignupRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	Phone          string `json:"phone" validate:"omitempty,e164ish"`
	Profession     string `json:"profession"`
	HomeTown       string `json:"homeTown"`
	ConnectedTo    string `json:"connectedToTemple"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	NumberOfRounds int    `json:"numberOfRounds" validate:"gte=0"`
}

// SignupResult tells the client where the verification code went.
type SignupResult struct {
	UserID  primitive.ObjectID `json:"userId"`
	Next    string             `json:"next"`
	Target  models.Channel     `json:"target"`
	Message string             `json:"message"`
}

const nextVerifyOTP = "verify-otp"

var (
	ErrAccountExists          = apperr.Conflict("An account with this email already exists. Please log in.")
	ErrPhoneAlreadyRegistered = apperr.Conflict("This phone number is already registered")
)

// Signup registers a new account or re-sends the code for one still awaiting
// verification. Active accounts are never touched.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	req.Phone = utils.NormalizePhone(req.Phone)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	byEmail, err := lookup(s.accounts.GetByEmail(ctx, req.Email))
	if err != nil {
		return nil, errors.Wrap(err, "finding user by email")
	}
	if byEmail != nil {
		if !byEmail.IsPending() {
			return nil, ErrAccountExists
		}
		return s.resume(ctx, byEmail, req, models.ChannelEmail, req.Email)
	}

	byPhone, err := lookup(s.accounts.GetByPhone(ctx, req.Phone))
	if err != nil {
		return nil, errors.Wrap(err, "finding user by phone")
	}
	if byPhone != nil {
		if !byPhone.IsPending() {
			return nil, ErrPhoneAlreadyRegistered
		}
		if byPhone.Email == "" {
			byPhone.Email = req.Email
		}
		return s.resume(ctx, byPhone, req, models.ChannelPhone, req.Phone)
	}

	now := s.Now().UTC()
	user := &models.User{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Status:         models.StatusPending,
		Role:           models.RoleGuest,
		IsActive:       false,
		Source:         "signup",
		Profession:     req.Profession,
		HomeTown:       req.HomeTown,
		ConnectedTo:    req.ConnectedTo,
		Gender:         req.Gender,
		Address:        req.Address,
		NumberOfRounds: req.NumberOfRounds,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	if err := s.accounts.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// lost a race with a concurrent signup for the same email or phone
			return nil, ErrAccountExists
		}
		return nil, errors.Wrap(err, "creating user")
	}

	channel, target := models.ChannelEmail, user.Email
	if user.Phone != "" {
		channel, target = models.ChannelPhone, user.Phone
	}
	return s.sendSignupCode(ctx, user, channel, target)
}

// resume sends a pending placeholder a new code and then stores the freshly
// submitted password on it. A rejected issue leaves the account untouched.
// The account stays pending until verified.
func (s *Service) resume(ctx context.Context, user *models.User, req SignupRequest, channel models.Channel, target string) (*SignupResult, error) {
	if user.Name == "" {
		user.Name = req.Name
	}
	res, err := s.sendSignupCode(ctx, user, channel, target)
	if err != nil {
		return nil, err
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	user.Status = models.StatusPending
	user.UpdatedAt = s.Now().UTC()
	if err := s.accounts.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "updating pending user")
	}
	return res, nil
}

func (s *Service) sendSignupCode(ctx context.Context, user *models.User, channel models.Channel, target string) (*SignupResult, error) {
	if _, err := s.codes.Issue(ctx, target, channel, models.PurposeSignup, user.Name); err != nil {
		return nil, err
	}
	return &SignupResult{
		UserID:  user.ID,
		Next:    nextVerifyOTP,
		Target:  channel,
		Message: "Verification code sent. Please verify to activate your account.",
	}, nil
}

// VerifyResult carries the activated account and its session token.
type VerifyResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// VerifySignup consumes a signup code and activates the account it was sent to.
func (s *Service) VerifySignup(ctx context.Context, target, code string, channel models.Channel) (*VerifyResult, error) {
	if !channel.Valid() {
		return nil, apperr.Validation("channel must be email or phone")
	}
	target = normalizeTarget(target, channel)
	if target == "" || code == "" {
		return nil, apperr.Validation("target and otp are required")
	}

	if _, err := s.codes.Verify(ctx, target, code, channel, models.PurposeSignup); err != nil {
		return nil, err
	}

	user, err := lookup(s.findByTarget(ctx, target, channel))
	if err != nil {
		return nil, errors.Wrap(err, "finding user to activate")
	}
	if user == nil {
		return nil, apperr.NotFound("no account found for %s", target)
	}

	user.Status = models.StatusActive
	user.IsActive = true
	user.UpdatedAt = s.Now().UTC()
	if err := s.accounts.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "activating user")
	}

	for _, hook := range s.onActivated {
		if err := hook(ctx, user); err != nil {
			return nil, errors.Wrap(err, "running activation hook")
		}
	}

	token, err := s.tokens.GenerateToken(user.ID.Hex(), string(user.Role), user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "issuing session token")
	}
	return &VerifyResult{User: user, Token: token}, nil
}
