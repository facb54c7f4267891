package roles

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.uber.org/zap"
)

// Result describes what a role change did.
type Result struct {
	User       *models.User `json:"user"`
	Created    bool         `json:"created"`
	Merged     bool         `json:"merged"`
	Retargeted int64        `json:"retargetedFollowUps"`
}

type Service struct {
	accounts  store.Accounts
	outreach  store.Outreach
	followUps store.FollowUps

	Now func() time.Time
}

func NewService(accounts store.Accounts, outreach store.Outreach, followUps store.FollowUps) *Service {
	return &Service{accounts: accounts, outreach: outreach, followUps: followUps, Now: time.Now}
}

func errDenied(actor models.Actor, current, desired models.Role) error {
	return apperr.Forbidden("a %s cannot change a %s to %s", actor.Role, current, desired)
}

// ChangeRole applies req on behalf of actor.
func (s *Service) ChangeRole(ctx context.Context, actor models.Actor, req Request) (*Result, error) {
	switch r := req.(type) {
	case ByUser:
		return s.changeUser(ctx, actor, r)
	case ByOutreach:
		return s.promoteOutreach(ctx, actor, r)
	default:
		return nil, apperr.Validation("unsupported role change request")
	}
}

func (s *Service) changeUser(ctx context.Context, actor models.Actor, req ByUser) (*Result, error) {
	user, err := s.accounts.GetByID(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding user")
	}

	if !CanChange(actor.Role, user.Role, req.NewRole) {
		return nil, errDenied(actor, user.Role, req.NewRole)
	}

	s.assign(user, actor, req.NewRole)
	if err := s.accounts.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "updating user role")
	}
	return &Result{User: user}, nil
}

func (s *Service) assign(user *models.User, actor models.Actor, role models.Role) {
	actorID := actor.ID
	user.Role = role
	user.HandledBy = &actorID
	if user.RegisteredBy == nil {
		user.RegisteredBy = &actorID
	}
	user.UpdatedAt = s.Now().UTC()
}

// promoteOutreach merges the contact into the account sharing its phone or
// email, or creates one, then deletes the contact.
func (s *Service) promoteOutreach(ctx context.Context, actor models.Actor, req ByOutreach) (*Result, error) {
	contact, err := s.outreach.GetByID(ctx, req.OutreachID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("outreach contact not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding outreach contact")
	}

	existing, err := s.matchAccount(ctx, contact)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if existing != nil {
		if !CanChange(actor.Role, existing.Role, req.NewRole) {
			return nil, errDenied(actor, existing.Role, req.NewRole)
		}
		fillFromContact(existing, contact)
		s.assign(existing, actor, req.NewRole)
		if err := s.accounts.Update(ctx, existing); err != nil {
			return nil, errors.Wrap(err, "merging outreach contact")
		}
		res.User, res.Merged = existing, true
	} else {
		if !CanChange(actor.Role, models.RoleOutreach, req.NewRole) {
			return nil, errDenied(actor, models.RoleOutreach, req.NewRole)
		}
		user := s.newFromContact(contact, actor, req.NewRole)
		if err := s.accounts.Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return nil, apperr.Conflict("an account with this phone or email already exists")
			}
			return nil, errors.Wrap(err, "creating user from outreach contact")
		}
		res.User, res.Created = user, true
	}

	if err := s.outreach.Delete(ctx, contact.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(err, "deleting merged outreach contact")
	}

	moved, err := s.followUps.Retarget(ctx, contact.ID, res.User.ID, models.TargetUser)
	if err != nil {
		// the account change already happened; report the stale follow-ups rather than fail
		zap.S().Warnw("retargeting follow-ups after merge failed", "outreachId", contact.ID.Hex(), "error", err)
	}
	res.Retargeted = moved
	return res, nil
}

func (s *Service) matchAccount(ctx context.Context, contact *models.OutreachContact) (*models.User, error) {
	if phone := utils.NormalizePhone(contact.Phone); phone != "" {
		u, err := s.accounts.GetByPhone(ctx, phone)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(err, "finding user by phone")
		}
	}
	if email := utils.NormalizeEmail(contact.Email); email != "" {
		u, err := s.accounts.GetByEmail(ctx, email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrap(err, "finding user by email")
		}
	}
	return nil, nil
}

func (s *Service) newFromContact(contact *models.OutreachContact, actor models.Actor, role models.Role) *models.User {
	now := s.Now().UTC()
	contactID := contact.ID
	user := &models.User{
		Name:             contact.Name,
		Email:            utils.NormalizeEmail(contact.Email),
		Phone:            utils.NormalizePhone(contact.Phone),
		Status:           models.StatusPending,
		IsActive:         false,
		Source:           "outreach",
		SourceOutreachID: &contactID,
		RegisteredBy:     contact.RegisteredBy,
		Profession:       contact.Profession,
		NumberOfRounds:   contact.NumberOfRounds,
		Address:          contact.CurrentLocation,
		CreatedAt:        now,
	}
	s.assign(user, actor, role)
	return user
}

// fillFromContact copies contact details the account is missing.
func fillFromContact(u *models.User, c *models.OutreachContact) {
	contactID := c.ID
	u.SourceOutreachID = &contactID
	if u.Name == "" {
		u.Name = c.Name
	}
	if u.Phone == "" {
		u.Phone = utils.NormalizePhone(c.Phone)
	}
	if u.Profession == "" {
		u.Profession = c.Profession
	}
	if u.Address == "" {
		u.Address = c.CurrentLocation
	}
	if u.NumberOfRounds == 0 {
		u.NumberOfRounds = c.NumberOfRounds
	}
	if u.RegisteredBy == nil {
		u.RegisteredBy = c.RegisteredBy
	}
}
