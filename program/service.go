// Package program manages temple programs, participant enrolment and
// attendance at dated sessions.
package program

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type AttendanceRequest struct {
	Date    string   `json:"date" validate:"required"`
	UserIDs []string `json:"userIds" validate:"required,min=1"`
}

type Service struct {
	programs store.Programs
	accounts store.Accounts

	Now func() time.Time
}

func NewService(programs store.Programs, accounts store.Accounts) *Service {
	return &Service{programs: programs, accounts: accounts, Now: time.Now}
}

func (s *Service) Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.Program, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	p := &models.Program{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   actor.ID,
		CreatedAt:   s.Now().UTC(),
	}
	if err := s.programs.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("a program named %q already exists", req.Name)
		}
		return nil, errors.Wrap(err, "creating program")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]models.Program, error) {
	out, err := s.programs.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing programs")
	}
	return out, nil
}

func (s *Service) get(ctx context.Context, id primitive.ObjectID) (*models.Program, error) {
	p, err := s.programs.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("program not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding program")
	}
	return p, nil
}

// Enrol adds the program to the user's programs. Enrolling twice is a no-op.
func (s *Service) Enrol(ctx context.Context, programID, userID primitive.ObjectID) (*models.User, error) {
	if _, err := s.get(ctx, programID); err != nil {
		return nil, err
	}
	u, err := s.accounts.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding user")
	}
	if u.HasProgram(programID) {
		return u, nil
	}

	u.Programs = append(u.Programs, programID)
	u.UpdatedAt = s.Now().UTC()
	if err := s.accounts.Update(ctx, u); err != nil {
		return nil, errors.Wrap(err, "enrolling user")
	}
	return u, nil
}

// MarkAttendance opens the session for the date if needed and records the attendees.
func (s *Service) MarkAttendance(ctx context.Context, programID primitive.ObjectID, req AttendanceRequest) (*models.Session, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	day, err := models.ParseDay(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, apperr.Validation("date must be a date (YYYY-MM-DD)")
	}
	ids := make([]primitive.ObjectID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperr.Validation("invalid user id %q", raw)
		}
		ids = append(ids, id)
	}

	if _, err := s.get(ctx, programID); err != nil {
		return nil, err
	}
	session, err := s.programs.UpsertSession(ctx, programID, day, s.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "opening session")
	}
	session, err = s.programs.MarkAttendance(ctx, session.ID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "marking attendance")
	}
	return session, nil
}
