// Package outreach records people met at outreach events until they are
// promoted into accounts.
package outreach

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// maxPage keeps (page-1)*limit well inside int64.
	maxPage = math.MaxInt32
)

type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone" validate:"required,e164ish"`
	Email           string `json:"email" validate:"omitempty,email"`
	Profession      string `json:"profession"`
	MotherTongue    string `json:"motherTongue"`
	CurrentLocation string `json:"currentLocation"`
	NumberOfRounds  int    `json:"numberOfRounds" validate:"gte=0"`
	Branch          string `json:"branch"`
	PaidStatus      string `json:"paidStatus"`
	UnderWhichAdmin string `json:"underWhichAdmin"`
	Comment         string `json:"comment"`
}

type Page struct {
	Items       []models.OutreachContact `json:"items"`
	Total       int64                    `json:"total"`
	CurrentPage int                      `json:"currentPage"`
	TotalPages  int                      `json:"totalPages"`
}

type Service struct {
	contacts store.Outreach

	Now func() time.Time
}

func NewService(contacts store.Outreach) *Service {
	return &Service{contacts: contacts, Now: time.Now}
}

// Register stores a contact. registeredBy is the signed-in account, if any.
func (s *Service) Register(ctx context.Context, req RegisterRequest, registeredBy *primitive.ObjectID) (*models.OutreachContact, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = utils.NormalizePhone(req.Phone)
	req.Email = utils.NormalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	c := &models.OutreachContact{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Profession:      strings.TrimSpace(req.Profession),
		MotherTongue:    strings.TrimSpace(req.MotherTongue),
		CurrentLocation: strings.TrimSpace(req.CurrentLocation),
		RegisteredBy:    registeredBy,
		NumberOfRounds:  req.NumberOfRounds,
		Branch:          strings.TrimSpace(req.Branch),
		PaidStatus:      strings.TrimSpace(req.PaidStatus),
		UnderWhichAdmin: strings.TrimSpace(req.UnderWhichAdmin),
		Comment:         strings.TrimSpace(req.Comment),
		CreatedAt:       s.Now().UTC(),
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "saving outreach contact")
	}
	return c, nil
}

// List returns one page of contacts, newest first. Pages start at 1.
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	items, total, err := s.contacts.List(ctx, int64(page-1)*int64(limit), int64(limit))
	if err != nil {
		return nil, errors.Wrap(err, "listing outreach contacts")
	}
	return &Page{
		Items:       items,
		Total:       total,
		CurrentPage: page,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.contacts.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("outreach contact not found")
	}
	if err != nil {
		return errors.Wrap(err, "deleting outreach contact")
	}
	return nil
}
