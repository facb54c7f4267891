package account

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileUpdate holds the self-editable fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name           *string `json:"name" validate:"omitempty,min=1"`
	Profession     *string `json:"profession"`
	HomeTown       *string `json:"homeTown"`
	ConnectedTo    *string `json:"connectedToTemple"`
	Gender         *string `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth    *string `json:"dateOfBirth"`
	Address        *string `json:"address"`
	NumberOfRounds *int    `json:"numberOfRounds" validate:"omitempty,gte=0,lte=192"`
}

func (s *Service) GetProfile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := lookup(s.accounts.GetByID(ctx, id))
	if err != nil {
		return nil, errors.Wrap(err, "finding user by id")
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	if upd.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*upd.Gender))
		upd.Gender = &g
	}
	if err := utils.ValidateStruct(upd); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&user.Name, upd.Name)
	setString(&user.Profession, upd.Profession)
	setString(&user.HomeTown, upd.HomeTown)
	setString(&user.ConnectedTo, upd.ConnectedTo)
	setString(&user.Gender, upd.Gender)
	setString(&user.Address, upd.Address)
	if upd.NumberOfRounds != nil {
		user.NumberOfRounds = *upd.NumberOfRounds
	}
	if upd.DateOfBirth != nil {
		if *upd.DateOfBirth == "" {
			user.DateOfBirth = nil
		} else {
			dob, err := time.Parse("2006-01-02", *upd.DateOfBirth)
			if err != nil {
				return nil, apperr.Validation("dateOfBirth must be YYYY-MM-DD")
			}
			user.DateOfBirth = &dob
		}
	}
	if user.Name == "" {
		return nil, apperr.Validation("name cannot be blank")
	}

	user.UpdatedAt = s.Now().UTC()
	if err := s.accounts.Update(ctx, user); err != nil {
		return nil, errors.Wrap(err, "updating profile")
	}
	return user, nil
}
