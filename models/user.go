package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// AccountStatus tells a login-capable account apart from a placeholder awaiting OTP activation.
type AccountStatus string

const (
	StatusPending AccountStatus = "pending"
	StatusActive  AccountStatus = "active"
)

// User represents a community member account
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name             string               `bson:"name" json:"name"`
	Email            string               `bson:"email,omitempty" json:"email,omitempty"`
	Phone            string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Password         string               `bson:"password,omitempty" json:"-"` // bcrypt hash, never returned in JSON
	Status           AccountStatus        `bson:"status,omitempty" json:"status"`
	Role             Role                 `bson:"role" json:"role"`
	IsActive         bool                 `bson:"is_active" json:"isActive"`
	RegisteredBy     *primitive.ObjectID  `bson:"registered_by,omitempty" json:"registeredBy,omitempty"`
	HandledBy        *primitive.ObjectID  `bson:"handled_by,omitempty" json:"handledBy,omitempty"`
	Source           string               `bson:"source,omitempty" json:"source,omitempty"`
	SourceOutreachID *primitive.ObjectID  `bson:"source_outreach_id,omitempty" json:"sourceOutreachId,omitempty"`
	Profession       string               `bson:"profession,omitempty" json:"profession,omitempty"`
	HomeTown         string               `bson:"home_town,omitempty" json:"homeTown,omitempty"`
	ConnectedTo      string               `bson:"connected_to_temple,omitempty" json:"connectedToTemple,omitempty"`
	Gender           string               `bson:"gender,omitempty" json:"gender,omitempty"`
	DateOfBirth      *time.Time           `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	Address          string               `bson:"address,omitempty" json:"address,omitempty"`
	NumberOfRounds   int                  `bson:"number_of_rounds,omitempty" json:"numberOfRounds,omitempty"`
	Level            string               `bson:"level,omitempty" json:"level,omitempty"`
	Grade            string               `bson:"grade,omitempty" json:"grade,omitempty"`
	Programs         []primitive.ObjectID `bson:"programs,omitempty" json:"programs,omitempty"`
	CreatedAt        time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updatedAt"`
}

// AccountStatus returns the stored status, falling back to hash presence for
// documents written before the status field existed.
func (u *User) AccountStatus() AccountStatus {
	if u.Status != "" {
		return u.Status
	}
	if u.Password != "" {
		return StatusActive
	}
	return StatusPending
}

// IsPending reports whether the account is a placeholder awaiting OTP activation.
func (u *User) IsPending() bool {
	return u.AccountStatus() == StatusPending
}

// CanLogin reports whether the account may authenticate with a password.
func (u *User) CanLogin() bool {
	return u.AccountStatus() == StatusActive && u.IsActive && u.Password != ""
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(pwd))
}

// HasProgram reports whether the user is enrolled in the given program.
func (u *User) HasProgram(id primitive.ObjectID) bool {
	for _, p := range u.Programs {
		if p == id {
			return true
		}
	}
	return false
}
