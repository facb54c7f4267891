// Package store declares the persistence contracts the domain services use.
// Implementations live in mongostore and memstore.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/raushankrgupta/temple-connect/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

type Accounts interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	// ListEligibleVolunteers returns active, verified admins and volunteers ordered by
	// creation time. Pending placeholders are never eligible.
	ListEligibleVolunteers(ctx context.Context) ([]models.User, error)
	ListByProgram(ctx context.Context, programID primitive.ObjectID) ([]models.User, error)
}

type OTPs interface {
	Create(ctx context.Context, o *models.OTP) error
	// Latest returns the newest unexpired code for the key, consumed or not.
	// A consumed newest code shadows every older one.
	Latest(ctx context.Context, target string, channel models.Channel, purpose models.Purpose, now time.Time) (*models.OTP, error)
	// Consume marks the code consumed only if it was not consumed yet; ErrNotFound otherwise.
	Consume(ctx context.Context, id primitive.ObjectID, now time.Time) error
	IncrementAttempts(ctx context.Context, id primitive.ObjectID) error
}

type Outreach interface {
	Create(ctx context.Context, c *models.OutreachContact) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.OutreachContact, error)
	// List returns contacts newest first and the total count.
	List(ctx context.Context, skip, limit int64) ([]models.OutreachContact, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// FollowUpFilter narrows follow-up queries. Zero values match everything.
type FollowUpFilter struct {
	AssignedTo  *primitive.ObjectID
	ProgramDate *time.Time
}

type FollowUps interface {
	// Create returns ErrDuplicate when a live follow-up exists for the same target and date.
	Create(ctx context.Context, f *models.FollowUp) error
	ExistsActive(ctx context.Context, targetID primitive.ObjectID, programDate time.Time) (bool, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.FollowUp, error)
	Update(ctx context.Context, f *models.FollowUp) error
	List(ctx context.Context, filter FollowUpFilter) ([]models.FollowUp, error)
	// CountByVolunteer aggregates live follow-ups per assignee and status.
	CountByVolunteer(ctx context.Context, programDate *time.Time) ([]models.VolunteerLoad, error)
	// Retarget moves live follow-ups from one target to another, returning how many moved.
	Retarget(ctx context.Context, from, to primitive.ObjectID, toType models.TargetType) (int64, error)
}

type Programs interface {
	Create(ctx context.Context, p *models.Program) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error)
	List(ctx context.Context) ([]models.Program, error)
	// UpsertSession returns the session for the program and day, creating it when missing.
	UpsertSession(ctx context.Context, programID primitive.ObjectID, day time.Time, now time.Time) (*models.Session, error)
	// MarkAttendance adds attendees with set semantics.
	MarkAttendance(ctx context.Context, sessionID primitive.ObjectID, userIDs []primitive.ObjectID) (*models.Session, error)
}

// Store bundles every repository.
type Store struct {
	Accounts  Accounts
	OTPs      OTPs
	Outreach  Outreach
	FollowUps FollowUps
	Programs  Programs
}
