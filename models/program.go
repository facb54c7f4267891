package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Program is a recurring temple program participants enrol in
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

// Session is a dated occurrence of a program and its attendance
type Session struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProgramID primitive.ObjectID   `bson:"program_id" json:"programId"`
	Date      time.Time            `bson:"date" json:"date"`
	Attendees []primitive.ObjectID `bson:"attendees" json:"attendees"`
	CreatedAt time.Time            `bson:"created_at" json:"createdAt"`
}

// Day truncates t to midnight UTC. Program dates are stored as days.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts YYYY-MM-DD or RFC3339 and returns the UTC day.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
