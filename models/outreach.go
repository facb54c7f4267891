package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OutreachContact is a person met through outreach who has not become an account yet
type OutreachContact struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name            string              `bson:"name" json:"name"`
	Phone           string              `bson:"phone" json:"phone"`
	Email           string              `bson:"email,omitempty" json:"email,omitempty"`
	Profession      string              `bson:"profession,omitempty" json:"profession,omitempty"`
	MotherTongue    string              `bson:"mother_tongue,omitempty" json:"motherTongue,omitempty"`
	CurrentLocation string              `bson:"current_location,omitempty" json:"currentLocation,omitempty"`
	RegisteredBy    *primitive.ObjectID `bson:"registered_by,omitempty" json:"registeredBy,omitempty"`
	NumberOfRounds  int                 `bson:"number_of_rounds,omitempty" json:"numberOfRounds,omitempty"`
	Branch          string              `bson:"branch,omitempty" json:"branch,omitempty"`
	PaidStatus      string              `bson:"paid_status,omitempty" json:"paidStatus,omitempty"`
	UnderWhichAdmin string              `bson:"under_which_admin,omitempty" json:"underWhichAdmin,omitempty"`
	Comment         string              `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
}
