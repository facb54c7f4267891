package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelPhone
}

type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeReset  Purpose = "reset"
)

// OTP is a one-time verification code sent to an email address or phone number
type OTP struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Target     string             `bson:"target" json:"target"`
	Code       string             `bson:"code" json:"-"`
	Channel    Channel            `bson:"channel" json:"channel"`
	Purpose    Purpose            `bson:"purpose" json:"purpose"`
	Attempts   int                `bson:"attempts" json:"attempts"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"expiresAt"`
	ConsumedAt *time.Time         `bson:"consumed_at,omitempty" json:"consumedAt,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}

// Usable reports whether the code can still be verified at now.
func (o *OTP) Usable(now time.Time, maxAttempts int) bool {
	if o.ConsumedAt != nil || !now.Before(o.ExpiresAt) {
		return false
	}
	return maxAttempts <= 0 || o.Attempts < maxAttempts
}
