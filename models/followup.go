package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TargetType string

const (
	TargetUser     TargetType = "user"
	TargetOutreach TargetType = "outreach"
)

func (t TargetType) Valid() bool {
	return t == TargetUser || t == TargetOutreach
}

// FollowUpStatus is the canonical outcome of a follow-up call
type FollowUpStatus string

const (
	FollowUpPending    FollowUpStatus = "pending"
	FollowUpComing     FollowUpStatus = "coming"
	FollowUpNotComing  FollowUpStatus = "not_coming"
	FollowUpMayCome    FollowUpStatus = "may_come"
	FollowUpNoResponse FollowUpStatus = "no_response"
)

// FollowUp is one call a volunteer owes a participant or outreach contact for a program date
type FollowUp struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TargetType  TargetType          `bson:"target_type" json:"targetType"`
	TargetID    primitive.ObjectID  `bson:"target_id" json:"targetId"`
	TargetName  string              `bson:"target_name,omitempty" json:"targetName,omitempty"`
	TargetPhone string              `bson:"target_phone,omitempty" json:"targetPhone,omitempty"`
	AssignedTo  primitive.ObjectID  `bson:"assigned_to" json:"assignedTo"`
	ProgramID   *primitive.ObjectID `bson:"program_id,omitempty" json:"programId,omitempty"`
	ProgramDate time.Time           `bson:"program_date" json:"programDate"`
	Status      FollowUpStatus      `bson:"status" json:"status"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Channel     string              `bson:"channel" json:"channel"`
	IsDeleted   bool                `bson:"is_deleted" json:"isDeleted"`
	CreatedBy   primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time          `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
}

// VolunteerLoad is the number of live follow-ups held by one volunteer
type VolunteerLoad struct {
	VolunteerID primitive.ObjectID     `bson:"_id" json:"volunteerId"`
	Name        string                 `bson:"-" json:"name"`
	Total       int                    `bson:"total" json:"total"`
	ByStatus    map[FollowUpStatus]int `bson:"-" json:"byStatus"`
}
