package roles

import (
	"strings"

	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Request is either ByUser or ByOutreach.
type Request interface {
	Role() models.Role
	isRequest()
}

// ByUser changes the role of an existing account.
type ByUser struct {
	UserID  primitive.ObjectID
	NewRole models.Role
}

// ByOutreach promotes an outreach contact into an account at NewRole.
type ByOutreach struct {
	OutreachID primitive.ObjectID
	NewRole    models.Role
}

func (r ByUser) Role() models.Role     { return r.NewRole }
func (r ByOutreach) Role() models.Role { return r.NewRole }
func (ByUser) isRequest()              {}
func (ByOutreach) isRequest()          {}

// ChangeRoleBody is the wire shape of a role change.
type ChangeRoleBody struct {
	UserID     string `json:"userId"`
	OutreachID string `json:"outreachId"`
	NewRole    string `json:"newRole"`
}

// Decode turns the wire shape into a Request. Exactly one id must be set.
func (b ChangeRoleBody) Decode() (Request, error) {
	role, ok := models.ParseRole(b.NewRole)
	if !ok {
		return nil, apperr.Validation("newRole must be one of admin, volunteer, participant, guest, outreach")
	}

	userID, outreachID := strings.TrimSpace(b.UserID), strings.TrimSpace(b.OutreachID)
	switch {
	case userID != "" && outreachID != "":
		return nil, apperr.Validation("provide either userId or outreachId, not both")
	case userID != "":
		id, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return nil, apperr.Validation("invalid userId")
		}
		return ByUser{UserID: id, NewRole: role}, nil
	case outreachID != "":
		id, err := primitive.ObjectIDFromHex(outreachID)
		if err != nil {
			return nil, apperr.Validation("invalid outreachId")
		}
		return ByOutreach{OutreachID: id, NewRole: role}, nil
	default:
		return nil, apperr.Validation("userId or outreachId is required")
	}
}
