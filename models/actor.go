package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Actor is the authenticated account performing an operation.
type Actor struct {
	ID   primitive.ObjectID
	Role Role
	Name string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
