// Package roles decides and applies role changes, including promoting an
// outreach contact into an account.
package roles

import "github.com/raushankrgupta/temple-connect/models"

// CanChange reports whether an actor may move a target from its current role
// to desired. Nobody may modify a peer or a superior, and volunteers may only
// assign the participant tier or below.
func CanChange(actor, targetCurrent, desired models.Role) bool {
	if !actor.Valid() || !desired.Valid() {
		return false
	}
	if targetCurrent.Rank() >= actor.Rank() {
		return false
	}
	if actor == models.RoleVolunteer && (desired == models.RoleVolunteer || desired == models.RoleAdmin) {
		return false
	}
	return true
}
