package models

import "strings"

type Role string

const (
	RoleOutreach    Role = "outreach"
	RoleGuest       Role = "guest"
	RoleParticipant Role = "participant"
	RoleVolunteer   Role = "volunteer"
	RoleAdmin       Role = "admin"
)

var (
	AllRoles = []Role{RoleAdmin, RoleVolunteer, RoleParticipant, RoleGuest, RoleOutreach}

	roleRanks = map[Role]int{
		RoleAdmin:       4,
		RoleVolunteer:   3,
		RoleParticipant: 2,
		RoleGuest:       1,
		RoleOutreach:    0,
	}
)

// Rank returns the position of the role in the admin > volunteer > participant > guest > outreach order.
// Unknown roles rank below every known role.
func (r Role) Rank() int {
	if rank, ok := roleRanks[r]; ok {
		return rank
	}
	return -1
}

func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// IsStaff reports whether the role may be handed follow-up calls.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleVolunteer
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}
