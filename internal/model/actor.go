package model

import "strings"

// Roles issued by the identity service. Comparisons are case-insensitive.
const (
	RoleNGO        = "NGO"
	RoleRestaurant = "RESTAURANT"
	RoleVolunteer  = "VOLUNTEER"
	RoleOther      = "OTHER"
)

// Actor is the party making a request. The zero value is anonymous.
type Actor struct {
	ID       string
	Username string
	Role     string
	IsAdmin  bool
}

// Anonymous is the actor used when no credentials were presented.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a verified identity.
func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.ID) != ""
}

// HasRole compares the actor's role case-insensitively.
func (a Actor) HasRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(a.Role), role)
}
