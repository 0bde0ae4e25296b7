// Package policy holds the role-based authorization rules consulted by the
// donation and order workflows.
package policy

import "foodshare/internal/model"

// orderRoles may confirm an order.
var orderRoles = []string{model.RoleNGO, model.RoleVolunteer}

// CanClaim allows any authenticated actor to claim a donation.
func CanClaim(actor model.Actor, _ *model.Donation) bool {
	return actor.Authenticated()
}

// CanConfirmOrder allows only NGO and volunteer actors.
func CanConfirmOrder(actor model.Actor) bool {
	if !actor.Authenticated() {
		return false
	}
	for _, r := range orderRoles {
		if actor.HasRole(r) {
			return true
		}
	}
	return false
}

// CanDeleteDonation allows the donor or an admin.
func CanDeleteDonation(actor model.Actor, d *model.Donation) bool {
	if !actor.Authenticated() || d == nil {
		return false
	}
	return actor.IsAdmin || actor.ID == d.DonorID
}

// CanAttachImage follows the same ownership rule as deletion.
func CanAttachImage(actor model.Actor, d *model.Donation) bool {
	return CanDeleteDonation(actor, d)
}

// CanManageUsers allows admins only.
func CanManageUsers(actor model.Actor) bool {
	return actor.Authenticated() && actor.IsAdmin
}
