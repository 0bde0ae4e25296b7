package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order binds an eligible actor to the pickup of one donation.
// It is created once by the confirmation workflow and never updated.
type Order struct {
	ID               string              `json:"id"`
	DonationID       string              `json:"donation"`
	UserID           string              `json:"user"`
	ConfirmationNote string              `json:"confirmation_note"`
	Latitude         decimal.NullDecimal `json:"latitude"`
	Longitude        decimal.NullDecimal `json:"longitude"`
	CreatedAt        time.Time           `json:"created_at"`
}

// ClaimVia tags how a donation reached the claimed state.
type ClaimVia string

const (
	ClaimDirect ClaimVia = "direct"
	ClaimOrder  ClaimVia = "order"
)

// ClaimTransition is the single OPEN -> CLAIMED transition used by both the
// bare claim action and order confirmation. Order is set iff Via is ClaimOrder.
type ClaimTransition struct {
	DonationID string
	Actor      Actor
	Via        ClaimVia
	Order      *Order
	At         time.Time
}
