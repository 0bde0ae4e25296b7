package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodshare/internal/model"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDonationExpired = errors.New("donation expired")
	ErrDonationClaimed = errors.New("donation already claimed")

	// ErrExpiredOnClaim wraps ErrDonationExpired when ApplyClaim itself
	// flipped the flag, so the caller can count the expiry.
	ErrExpiredOnClaim = fmt.Errorf("%w: flagged during claim", ErrDonationExpired)
)

// DonationRepository defines data access for donations, their images and the
// orders that claim them. No business rules live here except the claim
// compare-and-swap, which must run inside the store's own transaction.
type DonationRepository interface {
	// Create upserts the donor mirror row and inserts the donation.
	Create(ctx context.Context, donor model.Actor, d *model.Donation) (*model.Donation, error)

	// FindByID returns a donation with its images, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Donation, error)

	// List returns donations newest first together with the total matching count.
	List(ctx context.Context, f DonationFilter) (*PageResult[model.Donation], error)

	// Delete removes a donation. Images and orders go with it.
	Delete(ctx context.Context, id string) error

	// MarkExpired sets is_expired on one donation if it is due at now.
	// It reports whether a row changed.
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)

	// MarkExpiredMatching sets is_expired on every due donation in scope.
	MarkExpiredMatching(ctx context.Context, scope ExpiryScope, now time.Time) (int64, error)

	// ApplyClaim performs the OPEN -> CLAIMED transition atomically. When the
	// transition carries an Order it is inserted in the same unit. Returns
	// ErrNotFound, ErrDonationExpired or ErrDonationClaimed when the re-check
	// under lock fails.
	ApplyClaim(ctx context.Context, t *model.ClaimTransition) (*model.Donation, error)

	// Stats counts the donor's donations by state.
	Stats(ctx context.Context, donorID string) (model.DonationStats, error)

	// AddImage appends an image row to a donation.
	AddImage(ctx context.Context, img *model.DonationImage) (*model.DonationImage, error)

	// ListOrdersByUser returns the user's orders newest first, each paired
	// with the donation it claimed.
	ListOrdersByUser(ctx context.Context, userID string) ([]OrderWithDonation, error)

	// DeleteUser removes the user mirror row, cascading to donations and orders.
	DeleteUser(ctx context.Context, id string) error
}

// DonationFilter selects donations for listing. The zero value hides expired
// and claimed donations and applies no paging.
type DonationFilter struct {
	IncludeExpired bool
	IncludeClaimed bool
	DonorID        string
	Limit          int
	Offset         int
}

// ExpiryScope narrows a bulk sweep. Empty DonorID means every donation.
type ExpiryScope struct {
	DonorID string
}

// OrderWithDonation pairs an order with a snapshot of its donation.
type OrderWithDonation struct {
	Order    model.Order
	Donation model.Donation
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
