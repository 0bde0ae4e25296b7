package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coordinate precision matches the NUMERIC(9,6) columns.
const (
	CoordDigits         = 9
	CoordFractionDigits = 6
)

// Donation is a posted surplus-food listing awaiting pickup.
// IsClaimed and IsExpired only ever move from false to true.
type Donation struct {
	ID            string              `json:"id"`
	DonorID       string              `json:"donor"`
	DonorName     string              `json:"donor_name,omitempty"`
	ContactNumber string              `json:"contact_number,omitempty"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Quantity      int                 `json:"quantity"`
	ExpiryTime    *time.Time          `json:"expiry_time"`
	Location      string              `json:"location"`
	Latitude      decimal.NullDecimal `json:"latitude"`
	Longitude     decimal.NullDecimal `json:"longitude"`
	IsClaimed     bool                `json:"is_claimed"`
	IsExpired     bool                `json:"is_expired"`
	ClaimedVia    *ClaimVia           `json:"claimed_via"`
	ClaimedAt     *time.Time          `json:"claimed_at"`
	CreatedAt     time.Time           `json:"created_at"`

	// Images is populated on single-donation reads only.
	Images []DonationImage `json:"images"`
	// ThumbnailKey is the storage key of the first image, if any.
	ThumbnailKey string `json:"-"`
}

// Open reports whether the donation can still be claimed.
func (d *Donation) Open() bool {
	return !d.IsClaimed && !d.IsExpired
}

// ExpiryDue reports whether the donation has an expiry that has passed at now
// but has not been flagged yet.
func (d *Donation) ExpiryDue(now time.Time) bool {
	return d.ExpiryTime != nil && !d.IsExpired && !now.Before(*d.ExpiryTime)
}

// DonationImage is an attachment owned by a donation.
type DonationImage struct {
	ID          string    `json:"id"`
	DonationID  string    `json:"donation_id"`
	StorageKey  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"image_url"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// DonationStats are the per-donor counters shown on the profile screen.
type DonationStats struct {
	Posted  int `json:"posted_count"`
	Claimed int `json:"claimed_count"`
	Expired int `json:"expired_count"`
}
