package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"foodshare/internal/expiry"
	"foodshare/internal/model"
	"foodshare/internal/storage"
)

// DonationView is the donation resource returned to clients.
type DonationView struct {
	model.Donation
	RemainingSeconds *int64 `json:"remaining_seconds"`
	Thumbnail        string `json:"thumbnail"`
}

// OrderView carries a snapshot of the claimed donation.
type OrderView struct {
	model.Order
	DonationDetails DonationView `json:"donation_details"`
}

type DonationListResult struct {
	Items []DonationView `json:"data"`
	Total int            `json:"total"`
}

type StatsResult struct {
	model.DonationStats
	Posts []DonationView `json:"posts"`
}

// presenter turns stored donations into views. URL signing failures fall
// back to the default image and are logged, never returned.
type presenter struct {
	store      storage.Storage
	defaultURL string
	expiry     time.Duration
	log        zerolog.Logger
}

func (p presenter) donation(ctx context.Context, d model.Donation, now time.Time) DonationView {
	v := DonationView{
		Donation:         d,
		RemainingSeconds: expiry.RemainingSeconds(&d, now),
		Thumbnail:        p.defaultURL,
	}
	if d.ThumbnailKey != "" {
		if u, ok := p.sign(ctx, d.ThumbnailKey); ok {
			v.Thumbnail = u
		}
	}
	if d.Images != nil {
		v.Images = make([]model.DonationImage, len(d.Images))
		for i, img := range d.Images {
			v.Images[i] = p.image(ctx, img)
		}
	}
	return v
}

func (p presenter) donations(ctx context.Context, ds []model.Donation, now time.Time) []DonationView {
	out := make([]DonationView, 0, len(ds))
	for _, d := range ds {
		out = append(out, p.donation(ctx, d, now))
	}
	return out
}

func (p presenter) image(ctx context.Context, img model.DonationImage) model.DonationImage {
	if u, ok := p.sign(ctx, img.StorageKey); ok {
		img.URL = u
	}
	return img
}

func (p presenter) sign(ctx context.Context, key string) (string, bool) {
	if p.store == nil || key == "" {
		return "", false
	}
	u, err := p.store.PresignGet(ctx, key, p.expiry)
	if err != nil {
		ctxLogger(ctx, p.log).Warn().Err(err).Str("storage_key", key).Msg("presign failed")
		return "", false
	}
	return u, true
}
