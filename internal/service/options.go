package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"foodshare/internal/logger"
	"foodshare/internal/model"
)

// Recorder receives domain events for metrics.
type Recorder interface {
	Claimed(via model.ClaimVia)
	Expired(n int64)
}

type nopRecorder struct{}

func (nopRecorder) Claimed(model.ClaimVia) {}
func (nopRecorder) Expired(int64)          {}

// Options configure the services. The zero value is usable.
type Options struct {
	Logger   zerolog.Logger
	Recorder Recorder
	// DefaultImageURL is the thumbnail of donations without images.
	DefaultImageURL string
	PresignExpiry   time.Duration
	Now             func() time.Time
}

const (
	defaultImageURL      = "/static/default_donation.jpg"
	defaultPresignExpiry = time.Hour
)

func (o Options) withDefaults() Options {
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.DefaultImageURL == "" {
		o.DefaultImageURL = defaultImageURL
	}
	if o.PresignExpiry <= 0 {
		o.PresignExpiry = defaultPresignExpiry
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Logger = o.Logger.With().Str("component", "service").Logger()
	return o
}

// ctxLogger tags l with the request id carried by ctx, if any.
func ctxLogger(ctx context.Context, l zerolog.Logger) *zerolog.Logger {
	if id := logger.RequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
