package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"foodshare/internal/expiry"
	"foodshare/internal/model"
	"foodshare/internal/repository"
)

var tracer = otel.Tracer("foodshare/internal/service")

// claimer runs the OPEN -> CLAIMED transition shared by direct claims and
// order confirmation.
type claimer struct {
	repo    repository.DonationRepository
	sweeper *expiry.Sweeper
	opts    Options
}

// apply checks d (already loaded and swept) and hands the transition to the
// store, which re-checks both flags under its own lock before writing.
func (c *claimer) apply(ctx context.Context, d *model.Donation, t *model.ClaimTransition) (*model.Donation, error) {
	ctx, span := tracer.Start(ctx, "claim.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("donation.id", d.ID),
		attribute.String("claim.via", string(t.Via)),
	)

	if d.IsExpired {
		return nil, c.fail(span, t, conflict(ErrDonationExpired))
	}
	if d.IsClaimed {
		return nil, c.fail(span, t, conflict(ErrDonationClaimed))
	}

	t.At = c.sweeper.Now().UTC()
	claimed, err := c.repo.ApplyClaim(ctx, t)
	if errors.Is(err, repository.ErrExpiredOnClaim) {
		c.opts.Recorder.Expired(1)
	}
	if err != nil {
		return nil, c.fail(span, t, fromStore(err, "donation"))
	}

	c.opts.Recorder.Claimed(t.Via)
	ctxLogger(ctx, c.opts.Logger).Info().
		Str("event", "donation_claimed").
		Str("donation_id", t.DonationID).
		Str("actor_id", t.Actor.ID).
		Str("via", string(t.Via)).
		Send()
	return claimed, nil
}

func (c *claimer) fail(span trace.Span, t *model.ClaimTransition, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.opts.Logger.Debug().Err(err).
		Str("donation_id", t.DonationID).
		Str("via", string(t.Via)).
		Msg("claim rejected")
	return err
}
