package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"foodshare/internal/expiry"
	"foodshare/internal/model"
	"foodshare/internal/policy"
	"foodshare/internal/repository"
	"foodshare/internal/storage"
)

// ConfirmOrderInput is the body of an order confirmation. Field order sets
// which validation error is reported first.
type ConfirmOrderInput struct {
	ConfirmationNote string              `json:"confirmation_note" validate:"required"`
	DonationID       string              `json:"donation" validate:"required,uuid"`
	Latitude         decimal.NullDecimal `json:"latitude"`
	Longitude        decimal.NullDecimal `json:"longitude"`
}

// OrderService defines the order confirmation use cases.
type OrderService interface {
	// Confirm creates an order for an open donation and claims it in the
	// same atomic unit. Only NGO and volunteer actors may confirm.
	Confirm(ctx context.Context, actor model.Actor, in ConfirmOrderInput) (*OrderView, error)

	// List returns the actor's orders newest first.
	List(ctx context.Context, actor model.Actor) ([]OrderView, error)
}

type orderService struct {
	repo    repository.DonationRepository
	sweeper *expiry.Sweeper
	claims  *claimer
	view    presenter
}

func NewOrderService(repo repository.DonationRepository, store storage.Storage, opts Options) OrderService {
	opts = opts.withDefaults()
	sw := expiry.New(repo, expiry.WithClock(opts.Now), expiry.WithRecorder(opts.Recorder))
	return &orderService{
		repo:    repo,
		sweeper: sw,
		claims:  &claimer{repo: repo, sweeper: sw, opts: opts},
		view:    newPresenter(store, opts),
	}
}

func (s *orderService) Confirm(ctx context.Context, actor model.Actor, in ConfirmOrderInput) (*OrderView, error) {
	ctx, span := tracer.Start(ctx, "order.confirm")
	defer span.End()
	span.SetAttributes(attribute.String("donation.id", in.DonationID))

	ov, err := s.confirm(ctx, actor, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", ov.ID))
	return ov, nil
}

func (s *orderService) confirm(ctx context.Context, actor model.Actor, in ConfirmOrderInput) (*OrderView, error) {
	if !actor.Authenticated() {
		return nil, unauthenticated()
	}
	if !policy.CanConfirmOrder(actor) {
		return nil, forbidden("only NGO and volunteer accounts can confirm orders")
	}

	in.ConfirmationNote = strings.TrimSpace(in.ConfirmationNote)
	in.DonationID = strings.TrimSpace(in.DonationID)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	lat, lng, err := normalizeCoords(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	d, err := s.repo.FindByID(ctx, in.DonationID)
	if err != nil {
		return nil, fromStore(err, "donation")
	}
	if _, err := s.sweeper.Sweep(ctx, d); err != nil {
		return nil, fmt.Errorf("sweep donation: %w", err)
	}

	now := s.sweeper.Now().UTC()
	t := &model.ClaimTransition{
		DonationID: d.ID,
		Actor:      actor,
		Via:        model.ClaimOrder,
		Order: &model.Order{
			ID:               uuid.NewString(),
			DonationID:       d.ID,
			UserID:           actor.ID,
			ConfirmationNote: in.ConfirmationNote,
			Latitude:         lat,
			Longitude:        lng,
			CreatedAt:        now,
		},
	}
	claimed, err := s.claims.apply(ctx, d, t)
	if err != nil {
		return nil, err
	}
	claimed.Images = d.Images
	claimed.ThumbnailKey = d.ThumbnailKey

	return &OrderView{
		Order:           *t.Order,
		DonationDetails: s.view.donation(ctx, *claimed, now),
	}, nil
}

func (s *orderService) List(ctx context.Context, actor model.Actor) ([]OrderView, error) {
	if !actor.Authenticated() {
		return nil, unauthenticated()
	}
	rows, err := s.repo.ListOrdersByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	now := s.sweeper.Now()
	out := make([]OrderView, 0, len(rows))
	for _, r := range rows {
		out = append(out, OrderView{
			Order:           r.Order,
			DonationDetails: s.view.donation(ctx, r.Donation, now),
		})
	}
	return out, nil
}
