package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"foodshare/internal/expiry"
	"foodshare/internal/model"
	"foodshare/internal/policy"
	"foodshare/internal/repository"
	"foodshare/internal/storage"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200

	// sniffLen covers the signatures mimetype needs for common image formats.
	sniffLen = 3072
)

var ErrStorageDisabled = errors.New("image storage is not configured")

// CreateDonationInput is the body of a new donation.
type CreateDonationInput struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Quantity      *int                `json:"quantity" validate:"omitempty,min=1"`
	Description   string              `json:"description"`
	ExpiryTime    *time.Time          `json:"expiry_time"`
	Location      string              `json:"location" validate:"max=255"`
	Latitude      decimal.NullDecimal `json:"latitude"`
	Longitude     decimal.NullDecimal `json:"longitude"`
	DonorName     string              `json:"donor_name" validate:"max=100"`
	ContactNumber string              `json:"contact_number" validate:"max=20"`
}

// ListQuery selects donations for the public listing. Limit 0 means the default.
type ListQuery struct {
	IncludeExpired bool
	IncludeClaimed bool
	Limit          int
	Offset         int
}

// DonationService defines the donation use cases.
type DonationService interface {
	// Create stores a donation owned by actor. Quantity defaults to 1.
	Create(ctx context.Context, actor model.Actor, in CreateDonationInput) (*DonationView, error)

	// Get returns one donation with its images, sweeping it first.
	Get(ctx context.Context, id string) (*DonationView, error)

	// List sweeps every due donation, then returns the filtered page newest first.
	List(ctx context.Context, q ListQuery) (*DonationListResult, error)

	// Delete removes a donation owned by actor (or any donation for admins)
	// and then its image objects.
	Delete(ctx context.Context, actor model.Actor, id string) error

	// Claim marks an open donation claimed without creating an order.
	Claim(ctx context.Context, actor model.Actor, id string) (*DonationView, error)

	// AddImage stores an image object and attaches it to the donation.
	AddImage(ctx context.Context, actor model.Actor, id string, r io.Reader, size int64) (*model.DonationImage, error)

	// Stats returns the actor's donation counters and posts after a scoped sweep.
	Stats(ctx context.Context, actor model.Actor) (*StatsResult, error)
}

type donationService struct {
	repo    repository.DonationRepository
	store   storage.Storage
	sweeper *expiry.Sweeper
	claims  *claimer
	view    presenter
	opts    Options
}

// NewDonationService constructs a DonationService. store may be nil, in which
// case uploads fail and every thumbnail is the default image.
func NewDonationService(repo repository.DonationRepository, store storage.Storage, opts Options) DonationService {
	opts = opts.withDefaults()
	sw := expiry.New(repo, expiry.WithClock(opts.Now), expiry.WithRecorder(opts.Recorder))
	return &donationService{
		repo:    repo,
		store:   store,
		sweeper: sw,
		claims:  &claimer{repo: repo, sweeper: sw, opts: opts},
		view:    newPresenter(store, opts),
		opts:    opts,
	}
}

func newPresenter(store storage.Storage, opts Options) presenter {
	return presenter{
		store:      store,
		defaultURL: opts.DefaultImageURL,
		expiry:     opts.PresignExpiry,
		log:        opts.Logger,
	}
}

func (s *donationService) Create(ctx context.Context, actor model.Actor, in CreateDonationInput) (*DonationView, error) {
	if !actor.Authenticated() {
		return nil, unauthenticated()
	}

	in.Name = strings.TrimSpace(in.Name)
	in.DonorName = strings.TrimSpace(in.DonorName)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.Location = strings.TrimSpace(in.Location)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	lat, lng, err := normalizeCoords(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	var exp *time.Time
	if in.ExpiryTime != nil {
		t := in.ExpiryTime.UTC()
		exp = &t
	}

	now := s.sweeper.Now()
	d, err := s.repo.Create(ctx, actor, &model.Donation{
		ID:            uuid.NewString(),
		DonorID:       actor.ID,
		DonorName:     in.DonorName,
		ContactNumber: in.ContactNumber,
		Name:          in.Name,
		Description:   in.Description,
		Quantity:      qty,
		ExpiryTime:    exp,
		Location:      in.Location,
		Latitude:      lat,
		Longitude:     lng,
		CreatedAt:     now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}

	ctxLogger(ctx, s.opts.Logger).Info().
		Str("event", "donation_created").
		Str("donation_id", d.ID).
		Str("donor_id", actor.ID).
		Send()

	v := s.view.donation(ctx, *d, now)
	return &v, nil
}

func (s *donationService) Get(ctx context.Context, id string) (*DonationView, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view.donation(ctx, *d, s.sweeper.Now())
	return &v, nil
}

// load validates id, fetches the donation and sweeps it.
func (s *donationService) load(ctx context.Context, id string) (*model.Donation, error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	d, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fromStore(err, "donation")
	}
	if _, err := s.sweeper.Sweep(ctx, d); err != nil {
		return nil, fmt.Errorf("sweep donation: %w", err)
	}
	return d, nil
}

func (s *donationService) List(ctx context.Context, q ListQuery) (*DonationListResult, error) {
	switch {
	case q.Limit < 0 || q.Limit > MaxListLimit:
		return nil, invalid("limit", fmt.Sprintf("must be between 1 and %d", MaxListLimit))
	case q.Offset < 0:
		return nil, invalid("offset", "must be zero or positive")
	}
	if q.Limit == 0 {
		q.Limit = DefaultListLimit
	}

	if _, err := s.sweeper.SweepMatching(ctx, repository.ExpiryScope{}); err != nil {
		return nil, fmt.Errorf("sweep donations: %w", err)
	}

	res, err := s.repo.List(ctx, repository.DonationFilter{
		IncludeExpired: q.IncludeExpired,
		IncludeClaimed: q.IncludeClaimed,
		Limit:          q.Limit,
		Offset:         q.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &DonationListResult{
		Items: s.view.donations(ctx, res.Items, s.sweeper.Now()),
		Total: res.Total,
	}, nil
}

func (s *donationService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.Authenticated() {
		return unauthenticated()
	}
	if err := validID("id", id); err != nil {
		return err
	}
	d, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return fromStore(err, "donation")
	}
	if !policy.CanDeleteDonation(actor, d) {
		return forbidden("you do not have permission to delete this donation")
	}
	if err := s.repo.Delete(ctx, d.ID); err != nil {
		return fromStore(err, "donation")
	}

	ctxLogger(ctx, s.opts.Logger).Info().
		Str("event", "donation_deleted").
		Str("donation_id", d.ID).
		Str("actor_id", actor.ID).
		Bool("admin", actor.IsAdmin && actor.ID != d.DonorID).
		Send()

	if s.store != nil {
		for _, img := range d.Images {
			if err := s.store.Delete(ctx, img.StorageKey); err != nil {
				ctxLogger(ctx, s.opts.Logger).Warn().Err(err).
					Str("donation_id", d.ID).
					Str("storage_key", img.StorageKey).
					Msg("image object cleanup failed")
			}
		}
	}
	return nil
}

func (s *donationService) Claim(ctx context.Context, actor model.Actor, id string) (*DonationView, error) {
	if !actor.Authenticated() {
		return nil, unauthenticated()
	}
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanClaim(actor, d) {
		return nil, forbidden("you do not have permission to claim this donation")
	}

	claimed, err := s.claims.apply(ctx, d, &model.ClaimTransition{
		DonationID: d.ID,
		Actor:      actor,
		Via:        model.ClaimDirect,
	})
	if err != nil {
		return nil, err
	}
	claimed.Images = d.Images
	claimed.ThumbnailKey = d.ThumbnailKey

	v := s.view.donation(ctx, *claimed, s.sweeper.Now())
	return &v, nil
}

func (s *donationService) AddImage(ctx context.Context, actor model.Actor, id string, r io.Reader, size int64) (*model.DonationImage, error) {
	if !actor.Authenticated() {
		return nil, unauthenticated()
	}
	if err := validID("id", id); err != nil {
		return nil, err
	}
	if r == nil || size == 0 {
		return nil, invalid("image", "no file was submitted")
	}
	d, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fromStore(err, "donation")
	}
	if !policy.CanAttachImage(actor, d) {
		return nil, forbidden("you do not have permission to add images to this donation")
	}
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, invalid("image", "upload a valid image")
	}

	key := storage.ImageKey(d.ID, mt.Extension())
	obj, err := s.store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), r), storage.PutObjectOptions{
		Size:        size,
		ContentType: mt.String(),
		Metadata:    map[string]string{"donation-id": d.ID, "uploader-id": actor.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	img, err := s.repo.AddImage(ctx, &model.DonationImage{
		ID:          uuid.NewString(),
		DonationID:  d.ID,
		StorageKey:  obj.Key,
		ContentType: mt.String(),
		Size:        obj.Size,
		UploadedAt:  s.sweeper.Now().UTC(),
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", fromStore(err, "donation"))
	}

	out := s.view.image(ctx, *img)
	return &out, nil
}

func (s *donationService) Stats(ctx context.Context, actor model.Actor) (*StatsResult, error) {
	if !actor.Authenticated() {
		return nil, unauthenticated()
	}
	if _, err := s.sweeper.SweepMatching(ctx, repository.ExpiryScope{DonorID: actor.ID}); err != nil {
		return nil, fmt.Errorf("sweep donations: %w", err)
	}
	st, err := s.repo.Stats(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.repo.List(ctx, repository.DonationFilter{
		IncludeExpired: true,
		IncludeClaimed: true,
		DonorID:        actor.ID,
	})
	if err != nil {
		return nil, err
	}
	return &StatsResult{
		DonationStats: st,
		Posts:         s.view.donations(ctx, posts.Items, s.sweeper.Now()),
	}, nil
}
