// Package memory is an in-process DonationRepository used for local runs
// and service tests. A single mutex serializes every operation, which gives
// ApplyClaim the same all-or-nothing behaviour as the Postgres transaction.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"foodshare/internal/model"
	"foodshare/internal/repository"
)

type Store struct {
	mu        sync.Mutex
	users     map[string]model.Actor
	donations map[string]*model.Donation
	images    map[string][]model.DonationImage
	orders    []model.Order
}

func New() *Store {
	return &Store{
		users:     make(map[string]model.Actor),
		donations: make(map[string]*model.Donation),
		images:    make(map[string][]model.DonationImage),
	}
}

var _ repository.DonationRepository = (*Store)(nil)

// PingContext lets the store stand in for a database on the health route.
func (s *Store) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Create(_ context.Context, donor model.Actor, d *model.Donation) (*model.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donations[d.ID]; ok {
		return nil, errors.New("duplicate donation id")
	}
	s.users[donor.ID] = donor

	cp := *d
	cp.Images = nil
	cp.ThumbnailKey = ""
	s.donations[d.ID] = &cp

	out := s.snapshot(&cp)
	out.Images = []model.DonationImage{}
	return &out, nil
}

func (s *Store) FindByID(_ context.Context, id string) (*model.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.snapshot(d)
	out.Images = append([]model.DonationImage{}, s.images[id]...)
	return &out, nil
}

func (s *Store) List(_ context.Context, f repository.DonationFilter) (*repository.PageResult[model.Donation], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]model.Donation, 0, len(s.donations))
	for _, d := range s.donations {
		if !f.IncludeExpired && d.IsExpired {
			continue
		}
		if !f.IncludeClaimed && d.IsClaimed {
			continue
		}
		if f.DonorID != "" && d.DonorID != f.DonorID {
			continue
		}
		matched = append(matched, s.snapshot(d))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if f.Limit > 0 && offset+f.Limit < end {
		end = offset + f.Limit
	}

	return &repository.PageResult[model.Donation]{
		Items: matched[offset:end],
		Total: total,
	}, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donations[id]; !ok {
		return repository.ErrNotFound
	}
	s.deleteDonation(id)
	return nil
}

func (s *Store) MarkExpired(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[id]
	if !ok || !d.ExpiryDue(now) {
		return false, nil
	}
	d.IsExpired = true
	return true, nil
}

func (s *Store) MarkExpiredMatching(_ context.Context, scope repository.ExpiryScope, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, d := range s.donations {
		if scope.DonorID != "" && d.DonorID != scope.DonorID {
			continue
		}
		if d.ExpiryDue(now) {
			d.IsExpired = true
			n++
		}
	}
	return n, nil
}

func (s *Store) ApplyClaim(_ context.Context, t *model.ClaimTransition) (*model.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[t.DonationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if d.ExpiryDue(t.At) {
		d.IsExpired = true
		return nil, repository.ErrExpiredOnClaim
	}
	if d.IsExpired {
		return nil, repository.ErrDonationExpired
	}
	if d.IsClaimed {
		return nil, repository.ErrDonationClaimed
	}

	if t.Via == model.ClaimOrder {
		if t.Order == nil {
			return nil, errors.New("order claim without order")
		}
		s.users[t.Actor.ID] = t.Actor
		o := *t.Order
		s.orders = append(s.orders, o)
		t.Order = &o
	}

	via := t.Via
	at := t.At
	d.IsClaimed = true
	d.ClaimedVia = &via
	d.ClaimedAt = &at

	out := s.snapshot(d)
	return &out, nil
}

func (s *Store) Stats(_ context.Context, donorID string) (model.DonationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st model.DonationStats
	for _, d := range s.donations {
		if d.DonorID != donorID {
			continue
		}
		st.Posted++
		if d.IsClaimed {
			st.Claimed++
		}
		if d.IsExpired {
			st.Expired++
		}
	}
	return st, nil
}

func (s *Store) AddImage(_ context.Context, img *model.DonationImage) (*model.DonationImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.donations[img.DonationID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *img
	s.images[img.DonationID] = append(s.images[img.DonationID], cp)
	return &cp, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID string) ([]repository.OrderWithDonation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]repository.OrderWithDonation, 0)
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		d, ok := s.donations[o.DonationID]
		if !ok {
			continue
		}
		out = append(out, repository.OrderWithDonation{Order: o, Donation: s.snapshot(d)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Order, out[j].Order
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(id) == "" {
		return repository.ErrNotFound
	}
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)

	for did, d := range s.donations {
		if d.DonorID == id {
			s.deleteDonation(did)
		}
	}
	kept := s.orders[:0]
	for _, o := range s.orders {
		if o.UserID != id {
			kept = append(kept, o)
		}
	}
	s.orders = kept
	return nil
}

// deleteDonation cascades to images and orders. Callers hold mu.
func (s *Store) deleteDonation(id string) {
	delete(s.donations, id)
	delete(s.images, id)
	kept := s.orders[:0]
	for _, o := range s.orders {
		if o.DonationID != id {
			kept = append(kept, o)
		}
	}
	s.orders = kept
}

// snapshot copies a donation so callers never alias store state. Callers hold mu.
func (s *Store) snapshot(d *model.Donation) model.Donation {
	out := *d
	if d.ExpiryTime != nil {
		t := *d.ExpiryTime
		out.ExpiryTime = &t
	}
	if d.ClaimedVia != nil {
		v := *d.ClaimedVia
		out.ClaimedVia = &v
	}
	if d.ClaimedAt != nil {
		t := *d.ClaimedAt
		out.ClaimedAt = &t
	}
	if imgs := s.images[d.ID]; len(imgs) > 0 {
		out.ThumbnailKey = imgs[0].StorageKey
	}
	out.Images = nil
	return out
}
