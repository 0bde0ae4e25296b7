package service

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"foodshare/internal/model"
	"foodshare/internal/repository/memory"
	"foodshare/internal/storage"
)

var (
	donorA = model.Actor{ID: "donor-a", Username: "warung-a", Role: model.RoleRestaurant}
	donorB = model.Actor{ID: "donor-b", Username: "warung-b", Role: model.RoleRestaurant}
	ngo    = model.Actor{ID: "ngo-1", Username: "helping-hands", Role: model.RoleNGO}
	admin  = model.Actor{ID: "admin-1", Username: "root", Role: model.RoleOther, IsAdmin: true}
)

var t0 = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeRecorder struct {
	mu      sync.Mutex
	claims  map[model.ClaimVia]int
	expired int64
}

func (r *fakeRecorder) Claimed(via model.ClaimVia) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claims == nil {
		r.claims = map[model.ClaimVia]int{}
	}
	r.claims[via]++
}

func (r *fakeRecorder) Expired(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired += n
}

type fixture struct {
	store     *memory.Store
	donations DonationService
	orders    OrderService
	users     UserService
	rec       *fakeRecorder
}

func newFixture(t *testing.T, objects storage.Storage) *fixture {
	t.Helper()
	store := memory.New()
	rec := &fakeRecorder{}
	opts := Options{
		Logger:   zerolog.Nop(),
		Recorder: rec,
		Now:      func() time.Time { return t0 },
	}
	return &fixture{
		store:     store,
		donations: NewDonationService(store, objects, opts),
		orders:    NewOrderService(store, objects, opts),
		users:     NewUserService(store, opts),
		rec:       rec,
	}
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }
