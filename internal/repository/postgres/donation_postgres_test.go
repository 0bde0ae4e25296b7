package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"foodshare/internal/model"
	"foodshare/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var donationCols = []string{
	"id", "donor_id", "donor_name", "contact_number", "name", "description",
	"quantity", "expiry_time", "location", "latitude", "longitude",
	"is_claimed", "is_expired", "claimed_via", "claimed_at", "created_at",
}

type fixture struct {
	id        string
	donor     string
	expiry    any
	claimed   bool
	expired   bool
	via       any
	claimedAt any
	createdAt time.Time
}

func (f fixture) values() []driver.Value {
	return []driver.Value{
		f.id, f.donor, "Warung Bu Sri", nil, "Nasi kotak", "20 boxes of rice",
		20, f.expiry, "Jl. Merdeka 1", "-6.200000", "106.816666",
		f.claimed, f.expired, f.via, f.claimedAt, f.createdAt,
	}
}

func newMock(t *testing.T) (*DonationPostgres, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewDonationPostgres(db), mock, func() { db.Close() }
}

func TestDonationPostgres_Create(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	ctx := context.Background()

	now := time.Now().UTC()
	donor := model.Actor{ID: "donor-1", Username: "sri", Role: "restaurant"}
	d := &model.Donation{
		ID:        "7f1b8e8e-1111-4c8e-9d7e-3f1e2a1b0c01",
		DonorID:   donor.ID,
		DonorName: "Warung Bu Sri",
		Name:      "Nasi kotak",
		Quantity:  20,
		Latitude:  decimal.NewNullDecimal(decimal.RequireFromString("-6.2")),
		CreatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("donor-1", "sri", "restaurant", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows(donationCols).
		AddRow(fixture{id: d.ID, donor: d.DonorID, createdAt: now}.values()...)
	mock.ExpectQuery("INSERT INTO donations").
		WithArgs(d.ID, d.DonorID, "Warung Bu Sri", nil, "Nasi kotak", "", 20, nil, "", "-6.2", nil, now).
		WillReturnRows(rows)
	mock.ExpectCommit()

	out, err := repo.Create(ctx, donor, d)

	require.NoError(t, err)
	assert.Equal(t, d.ID, out.ID)
	assert.Equal(t, "Warung Bu Sri", out.DonorName)
	assert.Empty(t, out.ContactNumber)
	assert.Nil(t, out.ExpiryTime)
	assert.True(t, out.Latitude.Valid)
	assert.Equal(t, "-6.2", out.Latitude.Decimal.String())
	assert.NotNil(t, out.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_Create_RollsBackOnInsertError(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO donations").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	out, err := repo.Create(context.Background(), model.Actor{ID: "donor-1"}, &model.Donation{ID: "x", DonorID: "donor-1"})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_FindByID(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	ctx := context.Background()

	t.Run("found with images", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour).UTC()
		mock.ExpectQuery("SELECT (.+) FROM donations d WHERE d.id = \\$1").
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", expiry: expiry, via: "order", claimed: true, claimedAt: expiry, createdAt: time.Now()}.values()...))
		mock.ExpectQuery("SELECT (.+) FROM donation_images WHERE donation_id = \\$1 ORDER BY uploaded_at, id").
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "donation_id", "storage_key", "content_type", "size", "uploaded_at"}).
				AddRow("img-1", "d-1", "donations/d-1/a.jpg", "image/jpeg", 10, time.Now()).
				AddRow("img-2", "d-1", "donations/d-1/b.png", "image/png", 20, time.Now()))

		d, err := repo.FindByID(ctx, "d-1")

		require.NoError(t, err)
		assert.Equal(t, "d-1", d.ID)
		require.NotNil(t, d.ExpiryTime)
		assert.True(t, expiry.Equal(*d.ExpiryTime))
		require.NotNil(t, d.ClaimedVia)
		assert.Equal(t, model.ClaimOrder, *d.ClaimedVia)
		assert.Len(t, d.Images, 2)
		assert.Equal(t, "donations/d-1/a.jpg", d.ThumbnailKey)
		assert.Equal(t, "106.816666", d.Longitude.Decimal.StringFixed(6))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM donations d WHERE d.id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		d, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, d)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_List(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	ctx := context.Background()

	listCols := append(append([]string{}, donationCols...), "thumbnail_key")

	t.Run("default filter with paging", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM donations d WHERE").
			WithArgs(false, false, "").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		rows := sqlmock.NewRows(listCols).
			AddRow(append(fixture{id: "d-2", donor: "u", createdAt: time.Now()}.values(), "donations/d-2/x.jpg")...).
			AddRow(append(fixture{id: "d-1", donor: "u", createdAt: time.Now().Add(-time.Hour)}.values(), nil)...)
		mock.ExpectQuery("SELECT (.+) FROM donations d WHERE (.+) ORDER BY d.created_at DESC, d.id DESC LIMIT \\$4 OFFSET \\$5").
			WithArgs(false, false, "", int64(50), 0).
			WillReturnRows(rows)

		res, err := repo.List(ctx, repository.DonationFilter{Limit: 50})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		require.Len(t, res.Items, 2)
		assert.Equal(t, "donations/d-2/x.jpg", res.Items[0].ThumbnailKey)
		assert.Empty(t, res.Items[1].ThumbnailKey)
	})

	t.Run("donor scope without limit", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM donations d WHERE").
			WithArgs(true, true, "donor-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM donations d WHERE").
			WithArgs(true, true, "donor-1", nil, 0).
			WillReturnRows(sqlmock.NewRows(listCols))

		res, err := repo.List(ctx, repository.DonationFilter{IncludeExpired: true, IncludeClaimed: true, DonorID: "donor-1", Offset: -5})

		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.NotNil(t, res.Items)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_Delete(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM donations WHERE id = \\$1").
		WithArgs("d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM donations WHERE id = \\$1").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(ctx, "d-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "gone"), repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_MarkExpired(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec("UPDATE donations SET is_expired = TRUE WHERE id = \\$1 AND is_expired = FALSE").
		WithArgs("d-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE donations SET is_expired = TRUE WHERE id = \\$1 AND is_expired = FALSE").
		WithArgs("d-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkExpired(ctx, "d-1", now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkExpired(ctx, "d-1", now)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_MarkExpiredMatching(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	now := time.Now()

	mock.ExpectExec("UPDATE donations SET is_expired = TRUE WHERE is_expired = FALSE AND expiry_time IS NOT NULL AND expiry_time <= \\$1").
		WithArgs(now, "donor-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkExpiredMatching(context.Background(), repository.ExpiryScope{DonorID: "donor-1"}, now)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_Stats(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COUNT\\(\\*\\) FILTER").
		WithArgs("donor-1").
		WillReturnRows(sqlmock.NewRows([]string{"posted", "claimed", "expired"}).AddRow(5, 2, 1))

	s, err := repo.Stats(context.Background(), "donor-1")

	require.NoError(t, err)
	assert.Equal(t, model.DonationStats{Posted: 5, Claimed: 2, Expired: 1}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_AddImage(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	now := time.Now().UTC()

	img := &model.DonationImage{ID: "img-1", DonationID: "d-1", StorageKey: "donations/d-1/a.jpg", ContentType: "image/jpeg", Size: 42, UploadedAt: now}
	mock.ExpectQuery("INSERT INTO donation_images").
		WithArgs("img-1", "d-1", "donations/d-1/a.jpg", "image/jpeg", int64(42), now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "donation_id", "storage_key", "content_type", "size", "uploaded_at"}).
			AddRow("img-1", "d-1", "donations/d-1/a.jpg", "image/jpeg", 42, now))

	out, err := repo.AddImage(context.Background(), img)

	require.NoError(t, err)
	assert.Equal(t, "donations/d-1/a.jpg", out.StorageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationPostgres_DeleteUser(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM users WHERE id = \\$1").
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.DeleteUser(context.Background(), "u-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
