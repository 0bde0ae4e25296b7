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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockQuery = "SELECT (.+) FROM donations d WHERE d.id = \\$1 FOR UPDATE"

var orderCols = []string{"id", "donation_id", "user_id", "confirmation_note", "latitude", "longitude", "created_at"}

func TestDonationPostgres_ApplyClaim(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(2 * time.Hour)
	past := now.Add(-time.Minute)

	t.Run("direct claim", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", expiry: future, createdAt: now}.values()...))
		mock.ExpectExec("UPDATE donations SET is_claimed = TRUE").
			WithArgs("d-1", "direct", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		d, err := repo.ApplyClaim(context.Background(), &model.ClaimTransition{
			DonationID: "d-1",
			Actor:      model.Actor{ID: "u-1"},
			Via:        model.ClaimDirect,
			At:         now,
		})

		require.NoError(t, err)
		assert.True(t, d.IsClaimed)
		assert.False(t, d.IsExpired)
		require.NotNil(t, d.ClaimedVia)
		assert.Equal(t, model.ClaimDirect, *d.ClaimedVia)
		assert.Equal(t, now, *d.ClaimedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("order claim inserts order in the same transaction", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", createdAt: now}.values()...))
		mock.ExpectExec("INSERT INTO users").
			WithArgs("ngo-1", "helping-hands", "NGO", false).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO orders").
			WithArgs("o-1", "d-1", "ngo-1", "picking up at 5", sqlmock.AnyArg(), sqlmock.AnyArg(), now).
			WillReturnRows(sqlmock.NewRows(orderCols).
				AddRow("o-1", "d-1", "ngo-1", "picking up at 5", nil, nil, now))
		mock.ExpectExec("UPDATE donations SET is_claimed = TRUE").
			WithArgs("d-1", "order", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tr := &model.ClaimTransition{
			DonationID: "d-1",
			Actor:      model.Actor{ID: "ngo-1", Username: "helping-hands", Role: model.RoleNGO},
			Via:        model.ClaimOrder,
			Order: &model.Order{
				ID:               "o-1",
				DonationID:       "d-1",
				UserID:           "ngo-1",
				ConfirmationNote: "picking up at 5",
				CreatedAt:        now,
			},
			At: now,
		}
		d, err := repo.ApplyClaim(context.Background(), tr)

		require.NoError(t, err)
		assert.True(t, d.IsClaimed)
		assert.Equal(t, model.ClaimOrder, *d.ClaimedVia)
		require.NotNil(t, tr.Order)
		assert.Equal(t, "o-1", tr.Order.ID)
		assert.False(t, tr.Order.Latitude.Valid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already claimed", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", claimed: true, via: "direct", claimedAt: past, createdAt: now}.values()...))
		mock.ExpectRollback()

		d, err := repo.ApplyClaim(context.Background(), &model.ClaimTransition{DonationID: "d-1", Via: model.ClaimDirect, At: now})

		assert.ErrorIs(t, err, repository.ErrDonationClaimed)
		assert.Nil(t, d)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already expired", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", expiry: past, expired: true, createdAt: now}.values()...))
		mock.ExpectRollback()

		_, err := repo.ApplyClaim(context.Background(), &model.ClaimTransition{DonationID: "d-1", Via: model.ClaimDirect, At: now})

		assert.ErrorIs(t, err, repository.ErrDonationExpired)
		assert.NotErrorIs(t, err, repository.ErrExpiredOnClaim)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("due for expiry is flagged and committed", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", expiry: past, createdAt: now}.values()...))
		mock.ExpectExec("UPDATE donations SET is_expired = TRUE WHERE id = \\$1").
			WithArgs("d-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := repo.ApplyClaim(context.Background(), &model.ClaimTransition{DonationID: "d-1", Via: model.ClaimDirect, At: now})

		assert.ErrorIs(t, err, repository.ErrDonationExpired)
		assert.ErrorIs(t, err, repository.ErrExpiredOnClaim)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race on the conditional update", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", createdAt: now}.values()...))
		mock.ExpectExec("UPDATE donations SET is_claimed = TRUE").
			WithArgs("d-1", "direct", now).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.ApplyClaim(context.Background(), &model.ClaimTransition{DonationID: "d-1", Via: model.ClaimDirect, At: now})

		assert.ErrorIs(t, err, repository.ErrDonationClaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("order insert failure rolls back", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("d-1").
			WillReturnRows(sqlmock.NewRows(donationCols).
				AddRow(fixture{id: "d-1", donor: "donor-1", createdAt: now}.values()...))
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO orders").WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, err := repo.ApplyClaim(context.Background(), &model.ClaimTransition{
			DonationID: "d-1",
			Actor:      model.Actor{ID: "ngo-1"},
			Via:        model.ClaimOrder,
			Order:      &model.Order{ID: "o-1", DonationID: "d-1", UserID: "ngo-1", ConfirmationNote: "x", CreatedAt: now},
			At:         now,
		})

		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.ApplyClaim(context.Background(), &model.ClaimTransition{DonationID: "missing", Via: model.ClaimDirect, At: now})

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDonationPostgres_ListOrdersByUser(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	now := time.Now().UTC()

	cols := append(append(append([]string{}, orderCols...), donationCols...), "thumbnail_key")
	row := append([]driver.Value{"o-1", "d-1", "ngo-1", "note", "-6.2", "106.8", now},
		fixture{id: "d-1", donor: "donor-1", claimed: true, via: "order", claimedAt: now, createdAt: now}.values()...)
	row = append(row, "donations/d-1/a.jpg")

	mock.ExpectQuery("SELECT (.+) FROM orders o JOIN donations d ON d.id = o.donation_id WHERE o.user_id = \\$1").
		WithArgs("ngo-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row...))

	out, err := repo.ListOrdersByUser(context.Background(), "ngo-1")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "o-1", out[0].Order.ID)
	assert.Equal(t, "-6.2", out[0].Order.Latitude.Decimal.String())
	assert.Equal(t, "d-1", out[0].Donation.ID)
	assert.True(t, out[0].Donation.IsClaimed)
	assert.Equal(t, "donations/d-1/a.jpg", out[0].Donation.ThumbnailKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
