package postgres

import (
	"context"
	"database/sql"
	"errors"

	"foodshare/internal/model"
	"foodshare/internal/repository"
)

// ApplyClaim locks the donation row, re-checks its flags and performs the
// claim. For order-backed claims the order insert and the flag update share
// the transaction, so either both persist or neither does.
//
// A donation found due for expiry under the lock is flagged and committed
// before ErrExpiredOnClaim is returned.
func (r *DonationPostgres) ApplyClaim(ctx context.Context, t *model.ClaimTransition) (*model.Donation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const qLock = `SELECT ` + donationColumns + ` FROM donations d WHERE d.id = $1 FOR UPDATE`
	d, err := scanDonation(tx.QueryRowContext(ctx, qLock, t.DonationID))
	if err != nil {
		return nil, err
	}

	if d.ExpiryDue(t.At) {
		const qExpire = `UPDATE donations SET is_expired = TRUE WHERE id = $1`
		if _, err := tx.ExecContext(ctx, qExpire, d.ID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
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
		if err := upsertUser(ctx, tx, t.Actor); err != nil {
			return nil, err
		}
		o, err := insertOrder(ctx, tx, t.Order)
		if err != nil {
			return nil, err
		}
		t.Order = o
	}

	const qClaim = `
		UPDATE donations
		SET is_claimed = TRUE, claimed_via = $2, claimed_at = $3
		WHERE id = $1 AND is_claimed = FALSE AND is_expired = FALSE
	`
	res, err := tx.ExecContext(ctx, qClaim, d.ID, string(t.Via), t.At)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, repository.ErrDonationClaimed
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	via := t.Via
	at := t.At
	d.IsClaimed = true
	d.ClaimedVia = &via
	d.ClaimedAt = &at
	return d, nil
}

const orderColumns = `o.id, o.donation_id, o.user_id, o.confirmation_note, o.latitude, o.longitude, o.created_at`

func insertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) (*model.Order, error) {
	const q = `
		INSERT INTO orders AS o (id, donation_id, user_id, confirmation_note, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + orderColumns
	var out model.Order
	err := tx.QueryRowContext(ctx, q,
		o.ID,
		o.DonationID,
		o.UserID,
		o.ConfirmationNote,
		o.Latitude,
		o.Longitude,
		o.CreatedAt,
	).Scan(&out.ID, &out.DonationID, &out.UserID, &out.ConfirmationNote, &out.Latitude, &out.Longitude, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrdersByUser returns a user's orders newest first with their donations.
func (r *DonationPostgres) ListOrdersByUser(ctx context.Context, userID string) ([]repository.OrderWithDonation, error) {
	const q = `SELECT ` + orderColumns + `, ` + donationColumns + `, ` + thumbnailColumn + `
		FROM orders o
		JOIN donations d ON d.id = o.donation_id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.OrderWithDonation, 0)
	for rows.Next() {
		var (
			o   model.Order
			row donationRow
		)
		dest := []any{&o.ID, &o.DonationID, &o.UserID, &o.ConfirmationNote, &o.Latitude, &o.Longitude, &o.CreatedAt}
		dest = append(dest, row.dest()...)
		dest = append(dest, &row.thumb)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, repository.OrderWithDonation{Order: o, Donation: row.donation()})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
