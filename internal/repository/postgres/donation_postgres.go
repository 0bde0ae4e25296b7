package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodshare/internal/model"
	"foodshare/internal/repository"
)

// DonationPostgres is a PostgreSQL implementation of repository.DonationRepository.
// It uses database/sql with parameterized queries.
type DonationPostgres struct {
	db *sql.DB
}

// NewDonationPostgres creates a new DonationPostgres repository.
func NewDonationPostgres(db *sql.DB) *DonationPostgres {
	return &DonationPostgres{db: db}
}

var _ repository.DonationRepository = (*DonationPostgres)(nil)

const donationColumns = `d.id, d.donor_id, d.donor_name, d.contact_number, d.name, d.description,
	d.quantity, d.expiry_time, d.location, d.latitude, d.longitude,
	d.is_claimed, d.is_expired, d.claimed_via, d.claimed_at, d.created_at`

const thumbnailColumn = `(SELECT i.storage_key FROM donation_images i
	WHERE i.donation_id = d.id ORDER BY i.uploaded_at, i.id LIMIT 1) AS thumbnail_key`

const listWhere = `
	WHERE ($1::boolean OR d.is_expired = FALSE)
	  AND ($2::boolean OR d.is_claimed = FALSE)
	  AND ($3::text = '' OR d.donor_id = $3)`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// donationRow collects the nullable columns of a donation before they are
// folded into the model.
type donationRow struct {
	d         model.Donation
	donorName sql.NullString
	contact   sql.NullString
	via       sql.NullString
	thumb     sql.NullString
	expiry    sql.NullTime
	claimedAt sql.NullTime
}

func (r *donationRow) dest() []any {
	return []any{
		&r.d.ID, &r.d.DonorID, &r.donorName, &r.contact, &r.d.Name, &r.d.Description,
		&r.d.Quantity, &r.expiry, &r.d.Location, &r.d.Latitude, &r.d.Longitude,
		&r.d.IsClaimed, &r.d.IsExpired, &r.via, &r.claimedAt, &r.d.CreatedAt,
	}
}

func (r *donationRow) donation() model.Donation {
	d := r.d
	d.DonorName = r.donorName.String
	d.ContactNumber = r.contact.String
	d.ThumbnailKey = r.thumb.String
	if r.expiry.Valid {
		t := r.expiry.Time
		d.ExpiryTime = &t
	}
	if r.via.Valid {
		v := model.ClaimVia(r.via.String)
		d.ClaimedVia = &v
	}
	if r.claimedAt.Valid {
		t := r.claimedAt.Time
		d.ClaimedAt = &t
	}
	return d
}

func scanDonation(s rowScanner) (*model.Donation, error) {
	var row donationRow
	if err := s.Scan(row.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	d := row.donation()
	return &d, nil
}

// Create inserts a donation and the donor's mirror row in one transaction.
func (r *DonationPostgres) Create(ctx context.Context, donor model.Actor, d *model.Donation) (*model.Donation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertUser(ctx, tx, donor); err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO donations AS d (id, donor_id, donor_name, contact_number, name, description,
			quantity, expiry_time, location, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + donationColumns
	row := tx.QueryRowContext(ctx, q,
		d.ID,
		d.DonorID,
		nullString(d.DonorName),
		nullString(d.ContactNumber),
		d.Name,
		d.Description,
		d.Quantity,
		nullTime(d.ExpiryTime),
		d.Location,
		d.Latitude,
		d.Longitude,
		d.CreatedAt,
	)
	out, err := scanDonation(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out.Images = []model.DonationImage{}
	return out, nil
}

// FindByID fetches a single donation and its images.
func (r *DonationPostgres) FindByID(ctx context.Context, id string) (*model.Donation, error) {
	const q = `SELECT ` + donationColumns + ` FROM donations d WHERE d.id = $1`
	d, err := scanDonation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}

	images, err := r.listImages(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Images = images
	if len(images) > 0 {
		d.ThumbnailKey = images[0].StorageKey
	}
	return d, nil
}

func (r *DonationPostgres) listImages(ctx context.Context, donationID string) ([]model.DonationImage, error) {
	const q = `
		SELECT id, donation_id, storage_key, content_type, size, uploaded_at
		FROM donation_images
		WHERE donation_id = $1
		ORDER BY uploaded_at, id
	`
	rows, err := r.db.QueryContext(ctx, q, donationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]model.DonationImage, 0)
	for rows.Next() {
		var img model.DonationImage
		if err := rows.Scan(&img.ID, &img.DonationID, &img.StorageKey, &img.ContentType, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// List returns donations newest first and the total matching count.
// A non-positive Limit returns every matching row.
func (r *DonationPostgres) List(ctx context.Context, f repository.DonationFilter) (*repository.PageResult[model.Donation], error) {
	const qCount = `SELECT COUNT(*) FROM donations d` + listWhere
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, f.IncludeExpired, f.IncludeClaimed, f.DonorID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `SELECT ` + donationColumns + `, ` + thumbnailColumn + `
		FROM donations d` + listWhere + `
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT $4 OFFSET $5`

	var limit sql.NullInt64
	if f.Limit > 0 {
		limit = sql.NullInt64{Int64: int64(f.Limit), Valid: true}
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, qList, f.IncludeExpired, f.IncludeClaimed, f.DonorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Donation, 0)
	for rows.Next() {
		var row donationRow
		if err := rows.Scan(append(row.dest(), &row.thumb)...); err != nil {
			return nil, err
		}
		items = append(items, row.donation())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Donation]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a donation by ID.
func (r *DonationPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM donations WHERE id = $1`
	return expectAffected(r.db.ExecContext(ctx, q, id))
}

// MarkExpired flags one due donation as expired and touches no other column.
func (r *DonationPostgres) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	const q = `
		UPDATE donations SET is_expired = TRUE
		WHERE id = $1
		  AND is_expired = FALSE
		  AND expiry_time IS NOT NULL
		  AND expiry_time <= $2
	`
	res, err := r.db.ExecContext(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkExpiredMatching flags every due donation in scope in a single statement.
func (r *DonationPostgres) MarkExpiredMatching(ctx context.Context, scope repository.ExpiryScope, now time.Time) (int64, error) {
	const q = `
		UPDATE donations SET is_expired = TRUE
		WHERE is_expired = FALSE
		  AND expiry_time IS NOT NULL
		  AND expiry_time <= $1
		  AND ($2::text = '' OR donor_id = $2)
	`
	res, err := r.db.ExecContext(ctx, q, now, scope.DonorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats counts a donor's donations by state.
func (r *DonationPostgres) Stats(ctx context.Context, donorID string) (model.DonationStats, error) {
	const q = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_claimed),
		       COUNT(*) FILTER (WHERE is_expired)
		FROM donations
		WHERE donor_id = $1
	`
	var s model.DonationStats
	err := r.db.QueryRowContext(ctx, q, donorID).Scan(&s.Posted, &s.Claimed, &s.Expired)
	return s, err
}

// AddImage inserts an image row for a donation.
func (r *DonationPostgres) AddImage(ctx context.Context, img *model.DonationImage) (*model.DonationImage, error) {
	const q = `
		INSERT INTO donation_images (id, donation_id, storage_key, content_type, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, donation_id, storage_key, content_type, size, uploaded_at
	`
	var out model.DonationImage
	err := r.db.QueryRowContext(ctx, q,
		img.ID,
		img.DonationID,
		img.StorageKey,
		img.ContentType,
		img.Size,
		img.UploadedAt,
	).Scan(&out.ID, &out.DonationID, &out.StorageKey, &out.ContentType, &out.Size, &out.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func expectAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
