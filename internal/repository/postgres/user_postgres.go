package postgres

import (
	"context"
	"database/sql"

	"foodshare/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertUser mirrors the identity service's view of an actor so that
// donations and orders can reference it with cascading foreign keys.
func upsertUser(ctx context.Context, db execer, a model.Actor) error {
	const q = `
		INSERT INTO users (id, username, role, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, role = EXCLUDED.role, is_admin = EXCLUDED.is_admin
	`
	_, err := db.ExecContext(ctx, q, a.ID, a.Username, a.Role, a.IsAdmin)
	return err
}

// DeleteUser removes a user mirror row; the schema cascades to the user's
// donations and orders.
func (r *DonationPostgres) DeleteUser(ctx context.Context, id string) error {
	const q = `DELETE FROM users WHERE id = $1`
	return expectAffected(r.db.ExecContext(ctx, q, id))
}
