package sqlite

import (
	"context"
	"database/sql"

	"github.com/vidora/vidora/internal/domain"
)

type identitiesRepo struct {
	db *sql.DB
}

const identityColumns = `id, email, display_name, password_hash, current_refresh_token, created_at, updated_at`

func (r *identitiesRepo) FindByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

func (r *identitiesRepo) FindByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return scanIdentity(row)
}

func (r *identitiesRepo) Create(ctx context.Context, ident domain.Identity) error {
	ts := now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, display_name, password_hash, current_refresh_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ident.ID,
		ident.Email,
		ident.DisplayName,
		ident.PasswordHash,
		mapOptionalString(ident.CurrentRefreshToken),
		ts,
		ts,
	)
	return mapErr(err)
}

func (r *identitiesRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET current_refresh_token = ?, updated_at = ? WHERE id = ?`,
		mapOptionalString(token), now(), id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapErr(sql.ErrNoRows)
	}
	return nil
}

// SetRefreshTokenIf is the compare-and-swap update backing rotation: the slot
// changes only if it still holds expected. SQLite's IS operator gives the
// NULL-safe equality we need for the empty-slot case.
func (r *identitiesRepo) SetRefreshTokenIf(
	ctx context.Context,
	id string,
	expected, next *string,
) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities
		 SET current_refresh_token = ?, updated_at = ?
		 WHERE id = ? AND current_refresh_token IS ?`,
		mapOptionalString(next), now(), id, mapOptionalString(expected))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *identitiesRepo) ListWithRefreshToken(ctx context.Context) ([]domain.Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE current_refresh_token IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
