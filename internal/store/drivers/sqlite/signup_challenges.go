package sqlite

import (
	"context"
	"database/sql"

	"github.com/vidora/vidora/internal/domain"
)

type signupChallengesRepo struct {
	db *sql.DB
}

func (r *signupChallengesRepo) Create(ctx context.Context, ch domain.SignupChallenge) error {
	// Re-requesting an OTP replaces the previous challenge for that email.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO signup_challenges (id, email, secret, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
		     id = excluded.id,
		     secret = excluded.secret,
		     expires_at = excluded.expires_at,
		     created_at = excluded.created_at`,
		ch.ID, ch.Email, ch.Secret, ch.ExpiresAt.UTC(), now())
	return mapErr(err)
}

func (r *signupChallengesRepo) GetByEmail(ctx context.Context, email string) (domain.SignupChallenge, error) {
	var ch domain.SignupChallenge
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, secret, expires_at, created_at
		 FROM signup_challenges
		 WHERE email = ? AND expires_at > ?`, email, now()).
		Scan(&ch.ID, &ch.Email, &ch.Secret, &ch.ExpiresAt, &ch.CreatedAt)
	if err != nil {
		return domain.SignupChallenge{}, mapErr(err)
	}
	return ch, nil
}

func (r *signupChallengesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM signup_challenges WHERE id = ?`, id)
	return err
}

func (r *signupChallengesRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM signup_challenges WHERE expires_at <= ?`, now())
	return err
}
