package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505). Slug and email inserts race against the
// unique indexes rather than locking, so callers classify the loser here.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, name, email, password_hash, bio)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, u.ID, u.Username, u.Name, u.Email, u.PasswordHash, u.Bio).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

const userColumns = `id, username, name, email, password_hash, bio, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username)=LOWER($1)`, username))
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, userID string, name, bio string) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE users SET name=$2, bio=$3, updated_at=NOW() WHERE id=$1
	`, userID, name, bio).Err()
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return s.GetUserByID(ctx, userID)
}

const passionColumns = `id, name, slug, description, parent_id, icon, color, is_custom, created_at`

func scanPassion(scan func(dest ...any) error) (Passion, error) {
	var p Passion
	err := scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.ParentID, &p.Icon, &p.Color, &p.IsCustom, &p.CreatedAt)
	if err != nil {
		return Passion{}, err
	}
	return p, nil
}

func (s *PostgresStore) CreatePassion(ctx context.Context, p Passion) (Passion, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO passions (id, name, slug, description, parent_id, icon, color, is_custom)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, p.ID, p.Name, p.Slug, p.Description, p.ParentID, p.Icon, p.Color, p.IsCustom).Scan(&p.CreatedAt)
	if err != nil {
		return Passion{}, fmt.Errorf("insert passion: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPassion(ctx context.Context, passionID string) (Passion, error) {
	return scanPassion(s.db.QueryRowContext(ctx, `SELECT `+passionColumns+` FROM passions WHERE id=$1`, passionID).Scan)
}

func (s *PostgresStore) GetPassionBySlug(ctx context.Context, slug string) (Passion, error) {
	return scanPassion(s.db.QueryRowContext(ctx, `SELECT `+passionColumns+` FROM passions WHERE slug=$1`, slug).Scan)
}

func (s *PostgresStore) PassionSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM passions WHERE slug=$1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check passion slug: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListPassions(ctx context.Context) ([]Passion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+passionColumns+`
		FROM passions
		WHERE is_custom = FALSE
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list passions: %w", err)
	}
	defer rows.Close()

	items := make([]Passion, 0)
	for rows.Next() {
		p, err := scanPassion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan passion: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PostgresStore) JoinPassion(ctx context.Context, userID, passionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_passions (user_id, passion_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, passion_id) DO NOTHING
	`, userID, passionID)
	if err != nil {
		return fmt.Errorf("join passion: %w", err)
	}
	return nil
}

func (s *PostgresStore) LeavePassion(ctx context.Context, userID, passionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM user_passions WHERE user_id=$1 AND passion_id=$2
	`, userID, passionID)
	if err != nil {
		return false, fmt.Errorf("leave passion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("leave passion result: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) HasUserPassion(ctx context.Context, userID, passionID string) (bool, error) {
	var joined bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_passions WHERE user_id=$1 AND passion_id=$2)
	`, userID, passionID).Scan(&joined)
	if err != nil {
		return false, fmt.Errorf("check user passion: %w", err)
	}
	return joined, nil
}

func (s *PostgresStore) ListUserPassions(ctx context.Context, userID string) ([]Passion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.slug, p.description, p.parent_id, p.icon, p.color, p.is_custom, p.created_at
		FROM user_passions up
		JOIN passions p ON p.id = up.passion_id
		WHERE up.user_id = $1
		ORDER BY up.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user passions: %w", err)
	}
	defer rows.Close()

	items := make([]Passion, 0)
	for rows.Next() {
		p, err := scanPassion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan user passion: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.username, u.name, u.email, u.password_hash, u.bio, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var u User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.Bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
