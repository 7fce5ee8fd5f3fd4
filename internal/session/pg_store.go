package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pathos/api/internal/store"
)

type pgBackend interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// PGStore keeps refresh tokens in the refresh_sessions table. Fallback for
// deployments without Redis.
type PGStore struct {
	db pgBackend
}

func NewPGStore(db pgBackend) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return s.db.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (s *PGStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	user, err := s.db.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrNotFound
	}
	return user, err
}

func (s *PGStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return s.db.RevokeRefreshSession(ctx, tokenHash)
}
