package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"pathos/api/internal/store"
)

func TestCreatePassionProbesSlugSuffixes(t *testing.T) {
	taken := map[string]bool{"art": true, "art-1": true}
	var created store.Passion
	var joinedPassion string
	fs := &fakeStore{
		passionSlugExistsFn: func(_ context.Context, slug string) (bool, error) {
			return taken[slug], nil
		},
		createPassionFn: func(_ context.Context, p store.Passion) (store.Passion, error) {
			created = p
			return p, nil
		},
		joinPassionFn: func(_ context.Context, userID, passionID string) error {
			joinedPassion = passionID
			return nil
		},
	}
	svc := newTestService(fs, nil)

	payload, err := svc.CreatePassion(context.Background(), "usr_1", CreatePassionInput{Name: "Art"})
	if err != nil {
		t.Fatalf("CreatePassion() error = %v", err)
	}
	if created.Slug != "art-2" {
		t.Fatalf("expected slug art-2 after probing, got %q", created.Slug)
	}
	if !created.IsCustom {
		t.Fatal("user-created passions must be custom")
	}
	if joinedPassion != created.ID {
		t.Fatal("creator should be auto-joined to the new passion")
	}
	if payload["slug"] != "art-2" {
		t.Fatalf("payload slug = %v", payload["slug"])
	}
}

func TestCreatePassionSlugRaceSurfacesConflict(t *testing.T) {
	fs := &fakeStore{
		createPassionFn: func(context.Context, store.Passion) (store.Passion, error) {
			// Two requests probed the same free slug; the unique index
			// rejects the loser.
			return store.Passion{}, &pgconn.PgError{Code: "23505"}
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.CreatePassion(context.Background(), "usr_1", CreatePassionInput{Name: "Pottery"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 409 || domainErr.Code != "SLUG_CONFLICT" {
		t.Fatalf("expected 409 SLUG_CONFLICT, got %d %s", domainErr.Status, domainErr.Code)
	}
}

func TestCreatePassionRejectsUnsluggableName(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)

	for _, name := range []string{"", "   ", "!!!"} {
		_, err := svc.CreatePassion(context.Background(), "usr_1", CreatePassionInput{Name: name})
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
			t.Fatalf("name %q: expected VALIDATION_ERROR, got %v", name, err)
		}
	}
}

func TestGetPassionFallsBackToSlug(t *testing.T) {
	fs := &fakeStore{
		getPassionFn: func(context.Context, string) (store.Passion, error) {
			return store.Passion{}, sql.ErrNoRows
		},
		getPassionBySlugFn: func(_ context.Context, slug string) (store.Passion, error) {
			if slug != "woodworking" {
				return store.Passion{}, sql.ErrNoRows
			}
			return store.Passion{ID: "pas_1", Name: "Woodworking", Slug: slug}, nil
		},
	}
	svc := newTestService(fs, nil)

	payload, err := svc.GetPassion(context.Background(), "woodworking")
	if err != nil {
		t.Fatalf("GetPassion() error = %v", err)
	}
	if payload["id"] != "pas_1" {
		t.Fatalf("expected pas_1, got %v", payload["id"])
	}

	_, err = svc.GetPassion(context.Background(), "no-such-passion")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestJoinPassionTwiceConflicts(t *testing.T) {
	fs := &fakeStore{
		hasUserPassionFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(fs, nil)

	_, err := svc.JoinPassion(context.Background(), "usr_1", "pas_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 409 || domainErr.Code != "ALREADY_JOINED" {
		t.Fatalf("expected 409 ALREADY_JOINED, got %d %s", domainErr.Status, domainErr.Code)
	}
}

func TestLeavePassionNotJoinedIsNotFound(t *testing.T) {
	fs := &fakeStore{
		leavePassionFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs, nil)

	err := svc.LeavePassion(context.Background(), "usr_1", "pas_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}
