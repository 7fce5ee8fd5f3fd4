package authpw

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"pathos/api/internal/store"
)

type fakeUserStore struct {
	byEmail    map[string]store.User
	byUsername map[string]store.User
	created    []store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail:    map[string]store.User{},
		byUsername: map[string]store.User{},
	}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	u, ok := f.byUsername[strings.ToLower(username)]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, u store.User) (store.User, error) {
	f.byEmail[strings.ToLower(u.Email)] = u
	f.byUsername[strings.ToLower(u.Username)] = u
	f.created = append(f.created, u)
	return u, nil
}

func TestSignUpCreatesUserWithHashedPassword(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	user, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:    "maker@example.com",
		Username: "maker",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}
	if user.Name != "maker" {
		t.Fatalf("expected name to default to username, got %q", user.Name)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "a@b.c", Username: "a", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	req := SignUpRequest{Email: "dup@example.com", Username: "first", Password: "longenough"}
	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	req.Username = "second"
	if _, err := svc.SignUp(context.Background(), req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUpRejectsDuplicateUsername(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "one@example.com", Username: "maker", Password: "longenough"}); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	_, err := svc.SignUp(context.Background(), SignUpRequest{Email: "two@example.com", Username: "maker", Password: "longenough"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestSignInVerifiesPassword(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "maker@example.com", Username: "maker", Password: "correct horse"}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, err := svc.SignIn(context.Background(), "maker@example.com", "correct horse"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "maker@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
