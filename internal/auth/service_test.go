package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeStore is an in-memory UserStore. Tests mutate it between calls to
// prove that verify/refresh always see current data.
type fakeStore struct {
	users map[string]*UserProfile
}

func newFakeStore(users ...*UserProfile) *fakeStore {
	s := &fakeStore{users: make(map[string]*UserProfile)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) FindActiveUserByEmail(_ context.Context, email string) (*UserProfile, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) && u.IsActive {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindUserByID(_ context.Context, id string) (*UserProfile, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

func hrUser(t *testing.T) *UserProfile {
	return &UserProfile{
		ID:           "user-hr-1",
		EmployeeCode: "EMP002",
		Name:         "Rahul Nair",
		Email:        "hr@company.com",
		Department:   "Human Resources",
		Role:         RoleHR,
		HODEmail:     "admin@company.com",
		IsActive:     true,
		PasswordHash: mustHash(t, "correct-horse"),
	}
}

func newTestService(t *testing.T, store UserStore, now *time.Time) *Service {
	t.Helper()
	svc, err := NewService(store, "access-test-secret", "refresh-test-secret",
		WithClock(func() time.Time { return *now }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewServiceValidation(t *testing.T) {
	store := newFakeStore()
	if _, err := NewService(nil, "a", "b"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewService(store, "", "b"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewService(store, "a", ""); err == nil {
		t.Fatal("expected error for empty refresh secret")
	}
	if _, err := NewService(store, "same", "same"); err == nil {
		t.Fatal("expected error for shared secret")
	}
}

func TestAuthenticate(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, "HR@Company.com ", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID || got.Role != RoleHR {
		t.Fatalf("unexpected profile: %+v", got)
	}

	cases := map[string]struct {
		email, password string
	}{
		"wrong password": {"hr@company.com", "wrong"},
		"unknown email":  {"ghost@company.com", "correct-horse"},
		"empty email":    {"", "correct-horse"},
		"empty password": {"hr@company.com", ""},
	}
	for name, tc := range cases {
		if _, err := svc.Authenticate(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
	}
}

func TestAuthenticateInactiveUserFails(t *testing.T) {
	user := hrUser(t)
	user.IsActive = false
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)

	_, err := svc.Authenticate(context.Background(), user.Email, "correct-horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive user must fail with ErrInvalidCredentials, got %v", err)
	}
}

func TestIssueOnLoginAndVerify(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	pair, err := svc.IssueOnLogin(user)
	if err != nil {
		t.Fatalf("IssueOnLogin: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatal("refresh expiry must outlive access expiry")
	}

	got, err := svc.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %+v", got)
	}
	if public := got.Public(); public.PasswordHash != "" {
		t.Fatal("Public() must strip the password hash")
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	pair, err := svc.IssueOnLogin(user)
	if err != nil {
		t.Fatalf("IssueOnLogin: %v", err)
	}

	// Token type confusion must fail even though the token itself is valid:
	// the two tokens are signed with independent secrets and tagged.
	if _, err := svc.VerifyAccess(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, _, _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for access token in refresh, got %v", err)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	pair, err := svc.IssueOnLogin(user)
	if err != nil {
		t.Fatalf("IssueOnLogin: %v", err)
	}

	now = now.Add(14 * time.Minute)
	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("token must be valid before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after 15m, got %v", err)
	}
}

func TestRefreshTokenExpiry(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	pair, err := svc.IssueOnLogin(user)
	if err != nil {
		t.Fatalf("IssueOnLogin: %v", err)
	}

	now = now.Add(7*24*time.Hour - time.Minute)
	if _, _, _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh must succeed before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after 7d, got %v", err)
	}
}

func TestRefreshMintsAccessOnly(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	pair, err := svc.IssueOnLogin(user)
	if err != nil {
		t.Fatalf("IssueOnLogin: %v", err)
	}

	now = now.Add(20 * time.Minute)
	accessToken, exp, got, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user: %+v", got)
	}
	if !exp.After(now) {
		t.Fatalf("unexpected expiry: %v", exp)
	}
	if _, err := svc.VerifyAccess(ctx, accessToken); err != nil {
		t.Fatalf("new access token must verify: %v", err)
	}

	// The original refresh token is not rotated and remains usable.
	if _, _, _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh token must remain valid (no rotation): %v", err)
	}
}

func TestVerifySeesFreshAuthorizationState(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	pair, err := svc.IssueOnLogin(user)
	if err != nil {
		t.Fatalf("IssueOnLogin: %v", err)
	}

	// Demote the user after issuance: claims still say "hr" but verify
	// must return the current role from the store.
	store.users[user.ID].Role = RoleEmployee
	got, err := svc.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if got.Role != RoleEmployee {
		t.Fatalf("expected demoted role, got %s", got.Role)
	}

	// Deactivate: the token is still signed and unexpired, but access ends.
	store.users[user.ID].IsActive = false
	if _, err := svc.VerifyAccess(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for deactivated user, got %v", err)
	}
}

func TestRefreshAfterUserDeleted(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	pair, err := svc.IssueOnLogin(user)
	if err != nil {
		t.Fatalf("IssueOnLogin: %v", err)
	}

	delete(store.users, user.ID)
	if _, _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	user := hrUser(t)
	store := newFakeStore(user)
	now := time.Now()
	svc := newTestService(t, store, &now)
	ctx := context.Background()

	for _, token := range []string{"", "  ", "not.a.jwt", "a.b"} {
		if _, err := svc.VerifyAccess(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}
