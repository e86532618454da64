package service

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/minato/hireline/internal/domain"
	"github.com/minato/hireline/internal/repository"
)

type fakeUserStore struct {
	nextID int64
	byID   map[int64]*domain.User
	byProv map[string]int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		nextID: 1,
		byID:   make(map[int64]*domain.User),
		byProv: make(map[string]int64),
	}
}

func provKey(p domain.AuthProvider, id string) string {
	return string(p) + "/" + id
}

func (f *fakeUserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) FindByProviderID(_ context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	id, ok := f.byProv[provKey(provider, providerID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeUserStore) Upsert(_ context.Context, user domain.User) (*domain.User, error) {
	key := provKey(user.Provider, user.ProviderID)
	if id, ok := f.byProv[key]; ok {
		existing := f.byID[id]
		existing.Email = user.Email
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.AvatarURL = user.AvatarURL
		cp := *existing
		return &cp, nil
	}

	user.ID = f.nextID
	f.nextID++
	f.byID[user.ID] = &user
	f.byProv[key] = user.ID
	cp := user
	return &cp, nil
}

func (f *fakeUserStore) AssignRole(_ context.Context, id int64, role domain.Role) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *fakeUserStore, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	users := newFakeUserStore()

	svc := NewAuthService(users, repository.NewSessionStore(client), AuthConfig{
		JWTSecret:   "test-secret",
		FrontendURL: "http://localhost:5173",
		SessionTTL:  time.Hour,
	})

	return svc, users, func() {
		client.Close()
		mini.Close()
	}
}

func signInTestUser(t *testing.T, svc *AuthService) (*domain.User, *TokenPair) {
	t.Helper()

	user, pair, err := svc.signIn(context.Background(), domain.User{
		Provider:   domain.AuthProviderGitHub,
		ProviderID: "gh-100",
		Email:      "aoi@example.com",
		FirstName:  "Aoi",
		LastName:   "Tanaka",
	})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return user, pair
}

func TestSignInIssuesPendingRoleTokens(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	user, pair := signInTestUser(t, svc)

	if !user.NeedsRoleSelection() {
		t.Fatal("fresh OAuth identity should need role selection")
	}

	claims, err := svc.ValidateAccess(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("claims user = %d, want %d", claims.UserID, user.ID)
	}
	if !claims.NeedsRoleSelection {
		t.Fatal("claims should carry the role-selection flag")
	}
	if claims.Role != domain.RoleUnassigned {
		t.Fatalf("claims role = %q, want unassigned", claims.Role)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	_, pair := signInTestUser(t, svc)
	ctx := context.Background()

	// Move the clock so the rotated tokens differ in issued-at.
	base := time.Now()
	svc.now = func() time.Time { return base.Add(2 * time.Second) }

	rotated, err := svc.RefreshAccessToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.AccessToken == pair.AccessToken {
		t.Fatal("access token was not rotated")
	}

	if _, err := svc.ValidateAccess(ctx, rotated.AccessToken); err != nil {
		t.Fatalf("rotated access token validation failed: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	_, pair := signInTestUser(t, svc)

	if _, err := svc.RefreshAccessToken(context.Background(), pair.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("access token used as refresh should be unauthorized, got %v", err)
	}
}

func TestAssignRoleClearsSelectionFlag(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	_, pair := signInTestUser(t, svc)
	ctx := context.Background()

	claims, err := svc.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}

	user, newPair, err := svc.AssignRole(ctx, claims, domain.RoleCandidate)
	if err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if user.Role != domain.RoleCandidate {
		t.Fatalf("role = %q, want candidate", user.Role)
	}

	newClaims, err := svc.ValidateAccess(ctx, newPair.AccessToken)
	if err != nil {
		t.Fatalf("validate reissued access: %v", err)
	}
	if newClaims.NeedsRoleSelection {
		t.Fatal("role-selection flag should clear after assignment")
	}
	if newClaims.Role != domain.RoleCandidate {
		t.Fatalf("reissued role = %q, want candidate", newClaims.Role)
	}
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	_, pair := signInTestUser(t, svc)
	ctx := context.Background()

	claims, err := svc.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}

	if _, _, err := svc.AssignRole(ctx, claims, domain.Role("root")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown role should be invalid input, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	_, pair := signInTestUser(t, svc)
	ctx := context.Background()

	claims, err := svc.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access before logout: %v", err)
	}

	svc.Logout(ctx, claims.SID)

	if _, err := svc.ValidateAccess(ctx, pair.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("access token should be unauthorized after logout, got %v", err)
	}
}

func TestLogoutIsBestEffort(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	cleanup() // redis already gone

	// Must not panic or surface the store failure.
	svc.Logout(context.Background(), "no-such-sid")
}

func TestRawSessionFromToken(t *testing.T) {
	svc, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	user, pair := signInTestUser(t, svc)
	ctx := context.Background()

	raw, claims := svc.RawSession(ctx, pair.AccessToken)
	if raw.Claims == nil {
		t.Fatal("valid token should produce claims")
	}
	if raw.Claims.UserID != user.ID || raw.Claims.Email != user.Email {
		t.Fatalf("claims = %+v, want identity of user %d", raw.Claims, user.ID)
	}
	if claims.SID == "" {
		t.Fatal("token claims should carry the session id")
	}

	raw, _ = svc.RawSession(ctx, "garbage")
	if raw.Claims != nil || raw.Loading {
		t.Fatalf("invalid token should produce the empty raw session, got %+v", raw)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		full, fallback, first, last string
	}{
		{"Aoi Tanaka", "aoit", "Aoi", "Tanaka"},
		{"", "aoit", "aoit", ""},
		{"Madonna", "", "Madonna", ""},
		{"Jean Claude Van Damme", "", "Jean", "Damme"},
		{"", "", "", ""},
	}

	for _, tc := range cases {
		first, last := splitName(tc.full, tc.fallback)
		if first != tc.first || last != tc.last {
			t.Fatalf("splitName(%q, %q) = (%q, %q), want (%q, %q)",
				tc.full, tc.fallback, first, last, tc.first, tc.last)
		}
	}
}
