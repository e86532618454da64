package postauth_test

import (
	"net/url"
	"testing"

	"github.com/minato/hireline/internal/domain"
	"github.com/minato/hireline/internal/nav"
	"github.com/minato/hireline/internal/postauth"
	"github.com/minato/hireline/internal/session"
)

type recordingNav struct {
	targets []nav.Target
	params  []url.Values
}

func (r *recordingNav) Navigate(target nav.Target, params url.Values) {
	r.targets = append(r.targets, target)
	r.params = append(r.params, params)
}

func freshOAuthSession() session.Session {
	return session.Resolve(session.RawSession{Claims: &session.Claims{
		UserID:             9,
		Email:              "new@example.com",
		Provider:           domain.AuthProviderGitHub,
		NeedsRoleSelection: true,
	}})
}

func settledSession() session.Session {
	return session.Resolve(session.RawSession{Claims: &session.Claims{
		UserID:   9,
		Email:    "new@example.com",
		Provider: domain.AuthProviderGitHub,
		Role:     domain.RoleCandidate,
	}})
}

func TestRouterRedirectsPendingRoleSelection(t *testing.T) {
	rec := &recordingNav{}
	r := postauth.NewRouter(rec)

	r.Observe(freshOAuthSession())

	if len(rec.targets) != 1 || rec.targets[0] != nav.TargetRoleSelection {
		t.Fatalf("navigations = %v, want one role-selection redirect", rec.targets)
	}
	if got := rec.params[0].Get(postauth.OriginMarker); got != postauth.OriginOAuth {
		t.Fatalf("origin marker = %q, want %q", got, postauth.OriginOAuth)
	}
	if got := rec.params[0].Get("provider"); got != "github" {
		t.Fatalf("provider param = %q, want github", got)
	}
}

func TestRouterDoesNotLoopAfterSelection(t *testing.T) {
	rec := &recordingNav{}
	r := postauth.NewRouter(rec)

	r.Observe(freshOAuthSession())
	r.Observe(settledSession())
	r.Observe(settledSession())

	if len(rec.targets) != 1 {
		t.Fatalf("got %d navigations, want 1", len(rec.targets))
	}
}

func TestRouterIgnoresRepeatedPendingObservations(t *testing.T) {
	rec := &recordingNav{}
	r := postauth.NewRouter(rec)

	r.Observe(freshOAuthSession())
	r.Observe(freshOAuthSession())

	if len(rec.targets) != 1 {
		t.Fatalf("got %d navigations, want 1", len(rec.targets))
	}
}

func TestRouterIgnoresSettledSessions(t *testing.T) {
	rec := &recordingNav{}
	r := postauth.NewRouter(rec)

	r.Observe(session.Session{Status: session.StatusLoading})
	r.Observe(session.Session{Status: session.StatusUnauthenticated})
	r.Observe(settledSession())

	if len(rec.targets) != 0 {
		t.Fatalf("navigations = %v, want none", rec.targets)
	}
}

func TestRouterWatchFollowsFeed(t *testing.T) {
	rec := &recordingNav{}
	r := postauth.NewRouter(rec)

	feed := session.NewFeed()
	cancel := r.Watch(feed)
	defer cancel()

	feed.Set(session.RawSession{Claims: &session.Claims{
		UserID:             9,
		Email:              "new@example.com",
		Provider:           domain.AuthProviderGitHub,
		NeedsRoleSelection: true,
	}})
	feed.Set(session.RawSession{Claims: &session.Claims{
		UserID:   9,
		Email:    "new@example.com",
		Provider: domain.AuthProviderGitHub,
		Role:     domain.RoleCandidate,
	}})

	if len(rec.targets) != 1 || rec.targets[0] != nav.TargetRoleSelection {
		t.Fatalf("navigations = %v, want one role-selection redirect", rec.targets)
	}
}
