package guard

import (
	"sync"

	"github.com/minato/hireline/internal/domain"
	"github.com/minato/hireline/internal/nav"
	"github.com/minato/hireline/internal/session"
)

// Decision is the outcome of an access evaluation.
type Decision int

const (
	// DecisionLoading means identity is still resolving: show a neutral
	// loading state and make no access call yet.
	DecisionLoading Decision = iota
	// DecisionRender means the protected content may be shown.
	DecisionRender
	// DecisionRedirect means access is denied and navigation to the
	// accompanying target is required.
	DecisionRedirect
)

// Evaluate decides access for a session against an optional required
// role. Pure; the edge-triggered side effects live on Guard.
func Evaluate(s session.Session, requiredRole domain.Role) (Decision, nav.Target) {
	switch s.Status {
	case session.StatusLoading:
		return DecisionLoading, ""
	case session.StatusAuthenticated:
		if s.User == nil {
			// Inconsistent snapshot; fail closed.
			return DecisionRedirect, nav.TargetLogin
		}
		if requiredRole != domain.RoleUnassigned && s.User.Role != requiredRole {
			return DecisionRedirect, nav.TargetUnauthorized
		}
		return DecisionRender, ""
	default:
		return DecisionRedirect, nav.TargetLogin
	}
}

// Guard gates a protected view. It re-evaluates on every observed
// session snapshot but issues at most one navigation per transition
// into a disallowed state: observing the same denied state again is a
// no-op, and a transition to an allowed state clears the latch so a
// later denial navigates again. Last state wins.
type Guard struct {
	requiredRole domain.Role
	navigator    nav.Navigator

	mu      sync.Mutex
	lastTag string
}

// New creates a Guard. requiredRole may be RoleUnassigned to gate on
// authentication alone.
func New(navigator nav.Navigator, requiredRole domain.Role) *Guard {
	return &Guard{requiredRole: requiredRole, navigator: navigator}
}

// Observe evaluates the snapshot and fires the redirect side effect on
// transitions into a disallowed state.
func (g *Guard) Observe(s session.Session) Decision {
	decision, target := Evaluate(s, g.requiredRole)

	tag := tagFor(decision, target)

	g.mu.Lock()
	changed := tag != g.lastTag
	g.lastTag = tag
	g.mu.Unlock()

	if decision == DecisionRedirect && changed {
		g.navigator.Navigate(target, nil)
	}
	return decision
}

// Watch subscribes the guard to a session feed and returns the cancel
// func for the subscription.
func (g *Guard) Watch(feed *session.Feed) func() {
	return feed.Subscribe(func(s session.Session) {
		g.Observe(s)
	})
}

func tagFor(d Decision, t nav.Target) string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionRedirect:
		return "redirect:" + string(t)
	default:
		return "loading"
	}
}
