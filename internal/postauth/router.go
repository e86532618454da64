package postauth

import (
	"net/url"
	"sync"

	"github.com/minato/hireline/internal/nav"
	"github.com/minato/hireline/internal/session"
)

// OriginMarker is the query parameter telling the role-selection screen
// the user arrived through OAuth, so it skips password collection.
const OriginMarker = "from"

// OriginOAuth is the marker value for OAuth arrivals.
const OriginOAuth = "oauth"

// Router inspects each session snapshot after an OAuth round trip and
// sends users without an assigned role to the role-selection screen.
// The redirect is edge-triggered: it fires once when the pending state
// is entered and never again until the state is left and re-entered, so
// completing role selection cannot loop back.
type Router struct {
	navigator nav.Navigator

	mu      sync.Mutex
	lastKey string
}

// NewRouter creates a Router.
func NewRouter(navigator nav.Navigator) *Router {
	return &Router{navigator: navigator}
}

// Observe checks the snapshot and redirects when role selection is
// still pending.
func (r *Router) Observe(s session.Session) {
	key := keyFor(s)

	r.mu.Lock()
	changed := key != r.lastKey
	r.lastKey = key
	r.mu.Unlock()

	if !changed || key != keyPending {
		return
	}

	params := url.Values{OriginMarker: {OriginOAuth}}
	if s.User.Provider != "" {
		params.Set("provider", string(s.User.Provider))
	}
	r.navigator.Navigate(nav.TargetRoleSelection, params)
}

// Watch subscribes the router to a session feed and returns the cancel
// func for the subscription.
func (r *Router) Watch(feed *session.Feed) func() {
	return feed.Subscribe(r.Observe)
}

const keyPending = "pending"

func keyFor(s session.Session) string {
	if s.Status == session.StatusAuthenticated && s.User != nil && s.User.NeedsRoleSelection {
		return keyPending
	}
	return string(s.Status)
}
