package nav

import "net/url"

// Target is a logical navigation destination. Mapping targets to real
// addresses is a routing concern kept out of the decision components.
type Target string

const (
	TargetLogin         Target = "login"
	TargetUnauthorized  Target = "unauthorized"
	TargetRoleSelection Target = "role_selection"
	TargetHome          Target = "home"
	TargetDashboard     Target = "dashboard"
	TargetAuthError     Target = "auth_error"
)

// Navigator performs a client-side page transition.
type Navigator interface {
	Navigate(target Target, params url.Values)
}

// NavigateFunc adapts a function to the Navigator interface.
type NavigateFunc func(target Target, params url.Values)

func (f NavigateFunc) Navigate(target Target, params url.Values) {
	f(target, params)
}

var targetPaths = map[Target]string{
	TargetLogin:         "/login",
	TargetUnauthorized:  "/unauthorized",
	TargetRoleSelection: "/register",
	TargetHome:          "/",
	TargetDashboard:     "/dashboard",
	TargetAuthError:     "/auth/error",
}

// Resolver maps logical targets to absolute frontend URLs.
type Resolver struct {
	baseURL string
}

// NewResolver creates a Resolver rooted at the frontend base URL.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: baseURL}
}

// URL returns the absolute address for target with params attached.
func (r *Resolver) URL(target Target, params url.Values) string {
	path, ok := targetPaths[target]
	if !ok {
		path = "/"
	}
	u := r.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}
