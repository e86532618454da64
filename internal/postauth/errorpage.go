package postauth

import (
	"net/url"

	"github.com/minato/hireline/internal/domain"
	"github.com/minato/hireline/internal/nav"
)

// ErrorParam is the query parameter carrying the auth error code.
const ErrorParam = "error"

// ErrorView is the data behind the authentication error screen: a fixed
// human-readable message, plus the raw code for support diagnosis when
// one was actually supplied. The only recovery actions offered are the
// two navigation targets.
type ErrorView struct {
	Message string     `json:"message"`
	Code    string     `json:"code,omitempty"`
	Login   nav.Target `json:"login"`
	Home    nav.Target `json:"home"`
}

// ErrorViewFor builds the view for a raw error code. An empty code is
// the absent case and resolves to the default sentinel; unrecognized
// codes fall back to the default message but still surface the literal
// code.
func ErrorViewFor(code string) ErrorView {
	v := ErrorView{
		Login: nav.TargetLogin,
		Home:  nav.TargetHome,
	}
	if code == "" {
		code = string(domain.AuthErrDefault)
	}
	v.Message = domain.AuthErrorMessage(domain.AuthErrorCode(code))
	if code != string(domain.AuthErrDefault) {
		v.Code = code
	}
	return v
}

// ErrorViewFromQuery extracts the error code from callback query
// parameters and builds the view.
func ErrorViewFromQuery(q url.Values) ErrorView {
	return ErrorViewFor(q.Get(ErrorParam))
}
