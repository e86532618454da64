package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/minato/hireline/internal/domain"
	"github.com/minato/hireline/internal/nav"
	"github.com/minato/hireline/internal/postauth"
	"github.com/minato/hireline/internal/service"
	"github.com/minato/hireline/internal/session"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	resolver *nav.Resolver
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, resolver *nav.Resolver) *AuthHandler {
	return &AuthHandler{auth: auth, resolver: resolver}
}

// GoogleRedirect redirects the user to Google's OAuth consent page.
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	state := generateState()
	setStateCookie(c, state)
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GoogleAuthURL(state))
}

// GoogleCallback handles the OAuth callback from Google.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	return h.oauthCallback(c, h.auth.GoogleCallback)
}

// GitHubRedirect redirects the user to GitHub's OAuth consent page.
func (h *AuthHandler) GitHubRedirect(c echo.Context) error {
	state := generateState()
	setStateCookie(c, state)
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GitHubAuthURL(state))
}

// GitHubCallback handles the OAuth callback from GitHub.
func (h *AuthHandler) GitHubCallback(c echo.Context) error {
	return h.oauthCallback(c, h.auth.GitHubCallback)
}

type callbackFunc func(ctx context.Context, code string) (*domain.User, *service.TokenPair, error)

// oauthCallback completes the round trip for either provider. Failures
// never surface as API errors here: the user is sent to the error
// screen with a code it can map. On success the post-auth router
// decides between role selection and the dashboard.
func (h *AuthHandler) oauthCallback(c echo.Context, exchange callbackFunc) error {
	if providerErr := c.QueryParam("error"); providerErr != "" {
		return h.redirectError(c, domain.AuthErrOAuthCallback)
	}

	if err := validateOAuthState(c); err != nil {
		return h.redirectError(c, domain.AuthErrOAuthSignin)
	}

	code := c.QueryParam("code")
	if code == "" {
		return h.redirectError(c, domain.AuthErrOAuthCallback)
	}

	user, tokens, err := exchange(c.Request().Context(), code)
	if err != nil {
		return h.redirectError(c, domain.AuthErrOAuthLoginFailed)
	}

	setTokenCookies(c, tokens)

	// Route the fresh session: role selection when no role is assigned
	// yet, the dashboard otherwise.
	dest := h.resolver.URL(nav.TargetDashboard, nil)
	router := postauth.NewRouter(nav.NavigateFunc(func(target nav.Target, params url.Values) {
		dest = h.resolver.URL(target, params)
	}))
	router.Observe(sessionForUser(user))

	return c.Redirect(http.StatusFound, dest)
}

// ErrorPage renders the authentication error screen data for the code
// carried in the callback URL.
func (h *AuthHandler) ErrorPage(c echo.Context) error {
	return JSON(c, http.StatusOK, postauth.ErrorViewFromQuery(c.QueryParams()))
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	sess := CurrentSession(c)
	if sess.Status != session.StatusAuthenticated {
		return domain.ErrUnauthorized
	}
	return JSON(c, http.StatusOK, sess.User)
}

// Refresh generates a new token pair from a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var body struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	tokens, err := h.auth.RefreshAccessToken(c.Request().Context(), body.RefreshToken)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, tokens)
}

// SelectRole completes role selection for a freshly created OAuth
// identity and returns the updated user with reissued tokens.
func (h *AuthHandler) SelectRole(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var body struct {
		Role string `json:"role" validate:"required,oneof=hr candidate"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	user, tokens, err := h.auth.AssignRole(c.Request().Context(), claims, domain.Role(body.Role))
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": tokens,
	})
}

// Logout ends the server-side session best-effort and sends the user
// to the login screen. A session that is already gone still logs out.
func (h *AuthHandler) Logout(c echo.Context) error {
	if claims, ok := CurrentClaims(c); ok {
		h.auth.Logout(c.Request().Context(), claims.SID)
	}
	clearTokenCookies(c)
	return c.Redirect(http.StatusFound, h.resolver.URL(nav.TargetLogin, nil))
}

func sessionForUser(user *domain.User) session.Session {
	raw := session.RawSession{Claims: &session.Claims{
		UserID:             user.ID,
		Email:              user.Email,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		Role:               user.Role,
		Provider:           user.Provider,
		NeedsRoleSelection: user.NeedsRoleSelection(),
	}}
	if user.AvatarURL != nil {
		raw.Claims.AvatarURL = *user.AvatarURL
	}
	return session.Resolve(raw)
}

func (h *AuthHandler) redirectError(c echo.Context, code domain.AuthErrorCode) error {
	params := url.Values{postauth.ErrorParam: {string(code)}}
	return c.Redirect(http.StatusFound, h.resolver.URL(nav.TargetAuthError, params))
}

func setStateCookie(c echo.Context, state string) {
	c.SetCookie(&http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
}

func setTokenCookies(c echo.Context, tokens *service.TokenPair) {
	c.SetCookie(&http.Cookie{
		Name:     "access_token",
		Value:    tokens.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     "refresh_token",
		Value:    tokens.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookies(c echo.Context) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}

func generateState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "fallback-state"
	}
	return base64.URLEncoding.EncodeToString(b)
}

func validateOAuthState(c echo.Context) error {
	cookie, err := c.Cookie("oauth_state")
	if err != nil {
		return fmt.Errorf("missing oauth_state cookie")
	}

	queryState := c.QueryParam("state")
	if queryState == "" || queryState != cookie.Value {
		return fmt.Errorf("state mismatch")
	}

	return nil
}
