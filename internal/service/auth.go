package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/minato/hireline/internal/domain"
	"github.com/minato/hireline/internal/repository"
	"github.com/minato/hireline/internal/session"
)

// UserStore defines the user data access interface consumed by AuthService.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByProviderID(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error)
	Upsert(ctx context.Context, user domain.User) (*domain.User, error)
	AssignRole(ctx context.Context, id int64, role domain.Role) (*domain.User, error)
}

// SessionKeeper defines the server-side session store consumed by AuthService.
type SessionKeeper interface {
	Create(ctx context.Context, rec repository.SessionRecord) error
	Find(ctx context.Context, sid string) (repository.SessionRecord, error)
	Extend(ctx context.Context, sid string, expiresAt time.Time) error
	SetRole(ctx context.Context, sid string, role domain.Role) error
	Destroy(ctx context.Context, sid string) error
}

// AuthConfig holds OAuth and token configuration.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	JWTSecret          string
	FrontendURL        string
	SessionTTL         time.Duration
}

const accessTTL = 15 * time.Minute

// AuthService handles authentication logic.
type AuthService struct {
	users      UserStore
	sessions   SessionKeeper
	jwtSecret  []byte
	sessionTTL time.Duration
	google     *oauth2.Config
	github     *oauth2.Config
	now        func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, sessions SessionKeeper, cfg AuthConfig) *AuthService {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwtSecret:  []byte(cfg.JWTSecret),
		sessionTTL: ttl,
		google: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     googleOAuth.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.FrontendURL + "/auth/google/callback",
		},
		github: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"user:email"},
			RedirectURL:  cfg.FrontendURL + "/auth/github/callback",
		},
		now: time.Now,
	}
}

// GoogleAuthURL returns the Google OAuth authorization URL.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.google.AuthCodeURL(state)
}

// GitHubAuthURL returns the GitHub OAuth authorization URL.
func (s *AuthService) GitHubAuthURL(state string) string {
	return s.github.AuthCodeURL(state)
}

// TokenPair holds an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenClaims is the validated identity carried by an access token.
type TokenClaims struct {
	UserID             int64
	SID                string
	Role               domain.Role
	NeedsRoleSelection bool
	ExpiresAt          time.Time
}

type jwtClaims struct {
	SID  string `json:"sid"`
	Role string `json:"role"`
	NRS  bool   `json:"nrs"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// GoogleCallback exchanges the authorization code, signs the user in
// and returns their profile with a fresh token pair.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*domain.User, *TokenPair, error) {
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("google token exchange: %w", err)
	}

	userInfo, err := fetchGoogleUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch google user info: %w", err)
	}

	return s.signIn(ctx, domain.User{
		Provider:   domain.AuthProviderGoogle,
		ProviderID: userInfo.ID,
		Email:      userInfo.Email,
		FirstName:  userInfo.GivenName,
		LastName:   userInfo.FamilyName,
		AvatarURL:  strPtr(userInfo.Picture),
	})
}

// GitHubCallback exchanges the authorization code, signs the user in
// and returns their profile with a fresh token pair.
func (s *AuthService) GitHubCallback(ctx context.Context, code string) (*domain.User, *TokenPair, error) {
	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("github token exchange: %w", err)
	}

	userInfo, err := fetchGitHubUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch github user info: %w", err)
	}

	first, last := splitName(userInfo.Name, userInfo.Login)
	return s.signIn(ctx, domain.User{
		Provider:   domain.AuthProviderGitHub,
		ProviderID: strconv.FormatInt(userInfo.ID, 10),
		Email:      userInfo.Email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  strPtr(userInfo.AvatarURL),
	})
}

// signIn upserts the OAuth profile, opens a server-side session and
// issues a token pair. A brand-new identity comes back with an
// unassigned role, which is what sends it through role selection.
func (s *AuthService) signIn(ctx context.Context, profile domain.User) (*domain.User, *TokenPair, error) {
	user, err := s.users.Upsert(ctx, profile)
	if err != nil {
		return nil, nil, fmt.Errorf("upsert %s user: %w", profile.Provider, err)
	}

	sid := uuid.NewString()
	expiresAt := s.now().Add(s.sessionTTL)
	if err := s.sessions.Create(ctx, repository.SessionRecord{
		SID:       sid,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	pair, err := s.generateTokenPair(user, sid, expiresAt)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// ValidateAccess parses an access token and checks that its session is
// still alive server-side.
func (s *AuthService) ValidateAccess(ctx context.Context, tokenString string) (TokenClaims, error) {
	claims, err := s.parseToken(tokenString, "access")
	if err != nil {
		return TokenClaims{}, err
	}

	if _, err := s.sessions.Find(ctx, claims.SID); err != nil {
		return TokenClaims{}, domain.ErrUnauthorized
	}

	return claims, nil
}

// RawSession projects a bearer token into the provider-shaped session
// input consumed by the resolver, along with the validated token
// claims. Any validation failure yields the empty (unauthenticated)
// raw session rather than an error.
func (s *AuthService) RawSession(ctx context.Context, tokenString string) (session.RawSession, TokenClaims) {
	claims, err := s.ValidateAccess(ctx, tokenString)
	if err != nil {
		return session.RawSession{}, TokenClaims{}
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return session.RawSession{}, TokenClaims{}
	}

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
	return raw, claims
}

// RefreshAccessToken rotates a token pair. The refresh token is only
// honored while its server-side session is alive; rotation extends the
// session.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}

	rec, err := s.sessions.Find(ctx, claims.SID)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user for refresh: %w", err)
	}

	expiresAt := s.now().Add(s.sessionTTL)
	if err := s.sessions.Extend(ctx, rec.SID, expiresAt); err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}

	return s.generateTokenPair(user, rec.SID, expiresAt)
}

// AssignRole completes role selection for the user behind the given
// claims and reissues tokens so the new role lands in the claims bag.
func (s *AuthService) AssignRole(ctx context.Context, claims TokenClaims, role domain.Role) (*domain.User, *TokenPair, error) {
	if !domain.KnownRole(role) {
		return nil, nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	user, err := s.users.AssignRole(ctx, claims.UserID, role)
	if err != nil {
		return nil, nil, fmt.Errorf("assign role: %w", err)
	}

	if err := s.sessions.SetRole(ctx, claims.SID, role); err != nil {
		return nil, nil, fmt.Errorf("update session role: %w", err)
	}

	rec, err := s.sessions.Find(ctx, claims.SID)
	if err != nil {
		return nil, nil, domain.ErrUnauthorized
	}

	pair, err := s.generateTokenPair(user, claims.SID, rec.ExpiresAt)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Logout destroys the server-side session. Best effort: a store failure
// is logged and swallowed so the user always leaves the authenticated
// area.
func (s *AuthService) Logout(ctx context.Context, sid string) {
	if err := s.sessions.Destroy(ctx, sid); err != nil {
		slog.Warn("logout session destroy failed", "sid", sid, "error", err)
	}
}

func (s *AuthService) parseToken(tokenString, wantType string) (TokenClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid {
		return TokenClaims{}, domain.ErrUnauthorized
	}

	if claims.Type != wantType || claims.SID == "" || claims.ExpiresAt == nil {
		return TokenClaims{}, domain.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return TokenClaims{}, domain.ErrUnauthorized
	}

	return TokenClaims{
		UserID:             userID,
		SID:                claims.SID,
		Role:               domain.Role(claims.Role),
		NeedsRoleSelection: claims.NRS,
		ExpiresAt:          claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) generateTokenPair(user *domain.User, sid string, sessionExpiry time.Time) (*TokenPair, error) {
	now := s.now().UTC()

	accessStr, err := s.signToken(user, sid, "access", now, now.Add(accessTTL))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshStr, err := s.signToken(user, sid, "refresh", now, sessionExpiry)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
	}, nil
}

func (s *AuthService) signToken(user *domain.User, sid, typ string, now, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		SID:  sid,
		Role: string(user.Role),
		NRS:  user.NeedsRoleSelection(),
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token.SignedString(s.jwtSecret)
}

func splitName(fullName, fallback string) (first, last string) {
	name := fullName
	if name == "" {
		name = fallback
	}
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}

type googleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func fetchGoogleUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

type githubUserInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func fetchGitHubUserInfo(ctx context.Context, accessToken string) (*githubUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://api.github.com/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user info returned status %d", resp.StatusCode)
	}

	var info githubUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	if info.Email == "" {
		email, err := fetchGitHubPrimaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		info.Email = email
	}

	return &info, nil
}

type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

func fetchGitHubPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://api.github.com/user/emails", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch emails: %w", err)
	}
	defer resp.Body.Close()

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("decode emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, nil
		}
	}

	if len(emails) > 0 {
		return emails[0].Email, nil
	}

	return "", fmt.Errorf("no email found for github user")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
