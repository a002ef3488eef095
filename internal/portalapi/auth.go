package portalapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"counselportal/internal/metrics"
	"counselportal/internal/session"
)

// RefreshWindow is how close to expiry an access token is refreshed early.
const RefreshWindow = 30 * time.Second

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type accessTokenBody struct {
	AccessToken string `json:"accessToken"`
}

type refreshTokenBody struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshAfter exchanges the refresh token for a new access token. Callers
// pass the token that was rejected; if another goroutine already replaced
// it, the replacement is returned without a second refresh.
func (c *Client) refreshAfter(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if cur, err := c.tokens.AccessToken(ctx); err == nil && cur != "" && cur != stale {
		return cur, nil
	}
	refresh, err := c.tokens.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if refresh == "" {
		metrics.IncTokenRefresh("missing")
		return "", errors.New("no refresh token")
	}
	body, err := c.send(ctx, http.MethodPost, "/auth/refresh-token", nil, refreshTokenBody{RefreshToken: refresh}, false)
	if err != nil {
		metrics.IncTokenRefresh("error")
		return "", err
	}
	var out accessTokenBody
	if err := decode(body, &out); err != nil {
		metrics.IncTokenRefresh("error")
		return "", err
	}
	if out.AccessToken == "" {
		metrics.IncTokenRefresh("error")
		return "", errors.New("refresh response has no access token")
	}
	if err := c.tokens.SetAccessToken(ctx, out.AccessToken); err != nil {
		return "", fmt.Errorf("store refreshed token: %w", err)
	}
	metrics.IncTokenRefresh("ok")
	c.logger.Debug().Msg("access token refreshed")
	return out.AccessToken, nil
}

// Auth runs the sign-in flow against the server and keeps the session in step.
type Auth struct {
	client  *Client
	session *session.Session
}

func NewAuth(client *Client, sess *session.Session) *Auth {
	return &Auth{client: client, session: sess}
}

// Login signs in, stores both tokens and caches the user profile. Accounts
// whose role cannot use the portal are signed out again.
func (a *Auth) Login(ctx context.Context, username, password string) (*session.UserInfo, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	body, err := a.client.send(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Username: username, Password: password}, false)
	if err != nil {
		return nil, err
	}
	var pair tokenPair
	if err := decode(body, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, errors.New("login response has no access token")
	}
	if err := a.session.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return nil, err
	}

	user, err := a.Me(ctx)
	if err != nil {
		_ = a.session.Clear(ctx)
		return nil, err
	}
	if !user.CanUsePortal() {
		_ = a.Logout(ctx)
		return nil, fmt.Errorf("%w: %s", session.ErrForbiddenRole, user.RawRole)
	}
	return user, nil
}

// Me posts the current access token to /auth/me and caches the returned profile.
func (a *Auth) Me(ctx context.Context) (*session.UserInfo, error) {
	tok, err := a.session.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, ErrUnauthorized
	}
	body, err := a.client.send(ctx, http.MethodPost, "/auth/me", nil, accessTokenBody{AccessToken: tok}, false)
	if err != nil {
		return nil, err
	}
	var user session.UserInfo
	if err := decode(body, &user); err != nil {
		return nil, err
	}
	if err := a.session.SetUserInfo(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckAndRefreshToken reports whether the session holds a usable access
// token, refreshing it when it expires within RefreshWindow or when the
// server rejects it. A failed refresh clears the session.
func (a *Auth) CheckAndRefreshToken(ctx context.Context) (bool, error) {
	tok, err := a.session.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	if tok == "" {
		return false, nil
	}
	if !a.session.AccessTokenExpiring(ctx, RefreshWindow) {
		_, err := a.client.send(ctx, http.MethodPost, "/auth/me", nil, accessTokenBody{AccessToken: tok}, false)
		if err == nil {
			return true, nil
		}
		if !IsStatus(err, http.StatusUnauthorized) {
			return false, err
		}
	}
	if _, err := a.client.refreshAfter(ctx, tok); err != nil {
		a.client.logger.Info().Err(err).Msg("refresh rejected, signing out")
		if cerr := a.session.Clear(ctx); cerr != nil {
			return false, cerr
		}
		return false, nil
	}
	return true, nil
}

// Logout tells the server to revoke the token and clears the session even
// when that call fails.
func (a *Auth) Logout(ctx context.Context) error {
	tok, _ := a.session.AccessToken(ctx)
	var callErr error
	if tok != "" {
		_, callErr = a.client.send(ctx, http.MethodPost, "/auth/logout", nil, accessTokenBody{AccessToken: tok}, false)
		if callErr != nil {
			a.client.logger.Warn().Err(callErr).Msg("logout call failed")
		}
	}
	a.client.flushCache(ctx)
	return a.session.Clear(ctx)
}
