package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"counselportal/internal/events"
)

// Keys used in the Store.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserInfo     = "userInfo"
	draftSuffix     = "Draft"
)

// Session is the signed-in state shared by the API client and the domain
// services. It is safe for concurrent use as long as the Store is.
type Session struct {
	store  Store
	bus    *events.Bus
	logger zerolog.Logger
	now    func() time.Time
}

func New(store Store, bus *events.Bus, logger *zerolog.Logger) *Session {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "session").Logger()
	}
	return &Session{store: store, bus: bus, logger: l, now: time.Now}
}

// WithClock overrides the time source used for expiry checks.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (s *Session) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAccessToken)
}

func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

// IsAuthenticated is true when an access token is stored.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	tok, err := s.AccessToken(ctx)
	return err == nil && tok != ""
}

func (s *Session) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.store.Set(ctx, KeyAccessToken, access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if refresh == "" {
		return nil
	}
	if err := s.store.Set(ctx, KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *Session) SetAccessToken(ctx context.Context, access string) error {
	return s.store.Set(ctx, KeyAccessToken, access)
}

// AccessTokenExpiring reports whether the stored token expires within window.
func (s *Session) AccessTokenExpiring(ctx context.Context, window time.Duration) bool {
	tok, err := s.AccessToken(ctx)
	if err != nil || tok == "" {
		return false
	}
	return ExpiresWithin(tok, s.now(), window)
}

// Clear drops tokens and cached user info. Drafts survive.
func (s *Session) Clear(ctx context.Context) error {
	var errs []error
	for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyUserInfo} {
		if err := s.store.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	s.logger.Debug().Msg("session cleared")
	return errors.Join(errs...)
}

// UserInfo returns the cached profile or nil when none is stored.
func (s *Session) UserInfo(ctx context.Context) (*UserInfo, error) {
	raw, err := s.get(ctx, KeyUserInfo)
	if err != nil || raw == "" {
		return nil, err
	}
	var u UserInfo
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn().Err(err).Msg("cached user info is unreadable")
		return nil, nil
	}
	return &u, nil
}

func (s *Session) putUserInfo(ctx context.Context, u UserInfo) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, KeyUserInfo, string(raw))
}

// SetUserInfo caches u and publishes TopicUserInfoUpdated.
func (s *Session) SetUserInfo(ctx context.Context, u UserInfo) error {
	if err := s.putUserInfo(ctx, u); err != nil {
		return fmt.Errorf("store user info: %w", err)
	}
	s.publish(events.TopicUserInfoUpdated, u)
	return nil
}

// UpdateProfile merges patch into the cached profile and publishes
// TopicProfileUpdated with the merged result. Without a cached profile it
// is a no-op.
func (s *Session) UpdateProfile(ctx context.Context, patch ProfilePatch) (*UserInfo, error) {
	cur, err := s.UserInfo(ctx)
	if err != nil || cur == nil {
		return nil, err
	}
	merged := patch.apply(*cur)
	if err := s.putUserInfo(ctx, merged); err != nil {
		return nil, fmt.Errorf("store user info: %w", err)
	}
	s.publish(events.TopicProfileUpdated, merged)
	return &merged, nil
}

func (s *Session) publish(topic string, u UserInfo) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(events.Event{Type: topic, Payload: u}); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("subscriber failed")
	}
}

// ConsultantID returns the signed-in user id or ErrMissingUserID.
func (s *Session) ConsultantID(ctx context.Context) (string, error) {
	u, err := s.UserInfo(ctx)
	if err != nil {
		return "", err
	}
	if u == nil || strings.TrimSpace(string(u.ID)) == "" {
		return "", ErrMissingUserID
	}
	return string(u.ID), nil
}

// RequireRole checks the cached role against want.
func (s *Session) RequireRole(ctx context.Context, want string) (*UserInfo, error) {
	u, err := s.UserInfo(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrMissingUserID
	}
	if u.Role() != want {
		return u, fmt.Errorf("%w: %s", ErrForbiddenRole, u.RawRole)
	}
	return u, nil
}

func draftKey(feature string) string {
	return strings.TrimSuffix(strings.TrimSpace(feature), draftSuffix) + draftSuffix
}

// SaveDraft stores an unsaved form under "<feature>Draft".
func (s *Session) SaveDraft(ctx context.Context, feature string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", feature, err)
	}
	return s.store.Set(ctx, draftKey(feature), string(raw))
}

// LoadDraft decodes a saved draft into out. It returns false when none exists.
func (s *Session) LoadDraft(ctx context.Context, feature string, out any) (bool, error) {
	raw, err := s.get(ctx, draftKey(feature))
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode draft %s: %w", feature, err)
	}
	return true, nil
}

func (s *Session) DeleteDraft(ctx context.Context, feature string) error {
	return s.store.Delete(ctx, draftKey(feature))
}
