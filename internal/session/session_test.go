package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counselportal/internal/events"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("not-the-server-key"))
	require.NoError(t, err)
	return s
}

func TestTokensAndClear(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), nil, nil)

	assert.False(t, s.IsAuthenticated(ctx))
	require.NoError(t, s.SetTokens(ctx, "a1", "r1"))
	require.NoError(t, s.SetUserInfo(ctx, UserInfo{ID: "7", RawRole: "ROLE_CONSULTANT"}))
	require.NoError(t, s.SaveDraft(ctx, "blog", map[string]string{"title": "x"}))
	assert.True(t, s.IsAuthenticated(ctx))

	require.NoError(t, s.SetAccessToken(ctx, "a2"))
	tok, _ := s.AccessToken(ctx)
	assert.Equal(t, "a2", tok)
	ref, _ := s.RefreshToken(ctx)
	assert.Equal(t, "r1", ref)

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.IsAuthenticated(ctx))
	u, err := s.UserInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	var draft map[string]string
	ok, err := s.LoadDraft(ctx, "blog", &draft)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsultantID(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), nil, nil)

	_, err := s.ConsultantID(ctx)
	assert.ErrorIs(t, err, ErrMissingUserID)

	require.NoError(t, s.SetUserInfo(ctx, UserInfo{ID: "  "}))
	_, err = s.ConsultantID(ctx)
	assert.ErrorIs(t, err, ErrMissingUserID)

	var u UserInfo
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"role":"consultant"}`), &u))
	require.NoError(t, s.SetUserInfo(ctx, u))
	id, err := s.ConsultantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestRoles(t *testing.T) {
	cases := map[string]string{
		"ROLE_ADMIN":      RoleAdmin,
		"admin":           RoleAdmin,
		"ROLE_CONSULTANT": RoleConsultant,
		" Manager ":       RoleManager,
		"ROLE_MEMBER":     RoleMember,
		"superuser":       "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeRole(raw), raw)
	}
	assert.False(t, UserInfo{RawRole: "ROLE_MEMBER"}.CanUsePortal())
	assert.True(t, UserInfo{RawRole: "ROLE_STAFF"}.CanUsePortal())
}

func TestRequireRole(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), nil, nil)

	_, err := s.RequireRole(ctx, RoleConsultant)
	assert.ErrorIs(t, err, ErrMissingUserID)

	require.NoError(t, s.SetUserInfo(ctx, UserInfo{ID: "1", RawRole: "ROLE_STAFF"}))
	_, err = s.RequireRole(ctx, RoleConsultant)
	assert.ErrorIs(t, err, ErrForbiddenRole)

	require.NoError(t, s.SetUserInfo(ctx, UserInfo{ID: "1", RawRole: "consultant"}))
	u, err := s.RequireRole(ctx, RoleConsultant)
	require.NoError(t, err)
	assert.Equal(t, UserID("1"), u.ID)
}

func TestUpdateProfilePublishes(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	var got []UserInfo
	bus.Subscribe(events.TopicProfileUpdated, func(e events.Event) error {
		got = append(got, e.Payload.(UserInfo))
		return nil
	})
	s := New(NewMemoryStore(), bus, nil)

	out, err := s.UpdateProfile(ctx, ProfilePatch{})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, got)

	require.NoError(t, s.SetUserInfo(ctx, UserInfo{ID: "7", FullName: "Old", Email: "a@b.c"}))
	name := "Nguyen Van A"
	out, err = s.UpdateProfile(ctx, ProfilePatch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, out.FullName)
	assert.Equal(t, "a@b.c", out.Email)

	require.Len(t, got, 1)
	assert.Equal(t, name, got[0].FullName)

	cached, err := s.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, name, cached.DisplayName())
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStore(), nil, nil)

	type survey struct {
		Title     string   `json:"title"`
		Questions []string `json:"questions"`
	}
	var out survey
	ok, err := s.LoadDraft(ctx, "survey", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	in := survey{Title: "Stress", Questions: []string{"q1", "q2"}}
	require.NoError(t, s.SaveDraft(ctx, "survey", in))
	raw, err := s.store.Get(ctx, "surveyDraft")
	require.NoError(t, err)
	assert.Contains(t, raw, "Stress")

	ok, err = s.LoadDraft(ctx, "surveyDraft", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, s.DeleteDraft(ctx, "survey"))
	ok, _ = s.LoadDraft(ctx, "survey", &out)
	assert.False(t, ok)
}

func TestAccessTokenExpiring(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)
	s := New(NewMemoryStore(), nil, nil).WithClock(func() time.Time { return now })

	assert.False(t, s.AccessTokenExpiring(ctx, 30*time.Second))

	require.NoError(t, s.SetAccessToken(ctx, signed(t, now.Add(10*time.Second))))
	assert.True(t, s.AccessTokenExpiring(ctx, 30*time.Second))

	require.NoError(t, s.SetAccessToken(ctx, signed(t, now.Add(time.Hour))))
	assert.False(t, s.AccessTokenExpiring(ctx, 30*time.Second))

	require.NoError(t, s.SetAccessToken(ctx, "opaque-token"))
	assert.False(t, s.AccessTokenExpiring(ctx, 30*time.Second))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := TokenExpiry(signed(t, exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = TokenExpiry("a.b")
	assert.Error(t, err)
}
