package auth_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamber/internal/auth"
	"github.com/chamber/internal/model"
	"github.com/chamber/internal/repository"
)

type stubUserSource struct {
	users map[string]*model.User
}

func (s *stubUserSource) GetByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func newTestVerifier() (*auth.Verifier, *model.User) {
	user := &model.User{ID: "u-1", Username: "alice"}
	source := &stubUserSource{users: map[string]*model.User{"u-1": user}}
	return auth.NewVerifier("test-secret", source), user
}

func TestValidate(t *testing.T) {
	v, user := newTestVerifier()

	token, err := v.Sign(user.ID)
	require.NoError(t, err)

	got, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestValidate_Failures(t *testing.T) {
	v, _ := newTestVerifier()

	_, err := v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, auth.ErrNoCredentials)

	_, err = v.Validate(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	other := auth.NewVerifier("other-secret", &stubUserSource{})
	token, err := other.Sign("u-1")
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// Valid signature but the user does not exist.
	token, err = v.Sign("u-gone")
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticate_HeaderAndQueryFallback(t *testing.T) {
	v, user := newTestVerifier()
	token, err := v.Sign(user.ID)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws/chambers/c1", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	got, err := v.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Browsers cannot set headers on websocket dials.
	r = httptest.NewRequest("GET", "/ws/chambers/c1?token="+token, nil)
	got, err = v.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	r = httptest.NewRequest("GET", "/ws/chambers/c1", nil)
	_, err = v.Authenticate(r)
	assert.ErrorIs(t, err, auth.ErrNoCredentials)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", auth.BearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", auth.BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", auth.BearerToken(r))
}
