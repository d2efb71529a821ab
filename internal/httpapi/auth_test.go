package httpapi

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirpos/internal/domain"
	"kasirpos/internal/service"
)

type authenticatorStub struct {
	user domain.User
	err  error
}

func (s authenticatorStub) Authenticate(_ context.Context, username string, _ string) (domain.User, error) {
	if s.err != nil {
		return domain.User{}, s.err
	}
	u := s.user
	u.Username = username
	return u, nil
}

func TestAuthManagerIssuesParseableToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, authenticatorStub{user: domain.User{ID: "2", Role: domain.RoleUser}})

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "kasir", Password: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "kasir", resp.User.Username)

	actor, err := manager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{Username: "kasir", Role: domain.RoleUser}, actor)
}

func TestAuthManagerPassesThroughLoginFailure(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, authenticatorStub{err: service.ErrInvalidCredentials})
	_, err := manager.Login(context.Background(), domain.LoginRequest{Username: "x", Password: "y"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestParseTokenRejectsExpiredToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Minute, authenticatorStub{})
	issued := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	token, err := manager.sign("admin", domain.RoleAdmin, issued.Add(time.Minute))
	require.NoError(t, err)
	_, err = manager.ParseToken(token)
	require.NoError(t, err)

	manager.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = manager.ParseToken(token)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestParseTokenRejectsForeignSignatures(t *testing.T) {
	other := NewAuthManager("another-secret", time.Hour, authenticatorStub{})
	token, err := other.sign("admin", domain.RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)

	manager := NewAuthManager("test-secret", time.Hour, authenticatorStub{})
	_, err = manager.ParseToken(token)
	assert.Error(t, err)

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "admin"},
		Role:             domain.RoleAdmin,
	})
	raw, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = manager.ParseToken(raw)
	assert.Error(t, err)
}
