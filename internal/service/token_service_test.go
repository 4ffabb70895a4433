package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-timeline-api/internal/models"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	clock := newFakeClock()
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "recruit-timeline", Expiry: time.Hour})
	svc.now = clock.Now

	token, expires, err := svc.IssueToken("ops-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), expires)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	clock.Advance(2 * time.Hour)
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceRejectsForeignTokens(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "other", Issuer: "recruit-timeline"})
	token, _, err := issuer.IssueToken("ops-1", models.RoleSuperAdmin)
	require.NoError(t, err)

	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "recruit-timeline"})
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer := NewTokenService(TokenConfig{Secret: "other", Issuer: "someone-else"})
	_, err = wrongIssuer.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestTokenServiceIssueValidation(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret"})
	_, _, err := svc.IssueToken(" ", models.RoleAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, _, err = svc.IssueToken("ops", models.UserRole("VIEWER"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, err = NewTokenService(TokenConfig{}).IssueToken("ops", models.RoleAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
