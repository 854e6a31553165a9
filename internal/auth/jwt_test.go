package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("tenant-secret", "admin-secret", 1)
	userID, tenantID := uuid.New(), uuid.New()

	token, err := svc.GenerateTenant(userID, tenantID, "owner@acme.test")
	require.NoError(t, err)

	claims, err := svc.Validate(token, ScopeTenant)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, ScopeTenant, claims.Scope)
}

func TestNamespacesAreNotInterchangeable(t *testing.T) {
	svc := NewJWTService("tenant-secret", "admin-secret", 1)

	tenantToken, err := svc.GenerateTenant(uuid.New(), uuid.New(), "member@acme.test")
	require.NoError(t, err)
	adminToken, err := svc.GenerateSuperAdmin(uuid.New(), "ops@expensehub.test")
	require.NoError(t, err)

	_, err = svc.Validate(tenantToken, ScopeSuperAdmin)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Validate(adminToken, ScopeTenant)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSameSecretStillRejectsWrongScope(t *testing.T) {
	// Even with identical secrets the scope claim must gate validation.
	svc := NewJWTService("shared", "shared", 1)

	tenantToken, err := svc.GenerateTenant(uuid.New(), uuid.New(), "member@acme.test")
	require.NoError(t, err)

	_, err = svc.Validate(tenantToken, ScopeSuperAdmin)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredToken(t *testing.T) {
	svc := NewJWTService("tenant-secret", "admin-secret", 0)

	token, err := svc.GenerateTenant(uuid.New(), uuid.New(), "member@acme.test")
	require.NoError(t, err)

	// Zero expire hours means the token is already past ExpiresAt.
	time.Sleep(10 * time.Millisecond)
	_, err = svc.Validate(token, ScopeTenant)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestGarbageToken(t *testing.T) {
	svc := NewJWTService("tenant-secret", "admin-secret", 1)
	_, err := svc.Validate("not-a-jwt", ScopeTenant)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
