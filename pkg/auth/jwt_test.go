package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonhq/booking-api/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", 1)
	userID := uuid.New()
	vendorID := uuid.New()

	token, err := svc.GenerateToken(userID, model.RoleVendorOwner, &vendorID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, model.RoleVendorOwner, claims.Role)
	require.NotNil(t, claims.VendorID)
	assert.Equal(t, vendorID, *claims.VendorID)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", 1).GenerateToken(uuid.New(), model.RoleCustomer, nil)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", 1).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := NewTokenService("secret", 1).ValidateToken("not.a.token")
	assert.Error(t, err)
}
