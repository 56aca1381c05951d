package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/salonhq/booking-api/internal/model"
)

// Claims carries the identity fields the booking engine needs for
// authorization decisions. Tokens are issued by the external identity
// provider; this package only validates them.
type Claims struct {
	UserID   uuid.UUID  `json:"user_id"`
	Role     model.Role `json:"role"`
	VendorID *uuid.UUID `json:"vendor_id,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret      []byte
	expiryHours int
}

func NewTokenService(secret string, expiryHours int) *TokenService {
	return &TokenService{secret: []byte(secret), expiryHours: expiryHours}
}

// ValidateToken parses and verifies a bearer token and returns the actor claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if !claims.Role.Valid() {
		return nil, fmt.Errorf("unknown role in token: %s", claims.Role)
	}

	return claims, nil
}

// GenerateToken issues a token for the given actor. Used by tests and
// local development; production tokens come from the identity provider.
func (s *TokenService) GenerateToken(userID uuid.UUID, role model.Role, vendorID *uuid.UUID) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Role:     role,
		VendorID: vendorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expiryHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
