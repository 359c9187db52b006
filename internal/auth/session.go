package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims binds a customer device to exactly one table for the
// duration of a visit. The token is held client-side only; nothing is
// persisted server-side, so re-scanning simply mints a fresh binding.
type SessionClaims struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	TableID     uuid.UUID `json:"table_id"`
	TableNumber int32     `json:"table_number"`
	jwt.RegisteredClaims
}

// Table sessions outlive staff tokens: a dinner can easily run past an hour.
const sessionTTL = 4 * time.Hour

func GenerateSessionToken(secret string, tenantID, tableID uuid.UUID, tableNumber int32) (string, error) {
	claims := SessionClaims{
		TenantID:    tenantID,
		TableID:     tableID,
		TableNumber: tableNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateSessionToken(secret, tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}
