// Package security provides JWT token utilities
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/zurichjs/conference-go/internal/domain/discount"
)

var ErrInvalidToken = errors.New("invalid token")

// DiscountClaims travel in the HttpOnly discount_code cookie. The discount
// expiry is a plain claim so callers can check it against their own clock.
type DiscountClaims struct {
	Code       string `json:"code"`
	PercentOff int    `json:"percentOff"`
	ExpiresAt  int64  `json:"expiresAt"`
	SessionID  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Discount rebuilds the discount carried by the claims.
func (c *DiscountClaims) Discount() discount.Discount {
	return discount.Discount{
		Code:       c.Code,
		PercentOff: c.PercentOff,
		ExpiresAt:  time.Unix(c.ExpiresAt, 0).UTC(),
	}
}

func hmacKey(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}
}

// SignDiscountToken seals an issued discount for the secure cookie.
func SignDiscountToken(d discount.Discount, sessionID, jwtSecret string, issuedAt time.Time) (string, error) {
	claims := &DiscountClaims{
		Code:       d.Code,
		PercentOff: d.PercentOff,
		ExpiresAt:  d.ExpiresAt.Unix(),
		SessionID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       GenerateULID(),
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign discount token: %w", err)
	}
	return signed, nil
}

// ParseDiscountToken verifies the signature and returns the claims. Time
// claims are left to the caller, which judges expiry against its own clock.
func ParseDiscountToken(tokenString, jwtSecret string) (*DiscountClaims, error) {
	claims := &DiscountClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, hmacKey(jwtSecret), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Code == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, hmacKey(jwtSecret))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// GenerateAdminToken issues the bearer token for the admin endpoints.
func GenerateAdminToken(jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// IsAdminToken reports whether tokenString is a valid, unexpired admin token.
func IsAdminToken(tokenString, jwtSecret string) bool {
	claims, err := ValidateJWT(tokenString, jwtSecret)
	if err != nil {
		return false
	}
	role, _ := claims["role"].(string)
	return role == "admin"
}
