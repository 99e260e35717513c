package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds the settings needed to validate tokens
type JWTConfig struct {
	SecretKey string
	Issuer    string
	Audience  string
}

// Claims are the token claims this service cares about
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates bearer tokens
type JWTValidator struct {
	config JWTConfig
}

// NewJWTValidator creates a validator from config
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key is required")
	}
	return &JWTValidator{config: config}, nil
}

// Validate parses and verifies a token string, returning the user context
func (v *JWTValidator) Validate(tokenString string) (*UserContext, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.config.SecretKey), nil
	}, jwt.WithIssuer(v.config.Issuer), jwt.WithAudience(v.config.Audience), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &UserContext{
		UserID:          claims.UserID,
		Email:           claims.Email,
		AuthenticatedAt: time.Now(),
	}, nil
}
