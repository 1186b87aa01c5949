// Package auth issues and validates gateway access tokens. Clients exchange
// client credentials for a short-lived HS256 JWT at the token endpoint and
// present it as a Bearer token on API routes.
package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "consilium-orchestrator"

// Claims are the JWT claims for gateway access tokens.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

// TokenResponse is the token endpoint reply, OAuth2 client-credentials shaped.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// JWTManager signs and validates access tokens.
type JWTManager struct {
	signingKey []byte
	tokenTTL   time.Duration
	clients    map[string]string
}

// NewJWTManager builds a manager from the signing key, token lifetime, and the
// registered client_id to client_secret table.
func NewJWTManager(signingKey string, tokenTTL time.Duration, clients map[string]string) *JWTManager {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &JWTManager{
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		clients:    clients,
	}
}

// ExchangeCredentials validates client credentials and mints an access token.
func (j *JWTManager) ExchangeCredentials(clientID, clientSecret string) (*TokenResponse, error) {
	expected, ok := j.clients[clientID]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(clientSecret)) != 1 {
		return nil, fmt.Errorf("invalid client credentials")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		ClientID: clientID,
		Scopes:   []string{"deliberate", "conversations"},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.signingKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(j.tokenTTL.Seconds()),
	}, nil
}

// ValidateToken parses and validates a bearer token, returning its claims.
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Issuer != issuer {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	return claims, nil
}
