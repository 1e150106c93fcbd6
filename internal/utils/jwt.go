package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtCustomClaims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair bundles the access and refresh tokens issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GenerateTokenPair creates signed access and refresh JWTs for the user.
func GenerateTokenPair(secret string, userID uuid.UUID, role string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	access, err := generateToken(secret, userID, role, "access", accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := generateToken(secret, userID, role, "refresh", refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func generateToken(secret string, userID uuid.UUID, role, tokenType string, ttl time.Duration) (string, error) {
	claims := &jwtCustomClaims{
		UserID:    userID.String(),
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates an access token and returns the embedded user ID and role.
func ParseToken(secret, tokenString string) (uuid.UUID, string, error) {
	return parseToken(secret, tokenString, "access")
}

// ParseRefreshToken validates a refresh token and returns the embedded user ID and role.
func ParseRefreshToken(secret, tokenString string) (uuid.UUID, string, error) {
	return parseToken(secret, tokenString, "refresh")
}

func parseToken(secret, tokenString, wantType string) (uuid.UUID, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid || claims.TokenType != wantType {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, claims.Role, nil
}
