package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"aki/bff/internal/apperr"
)

type Claims struct {
	TeacherID int64  `json:"teacherId"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

func NewAccessToken(secret, issuer string, ttl time.Duration, claims Claims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(claims.TeacherID, 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Tokens issues and verifies the BFF's own session tokens.
type Tokens struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, issuer: issuer, ttl: ttl}
}

func (t *Tokens) Issue(identity Identity) (string, error) {
	return NewAccessToken(t.secret, t.issuer, t.ttl, Claims{
		TeacherID: identity.TeacherID,
		Email:     identity.Email,
	})
}

// Parse maps token failures onto Unauthorized errors.
func (t *Tokens) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, apperr.Unauthorized("No token provided")
	}
	claims, err := ParseToken(t.secret, token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Token expired").Wrap(err)
		}
		return nil, apperr.Unauthorized("Invalid token").Wrap(err)
	}
	return claims, nil
}
