package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/socshift-backend/pkg/config"
)

// Identity is what a verified bearer token says about the caller.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// TokenVerifier resolves a bearer token into the caller's identity. The
// Firebase Auth client satisfies it in production; LocalVerifier stands in
// for it during local development.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

var signingMethod = jwt.SigningMethodHS256

var (
	errNoSecret = errors.New("jwt secret is required")
	errNoUser   = errors.New("user id is required")
)

// LocalToken is the input to MintLocalToken.
type LocalToken struct {
	UserID string
	Email  string
	Name   string
}

// LocalClaims mirror the subset of Firebase ID token claims the API reads.
type LocalClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// MintLocalToken signs an HS256 token for tok.UserID valid for the configured
// number of minutes from now.
func MintLocalToken(cfg config.JWTConfig, now time.Time, tok LocalToken) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	}
	uid := strings.TrimSpace(tok.UserID)
	if uid == "" {
		return "", errNoUser
	}

	claims := LocalClaims{
		Email: strings.TrimSpace(tok.Email),
		Name:  strings.TrimSpace(tok.Name),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL())),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseLocalToken checks signature, algorithm, issuer and expiry.
func ParseLocalToken(cfg config.JWTConfig, raw string) (*LocalClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	claims := &LocalClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errNoUser
	}
	return claims, nil
}

// LocalVerifier accepts tokens from MintLocalToken. It is wired only when
// SOCSHIFT_AUTH_MODE=local.
type LocalVerifier struct {
	cfg config.JWTConfig
}

func NewLocalVerifier(cfg config.JWTConfig) (*LocalVerifier, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	return &LocalVerifier{cfg: cfg}, nil
}

func (v *LocalVerifier) VerifyToken(_ context.Context, token string) (Identity, error) {
	claims, err := ParseLocalToken(v.cfg, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
