package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/apperr"
)

const DefaultTokenTTL = 30 * 24 * time.Hour

// JWT claims
type Claims struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens with one shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, apperr.New(apperr.Configuration, "token secret is not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the issuer's time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) Issue(userID, name, email string, admin bool) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Email:  email,
		Admin:  admin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "Unable to sign token", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry before returning the claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperr.New(apperr.MalformedToken, "Token is missing")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, apperr.Wrap(apperr.MalformedToken, "Malformed token", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperr.Wrap(apperr.ExpiredToken, "Token has expired", err)
		default:
			return nil, apperr.Wrap(apperr.InvalidToken, "Invalid token", err)
		}
	}
	if !token.Valid {
		return nil, apperr.New(apperr.InvalidToken, "Invalid token")
	}
	return claims, nil
}
