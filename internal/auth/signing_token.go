package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Signing-link tokens are ULIDs wrapped in signed JWTs: the ULID identifies
// the recipient record, the JWT envelope gives links an expiry and makes
// them unforgeable without the server key.

type signingClaims struct {
	Recipient string `json:"rcp"`
	jwt.RegisteredClaims
}

// NewRecipientToken generates the opaque per-recipient identifier.
func NewRecipientToken() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

// SigningTokenIssuer mints and parses signing-link JWTs.
type SigningTokenIssuer struct {
	key []byte
	ttl time.Duration
}

// NewSigningTokenIssuer creates an issuer. An empty secret gets a random
// key, which invalidates outstanding links on restart; deployments should
// configure a stable secret.
func NewSigningTokenIssuer(secret string, ttl time.Duration) *SigningTokenIssuer {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SigningTokenIssuer{key: key, ttl: ttl}
}

// Issue wraps a recipient token in a signed, expiring JWT.
func (i *SigningTokenIssuer) Issue(recipientToken string) (string, error) {
	now := time.Now()
	claims := signingClaims{
		Recipient: recipientToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "signet",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign signing-link token: %w", err)
	}
	return signed, nil
}

// Parse validates a signing-link JWT and returns the embedded recipient
// token. Any failure maps to ErrSigningTokenInvalid.
func (i *SigningTokenIssuer) Parse(raw string) (string, error) {
	var claims signingClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid || claims.Recipient == "" {
		return "", ErrSigningTokenInvalid
	}
	return claims.Recipient, nil
}
