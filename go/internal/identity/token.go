package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const tokenIssuer = "studysync"

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// subject checks.
var ErrInvalidToken = errors.New("identity: invalid token")

// Tokens issues and verifies HS256 participant tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewTokens creates a token service. The secret must not be empty.
func NewTokens(secret string, ttl time.Duration, clock clockwork.Clock) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("identity: token secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, clock: clock}, nil
}

// Issue signs a token for participantID and returns it with its expiry.
func (t *Tokens) Issue(participantID string) (string, time.Time, error) {
	if err := ValidateParticipantID(participantID); err != nil {
		return "", time.Time{}, err
	}

	now := t.clock.Now().UTC()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   participantID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks tokenString and returns the participant id it carries.
func (t *Tokens) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := ValidateParticipantID(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Subject, nil
}

// TokenProvider is a Provider backed by a verified token.
type TokenProvider struct {
	tokens *Tokens
	token  string
}

// NewTokenProvider wraps a raw token.
func NewTokenProvider(tokens *Tokens, token string) *TokenProvider {
	return &TokenProvider{tokens: tokens, token: token}
}

// CurrentParticipantID verifies the token and returns its subject.
func (p *TokenProvider) CurrentParticipantID() (string, error) {
	return p.tokens.Verify(p.token)
}
