package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or signed
// with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims holds JWT claims for the access token issued after an
// allowed login. The risk level at issuance travels with the token so
// downstream services can demand step-up without re-assessing.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	RiskLevel string `json:"risk_level"`
}

// TokenProvider issues and validates HS256 access tokens. A single shared
// secret is enough here; the platform is deployed as one service and no key
// distribution is needed.
type TokenProvider struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenProvider returns a TokenProvider signing with secret.
// issuer and audience are set on claims and validated on parse.
func NewTokenProvider(secret []byte, issuer, audience string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: secret, issuer: issuer, audience: audience, ttl: ttl}
}

// Issue issues an access token for the user. Returns the signed token and
// its expiration time.
func (p *TokenProvider) Issue(username, role, riskLevel string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:      role,
		RiskLevel: riskLevel,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses and validates the token, returning its claims.
func (p *TokenProvider) Validate(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
