package security

import (
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTokenTTL is how long an issued bearer token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken is returned when a token is malformed, expired or signed
// with another key.
var ErrInvalidToken = errors.New("invalid token")

type accountClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// jwtIssuer signs HS256 bearer tokens whose subject is the account id.
type jwtIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

var _ ports.TokenIssuer = (*jwtIssuer)(nil)

func NewJWTIssuer(secret, issuer string, ttl time.Duration, baseLogger *zerolog.Logger) (ports.TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &jwtIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
		log:    baseLogger.With().Str("component", "jwt_issuer").Logger(),
	}, nil
}

func (j *jwtIssuer) Issue(ctx context.Context, p domain.Principal) (*domain.AuthToken, error) {
	now := j.now().UTC()
	expiresAt := now.Add(j.ttl)
	claims := &accountClaims{
		Kind: string(p.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.AccountID.String(),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to sign token")
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.AuthToken{Value: signed, ExpiresAt: expiresAt}, nil
}

func (j *jwtIssuer) Parse(ctx context.Context, token string) (*domain.Principal, error) {
	claims := &accountClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	kind, err := domain.ParseActorKind(claims.Kind)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &domain.Principal{AccountID: id, Kind: kind}, nil
}
