package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/njprem/tours-auth-api/internal/domain"
)

var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

type Claims struct {
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 session tokens. The secret and ttl
// are fixed at construction and never change afterwards.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for subjectID. Times are truncated to whole seconds so
// the returned claims match what the token encodes.
func (m *JWTManager) Issue(subjectID uuid.UUID, now time.Time) (string, domain.TokenClaims, error) {
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", domain.TokenClaims{}, err
	}
	return signed, domain.TokenClaims{SubjectID: subjectID, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify checks signature and expiry as of now. A token is valid only while
// now is strictly before its expiry.
func (m *JWTManager) Verify(tokenString string, now time.Time) (domain.TokenClaims, error) {
	if tokenString == "" {
		return domain.TokenClaims{}, ErrTokenMalformed
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return domain.TokenClaims{}, classifyTokenError(err)
	}
	if !token.Valid {
		return domain.TokenClaims{}, ErrTokenMalformed
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return domain.TokenClaims{}, ErrTokenMalformed
	}
	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.TokenClaims{}, ErrTokenMalformed
	}
	return domain.TokenClaims{
		SubjectID: subjectID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
