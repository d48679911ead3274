package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL 声纹登录令牌默认有效期
const DefaultTokenTTL = 8 * time.Hour

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (token string, ttl time.Duration, err error)
}

// Claims carried by voice login tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Method string `json:"amr,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 tokens.
type JWTIssuer struct {
	secretKey []byte
	ttl       time.Duration
	issuer    string
	now       func() time.Time
}

// NewJWTIssuer builds a token helper using the provided secret.
func NewJWTIssuer(secretKey string) *JWTIssuer {
	return &JWTIssuer{
		secretKey: []byte(secretKey),
		ttl:       DefaultTokenTTL,
		issuer:    "voiceprint-server",
		now:       time.Now,
	}
}

// WithTTL allows customising the expiration duration.
func (j *JWTIssuer) WithTTL(ttl time.Duration) *JWTIssuer {
	if ttl > 0 {
		j.ttl = ttl
	}
	return j
}

// WithClock overrides the time source.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	if now != nil {
		j.now = now
	}
	return j
}


// Issue implements TokenIssuer.
func (j *JWTIssuer) Issue(_ context.Context, userID string) (string, time.Duration, error) {
	if j == nil {
		return "", 0, errors.New("token issuer is nil")
	}
	if len(j.secretKey) == 0 {
		return "", 0, errors.New("token secret is empty")
	}
	if userID == "" {
		return "", 0, errors.New("user id is required")
	}

	now := j.now()
	claims := Claims{
		UserID: userID,
		Method: "voice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, j.ttl, nil
}

// Verify validates the token and returns the user it was issued to.
func (j *JWTIssuer) Verify(tokenString string) (string, error) {
	if j == nil {
		return "", errors.New("token issuer is nil")
	}
	if len(j.secretKey) == 0 {
		return "", errors.New("token secret is empty")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithIssuer(j.issuer))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.UserID == "" {
		return "", errors.New("invalid user_id claim")
	}
	return claims.UserID, nil
}
