// Package security provides bearer token verification and input sanitising
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Token verification errors
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingUser  = errors.New("token carries no user id")
)

// Claims represents JWT claims structure. Tokens issued by the identity
// provider carry the user id in uid; plain JWTs fall back to sub.
type Claims struct {
	UID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the user the token was issued to
func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Identity is a verified caller
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenVerifier verifies HS256 bearer tokens and caches the result
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience []string
	parser   *jwt.Parser
	cache    *expirable.LRU[string, Identity]
	logger   *zap.Logger
	now      func() time.Time
}

// NewTokenVerifier creates a new token verifier
func NewTokenVerifier(cfg *config.Config, logger *zap.Logger) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Auth.Issuer))
	}
	if len(cfg.Auth.Audience) > 0 {
		// Any one of the configured audiences is accepted
		opts = append(opts, jwt.WithAudience(cfg.Auth.Audience...))
	}

	size := cfg.Cache.TokenSize
	if size <= 0 {
		size = 1000
	}
	ttl := cfg.Cache.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenVerifier{
		secret:   []byte(cfg.Auth.JWTSecret),
		issuer:   cfg.Auth.Issuer,
		audience: cfg.Auth.Audience,
		parser:   jwt.NewParser(opts...),
		cache:    expirable.NewLRU[string, Identity](size, nil, ttl),
		logger:   logger.Named("auth"),
		now:      time.Now,
	}
}

// Verify checks the token signature and claims and returns the caller
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	key := cacheKey(tokenString)
	if id, ok := v.cache.Get(key); ok {
		if v.now().Before(id.ExpiresAt) {
			return &id, nil
		}
		v.cache.Remove(key)
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		v.logger.Debug("Token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := claims.UserID()
	if userID == "" {
		return nil, ErrMissingUser
	}

	id := Identity{UserID: userID, ExpiresAt: claims.ExpiresAt.Time}
	v.cache.Add(key, id)
	return &id, nil
}

// Issue signs a token for userID valid for ttl. It is used by the CLI and
// tests; production tokens come from the identity provider.
func (v *TokenVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			Audience:  v.audience,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
