package auth

import (
	"context"
	"errors"
	"motolens/internal/config"
	"motolens/internal/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid indicates the token failed signature or shape checks
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates the token is well-formed but past its expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked indicates the token was blacklisted before its expiry
	ErrTokenRevoked = errors.New("token revoked")
)

// Token type claim values
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// RevocationStore is the fast lookup set consulted on every refresh
// verification. Revoked entries expire together with the token they block.
type RevocationStore interface {
	Revoke(ctx context.Context, jti, reason string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims are the JWT claims carried by both access and refresh tokens.
// Subject is the user id and ID is a per-token uuid, so two pairs minted in
// the same instant never collide.
type Claims struct {
	TokenType string `json:"typ"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim as a user id
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenPair holds a freshly minted access/refresh pair
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshTokenID   string
	RefreshExpiresAt time.Time
}

// Service mints and verifies signed access and refresh tokens
type Service struct {
	config    *config.Config
	blacklist RevocationStore

	// now is swapped out in tests to drive expiry
	now func() time.Time
}

// NewService creates a new token service
func NewService(cfg *config.Config, blacklist RevocationStore) *Service {
	return &Service{
		config:    cfg,
		blacklist: blacklist,
		now:       time.Now,
	}
}

// WithClock overrides the service clock, for tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) mint(user *models.User, tokenType string, secret string, ttl time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		TokenType: tokenType,
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssuePair mints a short-lived access token and a long-lived refresh token,
// signed with separate secrets
func (s *Service) IssuePair(user *models.User) (*TokenPair, error) {
	access, _, err := s.mint(user, tokenTypeAccess, s.config.Auth.AccessSecret, s.config.Auth.AccessTokenDuration)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := s.mint(user, tokenTypeRefresh, s.config.Auth.RefreshSecret, s.config.Auth.RefreshTokenDuration)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshTokenID:   refreshClaims.ID,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

func (s *Service) verify(tokenString, wantType, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.TokenType != wantType || claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// VerifyAccess validates an access token and returns its claims
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return s.verify(tokenString, tokenTypeAccess, s.config.Auth.AccessSecret)
}

// VerifyRefresh validates a refresh token, including the revocation check
func (s *Service) VerifyRefresh(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.verify(tokenString, tokenTypeRefresh, s.config.Auth.RefreshSecret)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Rotate verifies the old refresh token and mints a brand-new pair.
// The caller is responsible for deactivating the old session row and
// persisting the new one.
func (s *Service) Rotate(ctx context.Context, oldRefreshToken string, user *models.User) (*TokenPair, error) {
	if _, err := s.VerifyRefresh(ctx, oldRefreshToken); err != nil {
		return nil, err
	}
	return s.IssuePair(user)
}

// Revoke blacklists a refresh token until its natural expiry. Tokens that
// are already expired or unparsable need no blacklist entry.
func (s *Service) Revoke(ctx context.Context, tokenString, reason string) error {
	claims, err := s.verify(tokenString, tokenTypeRefresh, s.config.Auth.RefreshSecret)
	if err != nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.blacklist.Revoke(ctx, claims.ID, reason, ttl)
}
