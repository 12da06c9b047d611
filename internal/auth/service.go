package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTypeAccess tags short-lived tokens used for per-request checks.
	TokenTypeAccess = "access"
	// TokenTypeRefresh tags long-lived tokens exchanged for new access tokens.
	TokenTypeRefresh = "refresh"

	defaultIssuer     = "staffly"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Service owns the session token lifecycle: credential authentication,
// access/refresh token issuance, verification, and refresh exchange.
//
// Tokens carry identity only. Role and active status are re-read from the
// credential store on every verify/refresh call, so revocations and
// demotions take effect within one verification cycle even while old
// claims remain technically valid until expiry.
type Service struct {
	store UserStore
	now   func() time.Time

	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service. Both signing secrets are mandatory and
// must be independent; there are no compiled-in fallbacks.
func NewService(store UserStore, accessSecret, refreshSecret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: user store is required")
	}
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	svc := &Service{
		store:         store,
		now:           time.Now,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        defaultIssuer,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// Authenticate verifies an email/password pair against the credential store.
// Every failure mode (unknown email, inactive account, wrong password,
// store error) collapses into ErrInvalidCredentials so callers cannot
// enumerate accounts. The password hash never leaves this call.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*UserProfile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// TokenPair carries the tokens minted at login along with their expirations.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// accessClaims is the claim shape for access tokens. Anything decoded that
// does not match (wrong type tag, missing user id) is rejected outright.
type accessClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// refreshClaims is the claim shape for refresh tokens. TokenID is a fresh
// random nonce per login; it is minted but not tracked server-side, so a
// refresh token stays valid until its own expiry (accepted limitation).
type refreshClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	TokenID   string `json:"tokenId"`
	jwt.RegisteredClaims
}

// IssueOnLogin mints an access/refresh token pair for a freshly
// authenticated profile. The two tokens are signed with independent secrets.
func (s *Service) IssueOnLogin(profile *UserProfile) (TokenPair, error) {
	if profile == nil || profile.ID == "" {
		return TokenPair{}, errors.New("auth: profile is required")
	}
	now := s.now().UTC()

	accessToken, accessExp, err := s.signAccess(profile, now)
	if err != nil {
		return TokenPair{}, err
	}

	refreshExp := now.Add(s.refreshTTL)
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		UserID:    profile.ID,
		Email:     profile.Email,
		TokenType: TokenTypeRefresh,
		TokenID:   uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token and returns the CURRENT profile,
// re-read from the credential store. A deleted row fails with
// ErrUserNotFound, a deactivated one with ErrUnauthorized; claims are never
// the source of authorization state.
func (s *Service) VerifyAccess(ctx context.Context, token string) (*UserProfile, error) {
	claims := &accessClaims{}
	if err := s.parse(token, claims, s.accessSecret); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeAccess || strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidToken
	}
	return s.currentProfile(ctx, claims.UserID)
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated: the original stays valid until its
// own expiry. The user row is re-read at exchange time, so a deleted user
// fails with ErrUserNotFound rather than a stale success.
func (s *Service) Refresh(ctx context.Context, token string) (string, time.Time, *UserProfile, error) {
	claims := &refreshClaims{}
	if err := s.parse(token, claims, s.refreshSecret); err != nil {
		return "", time.Time{}, nil, ErrInvalidToken
	}
	if claims.TokenType != TokenTypeRefresh || strings.TrimSpace(claims.UserID) == "" {
		return "", time.Time{}, nil, ErrInvalidToken
	}
	user, err := s.currentProfile(ctx, claims.UserID)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	accessToken, exp, err := s.signAccess(user, s.now().UTC())
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return accessToken, exp, user, nil
}

func (s *Service) signAccess(profile *UserProfile, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID:    profile.ID,
		Email:     profile.Email,
		Role:      string(profile.Role),
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) parse(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func (s *Service) currentProfile(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}
	return user, nil
}
