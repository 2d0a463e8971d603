package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

const (
	accessType  = "access"
	refreshType = "refresh"
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims represents JWT payload. The registered subject is the employee's
// storage id; TokenType keeps refresh tokens out of the access path.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// EmployeeID parses the subject claim.
func (c Claims) EmployeeID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// IssuerConfig configures token signing.
type IssuerConfig struct {
	Issuer     string
	AccessKey  string
	RefreshKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer signs and verifies bearer credentials. Access and refresh tokens use
// separate HS256 keys.
type Issuer struct {
	cfg     IssuerConfig
	revoked Revocations
	now     func() time.Time
}

// NewIssuer creates an issuer consulting revoked on refresh.
func NewIssuer(cfg IssuerConfig, revoked Revocations) *Issuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.RefreshKey == "" {
		cfg.RefreshKey = cfg.AccessKey + ":refresh"
	}
	return &Issuer{cfg: cfg, revoked: revoked, now: time.Now}
}

// Issue issues signed access and refresh tokens for subject.
func (i *Issuer) Issue(subject TokenSubject) (TokenPair, error) {
	if subject.ID() <= 0 || !subject.IsActive() {
		return TokenPair{}, errors.New("cannot issue tokens for inactive subject")
	}
	now := i.now()
	sub := strconv.FormatInt(subject.ID(), 10)

	refreshExp := now.Add(i.cfg.RefreshTTL)
	refreshToken, err := i.sign(sub, refreshType, now, refreshExp, i.cfg.RefreshKey)
	if err != nil {
		return TokenPair{}, err
	}
	accessExp := now.Add(i.cfg.AccessTTL)
	accessToken, err := i.sign(sub, accessType, now, accessExp, i.cfg.AccessKey)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (i *Issuer) sign(sub, tokenType string, issuedAt, exp time.Time, key string) (string, error) {
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   sub,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// VerifyAccess validates an access token and returns the employee id it
// names. Failures are ErrTokenExpired or ErrTokenInvalid.
func (i *Issuer) VerifyAccess(token string) (int64, error) {
	claims, err := i.parse(token, i.cfg.AccessKey, accessType)
	if err != nil {
		return 0, err
	}
	return claims.EmployeeID()
}

// Refresh exchanges a live, unrevoked refresh token for a new access token.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := i.parse(refreshToken, i.cfg.RefreshKey, refreshType)
	if err != nil {
		return "", time.Time{}, err
	}
	revoked, err := i.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return "", time.Time{}, ErrTokenRevoked
	}
	now := i.now()
	exp := now.Add(i.cfg.AccessTTL)
	access, err := i.sign(claims.Subject, accessType, now, exp, i.cfg.AccessKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return access, exp, nil
}

// Revoke adds the refresh token's id to the revocation set. Garbage, expired
// and already revoked tokens are silently ignored.
func (i *Issuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := i.parse(refreshToken, i.cfg.RefreshKey, refreshType)
	if err != nil {
		return nil
	}
	return i.revoked.Revoke(ctx, claims.ID, i.now(), claims.ExpiresAt.Time)
}

func (i *Issuer) parse(token, key, wantType string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	},
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.cfg.Issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenType != wantType || claims.ID == "" {
		return Claims{}, ErrTokenInvalid
	}
	return *claims, nil
}
