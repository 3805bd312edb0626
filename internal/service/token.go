package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/constants"
	apperrors "github.com/Payphone-Digital/socialhub/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// refreshSecretBytes gives 256 bits of entropy
const refreshSecretBytes = 32

// AccessClaims is the payload of an access token
type AccessClaims struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secretKey []byte
	expiresIn time.Duration
	issuer    string
	now       func() time.Time
}

func NewTokenIssuer(secretKey string, expiresIn time.Duration, issuer string) *TokenIssuer {
	if expiresIn <= 0 {
		expiresIn = constants.AccessTokenExpiry
	}
	return &TokenIssuer{
		secretKey: []byte(secretKey),
		expiresIn: expiresIn,
		issuer:    issuer,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// IssueAccessToken signs a short-lived HS256 token for the user
func (t *TokenIssuer) IssueAccessToken(userID uint, username string) (string, error) {
	now := t.now()
	claims := AccessClaims{
		ID:       userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshSecret returns a random opaque secret. Only its hash is stored.
func (t *TokenIssuer) IssueRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyAccessToken validates signature and expiry. Every failure is reported
// as ErrInvalidToken.
func (t *TokenIssuer) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == 0 {
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}
