package authware

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface with HS256.
type TokenServiceImpl struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance. expirationSec is the
// default token lifetime in seconds.
func NewTokenService(signingKey []byte, expirationSec int, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		expiration: time.Duration(expirationSec) * time.Second,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// Mint signs a token carrying the sanitized user with the default expiry.
func (ts *TokenServiceImpl) Mint(user *User) (string, error) {
	return ts.MintWithTTL(user, ts.expiration)
}

// MintWithTTL signs a token carrying the sanitized user with an explicit TTL.
func (ts *TokenServiceImpl) MintWithTTL(user *User, ttl time.Duration) (string, error) {
	if user == nil {
		return "", goerrors.New("user must not be nil", goerrors.CategoryInternal)
	}
	if ttl <= 0 {
		ttl = ts.expiration
	}

	claims := newUserClaims(user, ts.issuer, ts.audience, ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*UserClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// Decode degrades every validation failure to nil: malformed input, bad
// signatures, and expired tokens all read as "unauthenticated".
func (ts *TokenServiceImpl) Decode(tokenString string) *UserClaims {
	if tokenString == "" {
		return nil
	}

	claims, err := ts.Validate(tokenString)
	if err != nil {
		return nil
	}

	return claims
}
