package authware

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserClaims is the bearer token payload: a serialized user minus the
// password, plus the registered claims. The status field travels with the
// token so the gate can reject locked accounts without a store read; the
// canonical "who am I" endpoint still re-fetches from the store.
type UserClaims struct {
	jwt.RegisteredClaims
	UID      string     `json:"uid,omitempty"`
	Email    string     `json:"email,omitempty"`
	Name     string     `json:"name,omitempty"`
	Avatar   string     `json:"avatar,omitempty"`
	Status   UserStatus `json:"status,omitempty"`
	Identity string     `json:"identity,omitempty"`
	Scope    string     `json:"scope,omitempty"`
}

// UserID returns the user id, falling back to the subject claim.
func (c *UserClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// User reconstructs a sanitized user record from the claims.
func (c *UserClaims) User() *User {
	id, err := uuid.Parse(c.UserID())
	if err != nil {
		id = uuid.Nil
	}

	return &User{
		ID:       id,
		Email:    c.Email,
		Name:     c.Name,
		Avatar:   c.Avatar,
		Status:   c.Status,
		Identity: c.Identity,
	}
}

// Expires returns the expiration time
func (c *UserClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *UserClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func newUserClaims(user *User, issuer string, audience jwt.ClaimStrings, ttl time.Duration) *UserClaims {
	now := time.Now()
	clean := user.Sanitized()

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   clean.ID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      clean.ID.String(),
		Email:    clean.Email,
		Name:     clean.Name,
		Avatar:   clean.Avatar,
		Status:   clean.Status,
		Identity: clean.Identity,
	}
}
