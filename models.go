package authware

import (
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the account lifecycle status
type UserStatus = string

const (
	// UserStatusUnverified is the default status for password signups
	UserStatusUnverified UserStatus = "UNVERIFIED"
	// UserStatusActive marks a verified (or externally signed-in) account
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusInactive blocks all authentication regardless of credentials
	UserStatusInactive UserStatus = "INACTIVE"
)

const (
	// IdentityPassword marks accounts created through the password flow
	IdentityPassword = "email"
	// IdentityGoogle marks accounts created through Google sign-in
	IdentityGoogle = "google"
)

// User is the identity record. Password holds the bcrypt digest (or the
// plaintext in plaintext mode) and is never serialized into responses.
type User struct {
	bun.BaseModel `bun:"table:auth_users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Avatar        string     `bun:"avatar" json:"avatar,omitempty"`
	Password      string     `bun:"password" json:"-"`
	Status        UserStatus `bun:"status,notnull" json:"status,omitempty"`
	Identity      string     `bun:"identity" json:"identity,omitempty"`
	Created       int64      `bun:"created,nullzero" json:"created,omitempty"`
	AccessToken   string     `bun:"-" json:"access_token,omitempty"`
}

// Sanitized returns a copy safe for response payloads and token claims.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Password = ""
	return &clone
}

// EnsureStatus defaults the status for records that never had one assigned.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusUnverified
	}
}

// EnsureDefaults assigns the deterministic id, identity origin, and
// creation timestamp for new records. The id is derived from the email so
// repeated signups for the same address converge on the same record.
func (u *User) EnsureDefaults() {
	u.EnsureStatus()

	if u.Identity == "" {
		u.Identity = IdentityPassword
	}

	if u.ID == uuid.Nil {
		u.ID = DeterministicID(u.Email)
	}

	if u.Created == 0 {
		u.Created = time.Now().UnixMilli()
	}
}

// DeterministicID derives a stable UUID from an email address. Falls back
// to a random UUID when derivation fails or the email is empty.
func DeterministicID(email string) uuid.UUID {
	if email != "" {
		if id, err := hashid.NewUUID(email); err == nil {
			return id
		}
	}
	return uuid.New()
}

// TokenPurpose distinguishes the single-use action records.
type TokenPurpose = string

const (
	// PurposePasswordReset gates the change-password form
	PurposePasswordReset TokenPurpose = "password_reset"
	// PurposeEmailVerification gates account activation
	PurposeEmailVerification TokenPurpose = "email_verification"
)

// ActionToken is a single-use, time-boxed secret gating a sensitive
// transition. ID is the owning user's id: together with Purpose it forms
// the primary key, so at most one live record exists per user per purpose
// and a new request supersedes prior ones atomically.
type ActionToken struct {
	bun.BaseModel `bun:"table:auth_action_tokens,alias:act"`
	ID            uuid.UUID    `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Purpose       TokenPurpose `bun:"purpose,pk" json:"purpose,omitempty"`
	Email         string       `bun:"email,notnull" json:"email,omitempty"`
	Link          string       `bun:"link" json:"link,omitempty"`
	Secret        string       `bun:"secret,notnull,unique" json:"secret,omitempty"`
	ExpiresAt     int64        `bun:"link_exp,notnull" json:"link_exp,omitempty"`
}

// Expired checks the record against a single clock read. The boundary is
// inclusive: a record is live while link_exp >= now.
func (t *ActionToken) Expired(now time.Time) bool {
	return t.ExpiresAt < now.UnixMilli()
}

// NewActionToken creates a record for the given user with a fresh opaque
// secret and an expiry of now + ttl.
func NewActionToken(user *User, purpose TokenPurpose, ttl time.Duration) *ActionToken {
	return &ActionToken{
		ID:        user.ID,
		Purpose:   purpose,
		Email:     user.Email,
		Secret:    NewSecret(),
		ExpiresAt: time.Now().Add(ttl).UnixMilli(),
	}
}

// NewSecret generates an unguessable opaque secret for action links.
func NewSecret() string {
	return uuid.NewString() + uuid.NewString()
}
