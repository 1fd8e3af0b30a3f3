package authware

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenService mints and verifies the bearer tokens the gate relies on.
// Validate returns a rich error describing why a token was rejected;
// Decode degrades every failure to nil so callers can treat any bad
// input as "unauthenticated" without error plumbing.
type TokenService interface {
	Mint(user *User) (string, error)
	MintWithTTL(user *User, ttl time.Duration) (string, error)
	Validate(token string) (*UserClaims, error)
	Decode(token string) *UserClaims
}

// TokenExtractor pulls a raw bearer credential from a request.
type TokenExtractor func(c router.Context) (string, error)

// UnauthenticatedHandler converts a gate rejection into a response.
// The default sends the failure envelope with the given status.
type UnauthenticatedHandler func(c router.Context, status int, reason string) error

// Mailer is the transport the lifecycle flows notify through. Sends are
// fire-and-forget relative to the HTTP response; failures are logged,
// never surfaced to the caller.
type Mailer interface {
	SendResetPasswordMail(ctx context.Context, to, name, link string) error
	SendVerificationMail(ctx context.Context, to, name, link string) error
	SendWelcomeMail(ctx context.Context, to string) error
}

// ExternalIdentity is a normalized identity produced by an external
// sign-in provider (e.g. Google) that feeds into the signup flow.
type ExternalIdentity struct {
	Email  string
	Name   string
	Avatar string
}

// DefaultLogger returns the built-in printf logger.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHWARE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHWARE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHWARE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHWARE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
