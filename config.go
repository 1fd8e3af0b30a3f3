package authware

import (
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// PasswordConfig enables the password auth method.
type PasswordConfig struct {
	// ChangePasswordPath is the path of the form the reset link points at.
	ChangePasswordPath string
	// UsePlainText disables hashing. Exists for legacy data sets and for
	// tests; never a default.
	UsePlainText bool
}

// Config holds the process-wide auth options. It is normalized once at
// construction and immutable afterwards.
type Config struct {
	AppName string

	// SigningKey signs bearer tokens. When unset a random ephemeral key is
	// generated with a warning: every token issued before a restart becomes
	// invalid. That is an operational property, not a bug.
	SigningKey         string
	TokenExpirationSec int
	Issuer             string
	Audience           []string

	// TokenLookup is the extractor chain definition, AuthScheme the header
	// scheme prefix. CookieName names both the cookie and the mirrored
	// response header.
	TokenLookup string
	AuthScheme  string
	CookieName  string

	// SecureCookies is off by default; deployments behind TLS termination
	// must override it.
	SecureCookies bool

	// RoutePrefix is prepended to every auth route.
	RoutePrefix string

	// BaseURL is the public origin mailed links are built against, e.g.
	// "https://app.example.com". Links degrade to relative paths when
	// empty.
	BaseURL string

	// SkipRoutes are exempt from the gate. Exact match, or prefix match for
	// patterns with a trailing '*'. The auth endpoints themselves are always
	// appended during normalization.
	SkipRoutes []string

	// Password enables the password method (signup, login, reset flows).
	Password *PasswordConfig

	// GoogleEnabled reserves the google callback routes on the skip list;
	// the google package registers the actual sub-router.
	GoogleEnabled bool

	// HideLockedStatus collapses the distinct "account locked" message into
	// the generic unauthorized one. The zero value preserves the revealing
	// behavior, which is an accepted leak for support reasons.
	HideLockedStatus bool

	// ActionTokenTTL bounds password-reset and verification links.
	ActionTokenTTL time.Duration

	// VerifyEmailCallbackURL receives the status=SUCCESS|FAILED redirect
	// after a verification link is consumed.
	VerifyEmailCallbackURL string

	// EncryptTokenInCallbackURL optionally re-encodes the bearer token
	// before it is embedded in an external sign-in redirect URL, so raw
	// tokens do not end up in browser history. Implementing it is the
	// caller's responsibility.
	EncryptTokenInCallbackURL func(c router.Context, token string) string

	// SessionAlreadyConfigured tells the gate the host app runs its own
	// session layer, replacing any introspection of router internals.
	SessionAlreadyConfigured bool

	Debug bool
}

// Normalize applies defaults in place and reports through the logger.
// Call it once before wiring the gate or the controller.
func (c *Config) Normalize(logger Logger) {
	if logger == nil {
		logger = defLogger{}
	}

	if c.AppName == "" {
		c.AppName = "Auth"
	}

	if c.SigningKey == "" {
		c.SigningKey = uuid.NewString()
		logger.Warn(
			"signing key not configured, using random ephemeral key: all previously issued tokens are invalid after restart",
		)
	}

	if c.TokenExpirationSec <= 0 {
		c.TokenExpirationSec = 7200
	}

	if c.CookieName == "" {
		c.CookieName = "access_token"
	}

	if c.AuthScheme == "" {
		c.AuthScheme = "Bearer"
	}

	if c.TokenLookup == "" {
		c.TokenLookup = "header:" + router.HeaderAuthorization +
			",query:" + c.CookieName +
			",cookie:" + c.CookieName
	}

	if c.RoutePrefix == "" {
		c.RoutePrefix = "/auth"
	}

	if c.ActionTokenTTL <= 0 {
		c.ActionTokenTTL = 10 * time.Minute
	}

	if c.Password != nil && c.Password.ChangePasswordPath == "" {
		c.Password.ChangePasswordPath = "/changepassword"
	}

	c.SkipRoutes = append(c.SkipRoutes, c.defaultSkipRoutes()...)
}

// CookieDuration is the client-visible token lifetime.
func (c *Config) CookieDuration() time.Duration {
	return time.Duration(c.TokenExpirationSec) * time.Second
}

// RevealLockedStatus reports whether rejections may name the locked state.
func (c *Config) RevealLockedStatus() bool {
	return !c.HideLockedStatus
}

func (c *Config) defaultSkipRoutes() []string {
	p := c.RoutePrefix

	// changepassword and verify-email carry the secret as a trailing
	// path segment, so their patterns must match by prefix: mailed
	// links arrive with no credential at all.
	routes := []string{
		p + "/login",
		p + "/logout",
		p + "/signout",
		p + "/changepassword*",
		p + "/forgotpassword",
		p + "/verify-email*",
	}

	if c.Password != nil {
		routes = append(routes, p+"/signup")
	}

	if c.GoogleEnabled {
		routes = append(routes, p+"/google/*")
	}

	return routes
}
