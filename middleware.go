package authware

import (
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

// GateConfig tunes the request gate built by NewGate. Every field is
// optional except Tokens.
type GateConfig struct {
	// Config is the normalized process configuration. SkipRoutes,
	// CookieName, AuthScheme, TokenLookup and the locked-status policy
	// all come from here.
	Config Config

	// Tokens verifies incoming credentials.
	Tokens TokenService

	// Filter short-circuits the gate for requests it returns true for,
	// on top of the configured skip routes.
	Filter func(router.Context) bool

	// OnUnauthenticated renders rejections. The default replies with the
	// failure envelope.
	OnUnauthenticated UnauthenticatedHandler

	// Extractors overrides the chain derived from Config.TokenLookup.
	Extractors []TokenExtractor

	Logger Logger
}

// NewGate returns the middleware protecting every route that is not on
// the skip list: it extracts a credential, verifies it, attaches the
// session to the request, and refreshes the cookie. A valid credential
// attaches on skip-listed routes too, so handlers like the login page
// can see who is already signed in; rejection only happens past the
// skip list, and never leaves a stale cookie behind.
func NewGate(config GateConfig) router.MiddlewareFunc {
	cfg := gateDefaults(config)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			skip := matchSkipRoute(c.Path(), cfg.Config.SkipRoutes)
			if !skip && cfg.Filter != nil && cfg.Filter(c) {
				skip = true
			}

			raw, err := ExtractToken(c, cfg.Extractors)
			if err != nil || raw == "" {
				if skip {
					return c.Next()
				}
				return cfg.OnUnauthenticated(c, router.StatusUnauthorized, ErrMissingAuthorization.Error())
			}

			claims, err := cfg.Tokens.Validate(raw)
			if err != nil {
				if skip {
					return c.Next()
				}
				cfg.Logger.Debug("rejected credential: %v", err)
				clearAuthCookies(c, cfg.Config)
				return cfg.OnUnauthenticated(c, router.StatusUnauthorized, ErrUnauthorized.Error())
			}

			if claims.Status == UserStatusInactive {
				if skip {
					return c.Next()
				}
				clearAuthCookies(c, cfg.Config)
				reason := ErrUnauthorized.Error()
				if cfg.Config.RevealLockedStatus() {
					reason = ErrAccountLocked.Error()
				}
				return cfg.OnUnauthenticated(c, router.StatusUnauthorized, reason)
			}

			user := claims.User()
			c.Locals(ContextKeyClaims, claims)
			c.Locals(ContextKeyUser, user)
			c.SetContext(WithClaimsContext(WithContext(c.Context(), user), claims))

			refreshAuthCookie(c, cfg.Config, raw)

			if skip {
				return c.Next()
			}

			return hf(c)
		}
	}
}

func gateDefaults(cfg GateConfig) GateConfig {
	if cfg.Tokens == nil {
		panic("AUTHWARE: gate configuration: Tokens is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	if len(cfg.Extractors) == 0 {
		lookup := cfg.Config.TokenLookup
		if lookup == "" {
			lookup = DefaultTokenLookup
		}
		cfg.Extractors = GetExtractors(lookup, cfg.Config.AuthScheme)
	}

	if cfg.OnUnauthenticated == nil {
		cfg.OnUnauthenticated = func(c router.Context, status int, reason string) error {
			return c.JSON(status, NotOK(reason))
		}
	}

	return cfg
}

// matchSkipRoute reports whether path is exempt. Patterns match exactly,
// or by prefix when they end in '*'.
func matchSkipRoute(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		if strings.HasSuffix(pattern, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(pattern, "*")) {
				return true
			}
			continue
		}

		if path == pattern {
			return true
		}
	}
	return false
}

func refreshAuthCookie(c router.Context, cfg Config, token string) {
	name := cfg.CookieName
	if name == "" {
		name = "access_token"
	}

	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.CookieDuration()),
		HTTPOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: "Lax",
	})

	c.SetHeader(name, token)
}

func clearAuthCookies(c router.Context, cfg Config) {
	name := cfg.CookieName
	if name == "" {
		name = "access_token"
	}

	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: "Lax",
	})
}
