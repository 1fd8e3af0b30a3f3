package authware

import (
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSkipRoute(t *testing.T) {
	patterns := []string{"/auth/login", "/auth/google/*", ""}

	assert.True(t, matchSkipRoute("/auth/login", patterns))
	assert.True(t, matchSkipRoute("/auth/google/callback", patterns))
	assert.True(t, matchSkipRoute("/auth/google/", patterns))
	assert.False(t, matchSkipRoute("/auth/login/extra", patterns))
	assert.False(t, matchSkipRoute("/auth/logout", patterns))
	assert.False(t, matchSkipRoute("/", patterns))
}

func TestNewGateRequiresTokens(t *testing.T) {
	assert.Panics(t, func() {
		NewGate(GateConfig{})
	})
}

func gateHandler(gate router.MiddlewareFunc, handled *bool) router.HandlerFunc {
	return gate(func(c router.Context) error {
		*handled = true
		return nil
	})
}

func TestGateSkipsExemptRoutes(t *testing.T) {
	cfg := newTestConfig()
	gate := NewGate(GateConfig{Config: cfg, Tokens: newTestTokens()})

	handled := false
	c := newFakeContext()
	c.path = cfg.RoutePrefix + "/login"

	require.NoError(t, gateHandler(gate, &handled)(c))
	assert.True(t, c.nextCalled)
	assert.False(t, handled)
}

func TestGateMailedLinksPassWithoutCredential(t *testing.T) {
	cfg := newTestConfig()
	gate := NewGate(GateConfig{Config: cfg, Tokens: newTestTokens()})

	// mailed links carry the secret as the last path segment and arrive
	// from a logged-out browser
	for _, path := range []string{
		cfg.RoutePrefix + "/verify-email/b64-verification-secret",
		cfg.RoutePrefix + "/verify-email",
		cfg.RoutePrefix + "/changepassword/b64-reset-secret",
		cfg.RoutePrefix + "/changepassword",
	} {
		handled := false
		c := newFakeContext()
		c.path = path

		require.NoError(t, gateHandler(gate, &handled)(c))
		assert.True(t, c.nextCalled, "path %s must pass the gate", path)
		assert.False(t, handled)
		assert.Zero(t, c.jsonStatus)
	}
}

func TestGateAttachesSessionOnSkipRoutes(t *testing.T) {
	cfg := newTestConfig()
	tokens := newTestTokens()
	gate := NewGate(GateConfig{Config: cfg, Tokens: tokens})

	user := testUser()
	signed, err := tokens.Mint(user)
	require.NoError(t, err)

	handled := false
	c := newFakeContext()
	c.path = cfg.RoutePrefix + "/login"
	c.cookies[cfg.CookieName] = signed

	require.NoError(t, gateHandler(gate, &handled)(c))
	assert.True(t, c.nextCalled)
	assert.False(t, handled)

	attached, ok := GetRouterUser(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, attached.ID)
}

func TestGateSkipRouteToleratesBadCredential(t *testing.T) {
	cfg := newTestConfig()
	gate := NewGate(GateConfig{Config: cfg, Tokens: newTestTokens()})

	handled := false
	c := newFakeContext()
	c.path = cfg.RoutePrefix + "/login"
	c.cookies[cfg.CookieName] = "garbage-token"

	require.NoError(t, gateHandler(gate, &handled)(c))
	assert.True(t, c.nextCalled)
	assert.False(t, handled)

	_, ok := GetRouterUser(c)
	assert.False(t, ok)
}

func TestGateFilterShortCircuits(t *testing.T) {
	cfg := newTestConfig()
	gate := NewGate(GateConfig{
		Config: cfg,
		Tokens: newTestTokens(),
		Filter: func(c router.Context) bool {
			return c.Path() == "/healthz"
		},
	})

	handled := false
	c := newFakeContext()
	c.path = "/healthz"

	require.NoError(t, gateHandler(gate, &handled)(c))
	assert.True(t, c.nextCalled)
	assert.False(t, handled)
}

func TestGateMissingCredential(t *testing.T) {
	cfg := newTestConfig()
	gate := NewGate(GateConfig{Config: cfg, Tokens: newTestTokens()})

	handled := false
	c := newFakeContext()
	c.path = "/protected"

	require.NoError(t, gateHandler(gate, &handled)(c))
	assert.False(t, handled)
	assert.Equal(t, router.StatusUnauthorized, c.jsonStatus)
	assert.Equal(t, NotOK(ErrMissingAuthorization.Error()), c.envelope(t))
}

func TestGateInvalidCredentialClearsCookie(t *testing.T) {
	cfg := newTestConfig()
	gate := NewGate(GateConfig{Config: cfg, Tokens: newTestTokens()})

	handled := false
	c := newFakeContext()
	c.path = "/protected"
	c.cookies[cfg.CookieName] = "garbage-token"

	require.NoError(t, gateHandler(gate, &handled)(c))
	assert.False(t, handled)
	assert.Equal(t, router.StatusUnauthorized, c.jsonStatus)
	assert.Equal(t, NotOK(ErrUnauthorized.Error()), c.envelope(t))

	cookie := c.lastCookie(cfg.CookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()), "deleted cookie must expire in the past")
}

func TestGateLockedAccount(t *testing.T) {
	tokens := newTestTokens()

	locked := testUser()
	locked.Status = UserStatusInactive
	signed, err := tokens.Mint(locked)
	require.NoError(t, err)

	t.Run("names the locked state by default", func(t *testing.T) {
		cfg := newTestConfig()
		gate := NewGate(GateConfig{Config: cfg, Tokens: tokens})

		handled := false
		c := newFakeContext()
		c.path = "/protected"
		c.cookies[cfg.CookieName] = signed

		require.NoError(t, gateHandler(gate, &handled)(c))
		assert.False(t, handled)
		assert.Equal(t, router.StatusUnauthorized, c.jsonStatus)
		assert.Equal(t, NotOK(ErrAccountLocked.Error()), c.envelope(t))
	})

	t.Run("hides the locked state when configured", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.HideLockedStatus = true
		gate := NewGate(GateConfig{Config: cfg, Tokens: tokens})

		handled := false
		c := newFakeContext()
		c.path = "/protected"
		c.cookies[cfg.CookieName] = signed

		require.NoError(t, gateHandler(gate, &handled)(c))
		assert.Equal(t, NotOK(ErrUnauthorized.Error()), c.envelope(t))
	})
}

func TestGateSuccessAttachesSession(t *testing.T) {
	cfg := newTestConfig()
	tokens := newTestTokens()
	gate := NewGate(GateConfig{Config: cfg, Tokens: tokens})

	user := testUser()
	signed, err := tokens.Mint(user)
	require.NoError(t, err)

	handled := false
	c := newFakeContext()
	c.path = "/protected"
	c.cookies[cfg.CookieName] = signed

	require.NoError(t, gateHandler(gate, &handled)(c))
	require.True(t, handled)
	assert.False(t, c.nextCalled)

	claims, ok := GetRouterClaims(c, "")
	require.True(t, ok)
	assert.Equal(t, user.Email, claims.Email)

	attached, ok := GetRouterUser(c)
	require.True(t, ok)
	assert.Equal(t, user.ID, attached.ID)
	assert.Empty(t, attached.Password)

	ctxUser, ok := FromContext(c.Context())
	require.True(t, ok)
	assert.Equal(t, user.ID, ctxUser.ID)

	ctxClaims, ok := GetClaims(c.Context())
	require.True(t, ok)
	assert.Equal(t, user.Email, ctxClaims.Email)

	cookie := c.lastCookie(cfg.CookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, signed, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HTTPOnly)
	assert.Equal(t, signed, c.setHeaders[cfg.CookieName])
}

func TestGateCustomUnauthenticatedHandler(t *testing.T) {
	cfg := newTestConfig()

	var gotStatus int
	var gotReason string
	gate := NewGate(GateConfig{
		Config: cfg,
		Tokens: newTestTokens(),
		OnUnauthenticated: func(c router.Context, status int, reason string) error {
			gotStatus = status
			gotReason = reason
			return c.JSON(status, NotOK(reason))
		},
	})

	handled := false
	c := newFakeContext()
	c.path = "/protected"

	require.NoError(t, gateHandler(gate, &handled)(c))
	assert.Equal(t, router.StatusUnauthorized, gotStatus)
	assert.Equal(t, ErrMissingAuthorization.Error(), gotReason)
}
