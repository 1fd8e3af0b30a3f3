package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/semibit/go-authware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCompleter(user *authware.User, token string, err error) Completer {
	return func(context.Context, authware.ExternalIdentity) (*authware.User, string, error) {
		return user, token, err
	}
}

func testController(provider *Provider, codec *StateCodec, complete Completer) *HTTPController {
	return NewHTTPController(provider, codec, complete, HTTPConfig{})
}

func TestNewHTTPControllerPanics(t *testing.T) {
	provider := New(Config{})
	codec := NewStateCodec([]byte("k"), 0)
	complete := staticCompleter(nil, "", nil)

	assert.Panics(t, func() { NewHTTPController(nil, codec, complete, HTTPConfig{}) })
	assert.Panics(t, func() { NewHTTPController(provider, nil, complete, HTTPConfig{}) })
	assert.Panics(t, func() { NewHTTPController(provider, codec, nil, HTTPConfig{}) })
}

func TestSignIn(t *testing.T) {
	codec := NewStateCodec([]byte("signin-key"), 10*time.Minute)
	provider := New(Config{ClientID: "client-123", CallbackURL: "https://app.example.com/cb"})
	controller := testController(provider, codec, staticCompleter(nil, "", nil))

	c := newFakeContext()
	c.queries["returnUrl"] = "/dashboard"

	require.NoError(t, controller.SignIn(c))
	assert.Equal(t, http.StatusTemporaryRedirect, c.redirectStatus)

	parsed, err := url.Parse(c.redirectedTo)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)

	state, err := codec.Decode(parsed.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", state.ReturnURL)
}

func newProviderStub(t *testing.T) *Provider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "google-access-token"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"sub":   "1234567890",
			"email": "ada@example.com",
			"name":  "Ada Lovelace",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(Config{
		ClientID:    "client-123",
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/userinfo",
	})
}

func TestCallback(t *testing.T) {
	codec := NewStateCodec([]byte("callback-key"), 10*time.Minute)

	signedState := func(t *testing.T, returnURL string) string {
		t.Helper()
		state, err := codec.Encode(&State{ReturnURL: returnURL})
		require.NoError(t, err)
		return state
	}

	t.Run("happy path sets the cookie and redirects", func(t *testing.T) {
		user := &authware.User{Email: "ada@example.com"}
		controller := testController(newProviderStub(t), codec, staticCompleter(user, "minted-token", nil))

		c := newFakeContext()
		c.queries["code"] = "the-code"
		c.queries["state"] = signedState(t, "/dashboard")

		require.NoError(t, controller.Callback(c))
		assert.Equal(t, http.StatusTemporaryRedirect, c.redirectStatus)
		assert.True(t, strings.HasPrefix(c.redirectedTo, "/dashboard?"))
		assert.Contains(t, c.redirectedTo, "access_token=minted-token")

		cookie := c.lastCookie("access_token")
		require.NotNil(t, cookie)
		assert.Equal(t, "minted-token", cookie.Value)
		assert.True(t, cookie.HTTPOnly)
	})

	t.Run("no returnUrl falls back to the success redirect", func(t *testing.T) {
		controller := testController(newProviderStub(t), codec, staticCompleter(&authware.User{}, "minted-token", nil))

		c := newFakeContext()
		c.queries["code"] = "the-code"
		c.queries["state"] = signedState(t, "")

		require.NoError(t, controller.Callback(c))
		assert.True(t, strings.HasPrefix(c.redirectedTo, "/?"))
	})

	failureCases := []struct {
		name  string
		setup func(t *testing.T, c *fakeContext) *HTTPController
	}{
		{
			name: "consent screen denial",
			setup: func(t *testing.T, c *fakeContext) *HTTPController {
				c.queries["error"] = "access_denied"
				return testController(newProviderStub(t), codec, staticCompleter(nil, "", nil))
			},
		},
		{
			name: "missing code",
			setup: func(t *testing.T, c *fakeContext) *HTTPController {
				c.queries["state"] = signedState(t, "")
				return testController(newProviderStub(t), codec, staticCompleter(nil, "", nil))
			},
		},
		{
			name: "forged state",
			setup: func(t *testing.T, c *fakeContext) *HTTPController {
				c.queries["code"] = "the-code"
				c.queries["state"] = "forged"
				return testController(newProviderStub(t), codec, staticCompleter(nil, "", nil))
			},
		},
		{
			name: "completion failure",
			setup: func(t *testing.T, c *fakeContext) *HTTPController {
				c.queries["code"] = "the-code"
				c.queries["state"] = signedState(t, "")
				return testController(newProviderStub(t), codec, staticCompleter(nil, "", errors.New("store down")))
			},
		},
	}

	for _, tc := range failureCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newFakeContext()
			controller := tc.setup(t, c)

			require.NoError(t, controller.Callback(c))
			assert.Contains(t, c.redirectedTo, "result=failure")
			assert.True(t, strings.HasPrefix(c.redirectedTo, "/auth/login"))
			assert.Nil(t, c.lastCookie("access_token"), "no cookie on failure")
		})
	}
}

func TestAppendQueryParam(t *testing.T) {
	assert.Equal(t, "/dash?k=v", appendQueryParam("/dash", "k", "v"))
	assert.Equal(t, "", appendQueryParam("", "k", "v"))

	withExisting := appendQueryParam("/dash?a=1", "k", "v")
	assert.Contains(t, withExisting, "a=1")
	assert.Contains(t, withExisting, "k=v")
}
