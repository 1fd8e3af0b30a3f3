package google

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/semibit/go-authware"
)

// RouteRegistrar captures the router methods the controller mounts on.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// Completer turns a verified Google identity into a signed-in account,
// returning the sanitized user and a freshly minted access token.
type Completer func(ctx context.Context, identity authware.ExternalIdentity) (*authware.User, string, error)

// HTTPConfig configures the sign-in controller.
type HTTPConfig struct {
	// SuccessRedirect is where the browser lands after sign-in when the
	// flow carried no returnUrl.
	SuccessRedirect string

	// ErrorRedirect receives result=failure on any callback error.
	ErrorRedirect string

	// CookieName names the token cookie; defaults to "access_token".
	CookieName    string
	SecureCookies bool
	CookieTTL     time.Duration

	// EncryptTokenInCallbackURL re-encodes the token before it lands in
	// the redirect URL; see authware.Config.
	EncryptTokenInCallbackURL func(c router.Context, token string) string

	Logger authware.Logger
}

// HTTPController drives the browser through the consent screen and back.
type HTTPController struct {
	provider *Provider
	states   *StateCodec
	complete Completer
	config   HTTPConfig
}

// NewHTTPController wires the sign-in routes.
func NewHTTPController(provider *Provider, states *StateCodec, complete Completer, cfg HTTPConfig) *HTTPController {
	if provider == nil {
		panic("Missing Provider in google controller...")
	}
	if states == nil {
		panic("Missing StateCodec in google controller...")
	}
	if complete == nil {
		panic("Missing Completer in google controller...")
	}

	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/auth/login"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "access_token"
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = 2 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = authware.DefaultLogger()
	}

	return &HTTPController{
		provider: provider,
		states:   states,
		complete: complete,
		config:   cfg,
	}
}

// RegisterRoutes mounts the flow, typically under <prefix>/google.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/signin", c.SignIn)
	group.Get("/callback", c.Callback)
}

// SignIn redirects the browser to the consent screen.
func (c *HTTPController) SignIn(ctx router.Context) error {
	state, err := c.states.Encode(&State{
		ReturnURL: ctx.Query("returnUrl", ""),
	})
	if err != nil {
		c.config.Logger.Error("could not encode sign-in state: %v", err)
		return c.fail(ctx)
	}

	return ctx.Redirect(c.provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback consumes the consent screen result. Every failure funnels
// into the error redirect with result=failure; nothing about the cause
// is exposed to the browser.
func (c *HTTPController) Callback(ctx router.Context) error {
	if errParam := ctx.Query("error", ""); errParam != "" {
		c.config.Logger.Warn("sign-in denied at consent screen: %s", errParam)
		return c.fail(ctx)
	}

	code := ctx.Query("code", "")
	rawState := ctx.Query("state", "")
	if code == "" || rawState == "" {
		return c.fail(ctx)
	}

	state, err := c.states.Decode(rawState)
	if err != nil {
		c.config.Logger.Warn("rejected sign-in state: %v", err)
		return c.fail(ctx)
	}

	accessToken, err := c.provider.Exchange(ctx.Context(), code)
	if err != nil {
		c.config.Logger.Error("code exchange failed: %v", err)
		return c.fail(ctx)
	}

	identity, err := c.provider.FetchProfile(ctx.Context(), accessToken)
	if err != nil {
		c.config.Logger.Error("profile fetch failed: %v", err)
		return c.fail(ctx)
	}

	user, token, err := c.complete(ctx.Context(), identity)
	if err != nil {
		c.config.Logger.Error("sign-in completion failed: %v", err)
		return c.fail(ctx)
	}

	c.setAuthCookie(ctx, token)

	redirect := state.ReturnURL
	if redirect == "" {
		redirect = c.config.SuccessRedirect
	}

	if c.config.EncryptTokenInCallbackURL != nil {
		token = c.config.EncryptTokenInCallbackURL(ctx, token)
	}

	redirect = appendQueryParam(redirect, c.config.CookieName, token)

	c.config.Logger.Info("google sign-in completed for %s", user.Email)
	return ctx.Redirect(redirect, http.StatusTemporaryRedirect)
}

func (c *HTTPController) fail(ctx router.Context) error {
	return ctx.Redirect(
		appendQueryParam(c.config.ErrorRedirect, "result", "failure"),
		http.StatusTemporaryRedirect,
	)
}

func (c *HTTPController) setAuthCookie(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     c.config.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.config.CookieTTL),
		HTTPOnly: true,
		Secure:   c.config.SecureCookies,
		SameSite: "Lax",
	})
}

// NewSignupCompleter funnels verified Google identities through the
// account lifecycle: new emails become active accounts, known emails
// refresh their profile fields.
func NewSignupCompleter(
	repo authware.RepositoryManager,
	cfg authware.Config,
	tokens authware.TokenService,
	hook authware.Hook,
	logger authware.Logger,
) Completer {
	return func(ctx context.Context, identity authware.ExternalIdentity) (*authware.User, string, error) {
		var res *authware.SignupResponse

		handler := authware.NewSignupHandler(repo, cfg, tokens, hook, logger)
		err := handler.Execute(ctx, authware.SignupMessage{
			Email:    identity.Email,
			Name:     identity.Name,
			Avatar:   identity.Avatar,
			Identity: authware.IdentityGoogle,
			Status:   authware.UserStatusActive,
			OnResponse: func(resp *authware.SignupResponse) {
				res = resp
			},
		})
		if err != nil {
			return nil, "", err
		}

		return res.User, res.AccessToken, nil
	}
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
