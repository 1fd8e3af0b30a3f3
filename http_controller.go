package authware

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	verifyStatusSuccess = "SUCCESS"
	verifyStatusFailed  = "FAILED"
)

// RegisterAuthRoutes mounts the auth endpoints on the given router. The
// router is expected to be grouped under Config.RoutePrefix.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	c := NewAuthController(opts...)

	app.Get(c.Routes.Login, c.LoginShow).SetName("auth.login.get")
	app.Post(c.Routes.Login, c.LoginPost).SetName("auth.login.post")

	app.Get(c.Routes.Logout, c.LogOut).SetName("auth.logout.get")
	app.Get(c.Routes.Signout, c.SignOut).SetName("auth.signout.get")

	app.Get(c.Routes.Me, c.Me).SetName("auth.me.get")

	if c.Cfg.Password != nil {
		app.Post(c.Routes.Signup, c.SignupPost).SetName("auth.signup.post")
		app.Post(c.Routes.ForgotPassword, c.ForgotPasswordPost).SetName("auth.forgot.post")
		app.Post(c.Routes.ChangePassword, c.ChangePasswordPost).SetName("auth.change.post")
		app.Post(fmt.Sprintf("%s/:token", c.Routes.ChangePassword), c.ChangePasswordPost).SetName("auth.change.token.post")
		app.Post(c.Routes.UpdatePassword, c.UpdatePasswordPost).SetName("auth.update.post")
	}

	app.Get(fmt.Sprintf("%s/:token", c.Routes.VerifyEmail), c.VerifyEmailGet).SetName("auth.verify.get")
	app.Post(c.Routes.VerifyEmail, c.VerifyEmailPost).SetName("auth.verify.post")

	return c
}

type AuthControllerRoutes struct {
	Login          string
	Logout         string
	Signout        string
	Signup         string
	Me             string
	ForgotPassword string
	ChangePassword string
	UpdatePassword string
	VerifyEmail    string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Repo   RepositoryManager
	Cfg    Config
	Tokens TokenService
	Mailer Mailer
	Hook   Hook
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Cfg = cfg
		return c
	}
}

func WithControllerTokens(tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerHook(hook Hook) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Hook = hook
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:          "/login",
			Logout:         "/logout",
			Signout:        "/signout",
			Signup:         "/signup",
			Me:             "/me",
			ForgotPassword: "/forgotpassword",
			ChangePassword: "/changepassword",
			UpdatePassword: "/updatepassword",
			VerifyEmail:    "/verify-email",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	c.Hook = normalizeHook(c.Hook)

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	page := renderLoginPage(loginPageData{
		AppName:   a.Cfg.AppName,
		Action:    a.Cfg.RoutePrefix + a.Routes.Login,
		ReturnURL: ctx.Query("returnUrl", ""),
	})

	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	return ctx.Status(router.StatusOK).SendString(page)
}

// LoginRequest payload
type LoginRequest struct {
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	ID        string `form:"id" json:"id"`
	ReturnURL string `form:"returnUrl" json:"returnUrl"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK("Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK(err.Error()))
	}

	if a.Debug {
		a.Logger.Debug("login attempt: %s", print.MaybePrettyJSON(map[string]string{
			"email": payload.Email,
		}))
	}

	var res *LoginResponse
	msg := LoginMessage{
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *LoginResponse) {
			res = resp
		},
	}

	if payload.ID != "" {
		if id, err := uuid.Parse(payload.ID); err == nil {
			msg.ID = id
		}
	}

	login := NewLoginHandler(a.Repo, a.Cfg, a.Tokens, a.Hook, a.Logger)
	if err := login.Execute(ctx.Context(), msg); err != nil {
		return a.respondError(ctx, err)
	}

	refreshAuthCookie(ctx, a.Cfg, res.AccessToken)

	if redirect := firstNonEmpty(payload.ReturnURL, ctx.Query("returnUrl", "")); redirect != "" {
		return ctx.Redirect(appendTokenToURL(ctx, a.Cfg, redirect, res.AccessToken), router.StatusSeeOther)
	}

	return ctx.JSON(router.StatusOK, OK(res.User))
}

// LogOut drops the session cookie and sends the browser home.
func (a *AuthController) LogOut(ctx router.Context) error {
	a.emitLogout(ctx)
	clearAuthCookies(ctx, a.Cfg)
	return ctx.Redirect("/", router.StatusSeeOther)
}

// SignOut is the API flavored logout: it answers with the failure
// envelope so clients treat the session as gone immediately.
func (a *AuthController) SignOut(ctx router.Context) error {
	a.emitLogout(ctx)
	clearAuthCookies(ctx, a.Cfg)
	return ctx.JSON(router.StatusUnauthorized, NotOK("Logged out"))
}

func (a *AuthController) emitLogout(ctx router.Context) {
	raw, err := ExtractToken(ctx, GetExtractors(a.Cfg.TokenLookup, a.Cfg.AuthScheme))
	if err != nil || raw == "" {
		return
	}

	if claims := a.Tokens.Decode(raw); claims != nil {
		emitEvent(ctx.Context(), a.Hook, a.Logger, Event{
			Kind: EventLogout,
			User: claims.User(),
		})
	}
}

// Me returns the live account behind the current credential, re-read
// from the store so revocations and status flips are visible before the
// token expires.
func (a *AuthController) Me(ctx router.Context) error {
	raw, err := ExtractToken(ctx, GetExtractors(a.Cfg.TokenLookup, a.Cfg.AuthScheme))
	if err != nil || raw == "" {
		return ctx.JSON(router.StatusUnauthorized, NotOK(ErrMissingAuthorization.Error()))
	}

	claims := a.Tokens.Decode(raw)
	if claims == nil {
		clearAuthCookies(ctx, a.Cfg)
		return ctx.JSON(router.StatusUnauthorized, NotOK(ErrUnauthorized.Error()))
	}

	user, err := a.Repo.Users().GetByEmailOrID(ctx.Context(), claims.Email, claims.User().ID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			clearAuthCookies(ctx, a.Cfg)
			return ctx.JSON(router.StatusUnauthorized, NotOK(ErrUnauthorized.Error()))
		}
		return a.respondError(ctx, err)
	}

	if user.Status == UserStatusInactive {
		clearAuthCookies(ctx, a.Cfg)
		reason := ErrUnauthorized.Error()
		if a.Cfg.RevealLockedStatus() {
			reason = ErrAccountLocked.Error()
		}
		return ctx.JSON(router.StatusUnauthorized, NotOK(reason))
	}

	return ctx.JSON(router.StatusOK, OK(user.Sanitized()))
}

// SignupRequest payload
type SignupRequest struct {
	Email           string `form:"email" json:"email"`
	Name            string `form:"name" json:"name"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK("Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK(err.Error()))
	}

	var res *SignupResponse
	msg := SignupMessage{
		Email:    payload.Email,
		Name:     payload.Name,
		Password: payload.Password,
		Status:   UserStatusUnverified,
		OnResponse: func(resp *SignupResponse) {
			res = resp
		},
	}

	// a session already signed in as the target account may update it
	// without restating the current password
	if user, ok := GetRouterUser(ctx); ok && strings.EqualFold(user.Email, payload.Email) {
		msg.PreAuthenticated = true
	}

	signup := NewSignupHandler(a.Repo, a.Cfg, a.Tokens, a.Hook, a.Logger)
	if err := signup.Execute(ctx.Context(), msg); err != nil {
		return a.respondError(ctx, err)
	}

	verify := NewRequestEmailVerificationHandler(a.Repo, a.Cfg, a.Mailer, a.Hook, a.Logger)
	if err := verify.Execute(ctx.Context(), RequestEmailVerificationMessage{
		Email:     payload.Email,
		VerifyURL: a.verifyLinkBase(),
	}); err != nil {
		a.Logger.Error("could not issue verification link: %v", err)
	}

	refreshAuthCookie(ctx, a.Cfg, res.AccessToken)

	return ctx.JSON(router.StatusOK, OK(res.User))
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK("Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK(err.Error()))
	}

	msg := InitializePasswordResetMessage{
		Email:    payload.Email,
		ResetURL: a.resetLinkBase(),
	}

	forgot := NewInitializePasswordResetHandler(a.Repo, a.Cfg, a.Mailer, a.Hook, a.Logger)
	if err := forgot.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("password reset initialization: %v", err)
	}

	// identical response whether or not the account exists
	return ctx.JSON(router.StatusOK, OKMessage("If the account exists, a password reset link has been sent"))
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ChangePasswordPost(ctx router.Context) error {
	payload := new(ChangePasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK("Error parsing body"))
	}

	// the link carries the secret as its last path segment; accept it
	// there or in the body
	if payload.Token == "" {
		payload.Token = ctx.Param("token", "")
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK(err.Error()))
	}

	msg := FinalizePasswordResetMessage{
		Secret:   payload.Token,
		Password: payload.Password,
	}

	change := NewFinalizePasswordResetHandler(a.Repo, a.Cfg, a.Hook, a.Logger)
	if err := change.Execute(ctx.Context(), msg); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, OKMessage("Password updated, please login"))
}

// UpdatePasswordRequest payload
type UpdatePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r UpdatePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AuthController) UpdatePasswordPost(ctx router.Context) error {
	raw, err := ExtractToken(ctx, GetExtractors(a.Cfg.TokenLookup, a.Cfg.AuthScheme))
	if err != nil || raw == "" {
		return ctx.JSON(router.StatusUnauthorized, NotOK(ErrMissingAuthorization.Error()))
	}

	claims := a.Tokens.Decode(raw)
	if claims == nil {
		return ctx.JSON(router.StatusUnauthorized, NotOK(ErrUnauthorized.Error()))
	}

	payload := new(UpdatePasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK("Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK(err.Error()))
	}

	msg := UpdatePasswordMessage{
		UserID:          claims.User().ID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}

	update := NewUpdatePasswordHandler(a.Repo, a.Cfg, a.Hook, a.Logger)
	if err := update.Execute(ctx.Context(), msg); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, OKMessage("Password updated"))
}

func (a *AuthController) VerifyEmailGet(ctx router.Context) error {
	secret := ctx.Param("token", "")

	var res *CompleteEmailVerificationResponse
	msg := CompleteEmailVerificationMessage{
		Secret: secret,
		OnResponse: func(resp *CompleteEmailVerificationResponse) {
			res = resp
		},
	}

	verify := NewCompleteEmailVerificationHandler(a.Repo, a.Hook, a.Logger)
	if err := verify.Execute(ctx.Context(), msg); err != nil {
		return a.respondError(ctx, err)
	}

	status := verifyStatusFailed
	if res != nil && res.Verified {
		status = verifyStatusSuccess
	}

	if a.Cfg.VerifyEmailCallbackURL != "" {
		return ctx.Redirect(appendQuery(a.Cfg.VerifyEmailCallbackURL, "status", status), router.StatusSeeOther)
	}

	if status == verifyStatusFailed {
		return ctx.JSON(router.StatusBadRequest, NotOK(ErrLinkExpired.Error()))
	}

	return ctx.JSON(router.StatusOK, OKMessage("Email verified"))
}

func (a *AuthController) VerifyEmailPost(ctx router.Context) error {
	payload := new(ForgotPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK("Error parsing body"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, NotOK(err.Error()))
	}

	verify := NewRequestEmailVerificationHandler(a.Repo, a.Cfg, a.Mailer, a.Hook, a.Logger)
	if err := verify.Execute(ctx.Context(), RequestEmailVerificationMessage{
		Email:     payload.Email,
		VerifyURL: a.verifyLinkBase(),
	}); err != nil {
		a.Logger.Error("verification request: %v", err)
	}

	return ctx.JSON(router.StatusOK, OKMessage("If the account exists, a verification link has been sent"))
}

func (a *AuthController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		a.Logger.Error("unexpected controller error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, NotOK("Internal error"))
	}

	status := richErr.Code
	if status < 400 || status > 599 {
		status = router.StatusInternalServerError
	}

	if status >= 500 {
		a.Logger.Error("controller error: %s text_code=%s", richErr.Message, richErr.TextCode)
		return ctx.JSON(status, NotOK("Internal error"))
	}

	return ctx.JSON(status, NotOK(richErr.Message))
}

func (a *AuthController) verifyLinkBase() string {
	return a.Cfg.BaseURL + a.Cfg.RoutePrefix + a.Routes.VerifyEmail
}

func (a *AuthController) resetLinkBase() string {
	path := "/changepassword"
	if a.Cfg.Password != nil && a.Cfg.Password.ChangePasswordPath != "" {
		path = a.Cfg.Password.ChangePasswordPath
	}
	return a.Cfg.BaseURL + path
}

// appendTokenToURL attaches the freshly minted credential to a post
// sign-in redirect, re-encoded first when the host app configured it.
func appendTokenToURL(ctx router.Context, cfg Config, target, token string) string {
	if token == "" {
		return target
	}

	if cfg.EncryptTokenInCallbackURL != nil {
		token = cfg.EncryptTokenInCallbackURL(ctx, token)
	}

	name := cfg.CookieName
	if name == "" {
		name = "access_token"
	}

	return appendQuery(target, name, token)
}

func appendQuery(target, key, value string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + key + "=" + value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}
