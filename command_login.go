package authware

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// ID optionally names the account directly; the email wins the
	// lookup when both are present.
	ID uuid.UUID `json:"id"`

	OnResponse func(resp *LoginResponse)
}

func (m LoginMessage) Type() string { return "auth.login" }

type LoginResponse struct {
	User        *User
	AccessToken string
	Success     bool
}

// LoginHandler authenticates a password credential. Every failure short
// of a locked account collapses into the same invalid-credentials error
// so responses cannot be used to enumerate which emails have accounts.
type LoginHandler struct {
	repo   RepositoryManager
	cfg    Config
	tokens TokenService
	hook   Hook
	logger Logger
}

func NewLoginHandler(repo RepositoryManager, cfg Config, tokens TokenService, hook Hook, logger Logger) *LoginHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &LoginHandler{
		repo:   repo,
		cfg:    cfg,
		tokens: tokens,
		hook:   normalizeHook(hook),
		logger: logger,
	}
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	resp := &LoginResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmailOrID(ctx, event.Email, event.ID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for login")
	}

	if user.Status == UserStatusInactive {
		if h.cfg.RevealLockedStatus() {
			return ErrAccountLocked
		}
		return ErrInvalidCredentials
	}

	if err := h.comparePassword(user.Password, event.Password); err != nil {
		return ErrInvalidCredentials
	}

	resp.User = user.Sanitized()

	token, err := h.tokens.Mint(resp.User)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint access token")
	}

	resp.AccessToken = token
	resp.User.AccessToken = token

	emitEvent(ctx, h.hook, h.logger, Event{
		Kind: EventLogin,
		User: resp.User,
	})

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *LoginHandler) comparePassword(stored, given string) error {
	if h.cfg.Password != nil && h.cfg.Password.UsePlainText {
		return ComparePlaintext(given, stored)
	}
	return ComparePasswordAndHash(given, stored)
}
