package authware

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`

	// ResetURL is the page the mailed link points at; the single-use
	// secret is appended as its last path segment.
	ResetURL string `json:"-"`

	OnResponse func(resp *InitializePasswordResetResponse)
}

func (m InitializePasswordResetMessage) Type() string { return "auth.password_reset.initialize" }

type InitializePasswordResetResponse struct {
	// Delivered is false when the email matched no account. Callers must
	// respond identically either way.
	Delivered bool
	Token     *ActionToken
	Success   bool
}

// InitializePasswordResetHandler issues a password reset link. A new
// request supersedes any live link for the same account, and an unknown
// email produces the same outward response as a known one.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	cfg    Config
	mailer Mailer
	hook   Hook
	logger Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, cfg Config, mailer Mailer, hook Hook, logger Logger) *InitializePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &InitializePasswordResetHandler{
		repo:   repo,
		cfg:    cfg,
		mailer: mailer,
		hook:   normalizeHook(hook),
		logger: logger,
	}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailOrIDTx(ctx, tx, event.Email, DeterministicID(event.Email))
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		token := NewActionToken(user, PurposePasswordReset, h.cfg.ActionTokenTTL)
		token.Link = buildActionLink(event.ResetURL, token.Secret)

		if err := h.repo.ActionTokens().ReplaceTx(ctx, tx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password reset token")
		}

		resp.Token = token
		resp.Delivered = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	if resp.Delivered {
		go h.notify(user, resp.Token)

		emitEvent(ctx, h.hook, h.logger, Event{
			Kind: EventForgotPassword,
			User: user.Sanitized(),
		})
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *InitializePasswordResetHandler) notify(user *User, token *ActionToken) {
	if h.mailer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	if err := h.mailer.SendResetPasswordMail(ctx, user.Email, user.Name, token.Link); err != nil {
		h.logger.Error("could not send password reset mail: %v", err)
	}
}

func buildActionLink(base, secret string) string {
	if base == "" {
		return secret
	}
	return strings.TrimRight(base, "/") + "/" + secret
}
