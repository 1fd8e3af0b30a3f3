package authware

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Secret   string `json:"token"`
	Password string `json:"password"`

	OnResponse func(resp *FinalizePasswordResetResponse)
}

func (m FinalizePasswordResetMessage) Type() string { return "auth.password_reset.finalize" }

type FinalizePasswordResetResponse struct {
	User    *User
	Success bool
}

// FinalizePasswordResetHandler consumes a reset secret exactly once.
// Unknown, expired, superseded, and already-consumed secrets are
// indistinguishable from the outside.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	cfg    Config
	hook   Hook
	logger Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, cfg Config, hook Hook, logger Logger) *FinalizePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &FinalizePasswordResetHandler{
		repo:   repo,
		cfg:    cfg,
		hook:   normalizeHook(hook),
		logger: logger,
	}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	resp := &FinalizePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.ActionTokens().GetBySecretTx(ctx, tx, event.Secret)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrLinkExpired
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve reset token")
		}

		if token.Purpose != PurposePasswordReset {
			return ErrLinkExpired
		}

		if token.Expired(time.Now()) {
			if err := h.repo.ActionTokens().DeleteTx(ctx, tx, token.ID, token.Purpose); err != nil {
				h.logger.Warn("could not remove expired reset token: %v", err)
			}
			return ErrLinkExpired
		}

		user, err := h.repo.Users().GetByEmailOrIDTx(ctx, tx, token.Email, token.ID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrLinkExpired
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for reset")
		}

		hash := event.Password
		if h.cfg.Password == nil || !h.cfg.Password.UsePlainText {
			if hash, err = HashPassword(event.Password); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
			}
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}

		if err := h.repo.ActionTokens().DeleteTx(ctx, tx, token.ID, token.Purpose); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume reset token")
		}

		resp.User = user.Sanitized()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset finalization failed")
	}

	emitEvent(ctx, h.hook, h.logger, Event{
		Kind: EventResetPassword,
		User: resp.User,
	})

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
