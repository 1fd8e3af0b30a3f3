package authware

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdatePasswordMessage struct {
	UserID          uuid.UUID `json:"-"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`

	OnResponse func(resp *UpdatePasswordResponse)
}

func (m UpdatePasswordMessage) Type() string { return "user.password.update" }

type UpdatePasswordResponse struct {
	User    *User
	Success bool
}

// UpdatePasswordHandler changes the password of an authenticated user,
// gated on the current one.
type UpdatePasswordHandler struct {
	repo   RepositoryManager
	cfg    Config
	hook   Hook
	logger Logger
}

func NewUpdatePasswordHandler(repo RepositoryManager, cfg Config, hook Hook, logger Logger) *UpdatePasswordHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &UpdatePasswordHandler{
		repo:   repo,
		cfg:    cfg,
		hook:   normalizeHook(hook),
		logger: logger,
	}
}

func (h *UpdatePasswordHandler) Execute(ctx context.Context, event UpdatePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdatePasswordHandler) execute(ctx context.Context, event UpdatePasswordMessage) error {
	resp := &UpdatePasswordResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmailOrIDTx(ctx, tx, "", event.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidCredentials
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password update")
		}

		if err := h.comparePassword(user.Password, event.CurrentPassword); err != nil {
			return ErrInvalidCredentials
		}

		hash := event.NewPassword
		if h.cfg.Password == nil || !h.cfg.Password.UsePlainText {
			if hash, err = HashPassword(event.NewPassword); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
			}
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}

		resp.User = user.Sanitized()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password update transaction failed")
	}

	emitEvent(ctx, h.hook, h.logger, Event{
		Kind:        EventUserUpdated,
		User:        resp.User,
		RawPassword: event.NewPassword,
	})

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *UpdatePasswordHandler) comparePassword(stored, given string) error {
	if h.cfg.Password != nil && h.cfg.Password.UsePlainText {
		return ComparePlaintext(given, stored)
	}
	return ComparePasswordAndHash(given, stored)
}
