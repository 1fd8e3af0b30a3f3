package authware

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type CompleteEmailVerificationMessage struct {
	Secret string `json:"token"`

	OnResponse func(resp *CompleteEmailVerificationResponse)
}

func (m CompleteEmailVerificationMessage) Type() string { return "auth.email_verification.complete" }

type CompleteEmailVerificationResponse struct {
	// Verified is false for unknown, expired, or replayed secrets. That
	// outcome is a redirect target, not an error.
	Verified bool
	User     *User
	Success  bool
}

// CompleteEmailVerificationHandler consumes a verification secret and
// activates the account. A secret verifies at most once; replays land on
// the failure outcome.
type CompleteEmailVerificationHandler struct {
	repo   RepositoryManager
	hook   Hook
	logger Logger
}

func NewCompleteEmailVerificationHandler(repo RepositoryManager, hook Hook, logger Logger) *CompleteEmailVerificationHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &CompleteEmailVerificationHandler{
		repo:   repo,
		hook:   normalizeHook(hook),
		logger: logger,
	}
}

func (h *CompleteEmailVerificationHandler) Execute(ctx context.Context, event CompleteEmailVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CompleteEmailVerificationHandler) execute(ctx context.Context, event CompleteEmailVerificationMessage) error {
	resp := &CompleteEmailVerificationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.ActionTokens().GetBySecretTx(ctx, tx, event.Secret)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification token")
		}

		if token.Purpose != PurposeEmailVerification {
			return nil
		}

		if token.Expired(time.Now()) {
			if err := h.repo.ActionTokens().DeleteTx(ctx, tx, token.ID, token.Purpose); err != nil {
				h.logger.Warn("could not remove expired verification token: %v", err)
			}
			return nil
		}

		account, err := h.repo.Users().GetByEmailOrIDTx(ctx, tx, "", token.ID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for verification")
		}

		// a locked account stays locked; the link lands on the failure
		// outcome and is kept for a later legitimate unlock
		if account.Status == UserStatusInactive {
			return nil
		}

		user, err := h.repo.Users().SetStatusTx(ctx, tx, token.ID, UserStatusActive)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}

		if err := h.repo.ActionTokens().DeleteTx(ctx, tx, token.ID, token.Purpose); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
		}

		resp.User = user.Sanitized()
		resp.Verified = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	if resp.Verified {
		emitEvent(ctx, h.hook, h.logger, Event{
			Kind: EventVerifyEmail,
			User: resp.User,
		})
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
