package authware

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestEmailVerificationMessage struct {
	Email string `json:"email"`

	// VerifyURL is the endpoint the mailed link points at; the secret is
	// appended as its last path segment.
	VerifyURL string `json:"-"`

	OnResponse func(resp *RequestEmailVerificationResponse)
}

func (m RequestEmailVerificationMessage) Type() string { return "auth.email_verification.request" }

type RequestEmailVerificationResponse struct {
	Delivered bool
	Token     *ActionToken
	Success   bool
}

// RequestEmailVerificationHandler issues a verification link for an
// unverified account. Requesting again supersedes the previous link.
type RequestEmailVerificationHandler struct {
	repo   RepositoryManager
	cfg    Config
	mailer Mailer
	hook   Hook
	logger Logger
}

func NewRequestEmailVerificationHandler(repo RepositoryManager, cfg Config, mailer Mailer, hook Hook, logger Logger) *RequestEmailVerificationHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &RequestEmailVerificationHandler{
		repo:   repo,
		cfg:    cfg,
		mailer: mailer,
		hook:   normalizeHook(hook),
		logger: logger,
	}
}

func (h *RequestEmailVerificationHandler) Execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestEmailVerificationHandler) execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	resp := &RequestEmailVerificationResponse{}

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
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for verification")
		}

		// already-verified accounts get no new link
		if user.Status != UserStatusUnverified {
			user = nil
			return nil
		}

		token := NewActionToken(user, PurposeEmailVerification, h.cfg.ActionTokenTTL)
		token.Link = buildActionLink(event.VerifyURL, token.Secret)

		if err := h.repo.ActionTokens().ReplaceTx(ctx, tx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification token")
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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification request transaction failed")
	}

	if resp.Delivered {
		go h.notify(user, resp.Token)
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestEmailVerificationHandler) notify(user *User, token *ActionToken) {
	if h.mailer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	if err := h.mailer.SendVerificationMail(ctx, user.Email, user.Name, token.Link); err != nil {
		h.logger.Error("could not send verification mail: %v", err)
	}
}
