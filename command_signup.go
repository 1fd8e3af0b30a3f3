package authware

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`

	// Identity names the auth method creating the account. Defaults to
	// the password method; external providers set their own.
	Identity string `json:"-"`

	// Status overrides the initial account state. External providers
	// create active accounts; password signups start unverified.
	Status UserStatus `json:"-"`

	// PreAuthenticated marks a signup performed by a session already
	// signed in as the target account; the current-password proof is
	// skipped and profile fields update in place.
	PreAuthenticated bool `json:"-"`

	OnResponse func(resp *SignupResponse)
}

func (m SignupMessage) Type() string { return "user.signup" }

type SignupResponse struct {
	User        *User
	AccessToken string
	Success     bool
}

type SignupHandler struct {
	repo   RepositoryManager
	cfg    Config
	tokens TokenService
	hook   Hook
	logger Logger
}

func NewSignupHandler(repo RepositoryManager, cfg Config, tokens TokenService, hook Hook, logger Logger) *SignupHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &SignupHandler{
		repo:   repo,
		cfg:    cfg,
		tokens: tokens,
		hook:   normalizeHook(hook),
		logger: logger,
	}
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	resp := &SignupResponse{}
	created := false

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	identity := event.Identity
	if identity == "" {
		identity = IdentityPassword
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().GetByEmailOrIDTx(ctx, tx, event.Email, DeterministicID(event.Email))
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		// a password signup for a known address is an update, but only
		// with proof of the current password; the failure is the same
		// generic one login uses so addresses cannot be enumerated
		if existing != nil && identity == IdentityPassword && !event.PreAuthenticated {
			if err := h.comparePassword(existing.Password, event.Password); err != nil {
				return ErrInvalidCredentials
			}

			if existing.Status == UserStatusInactive {
				if h.cfg.RevealLockedStatus() {
					return ErrAccountLocked
				}
				return ErrInvalidCredentials
			}
		}

		user := &User{
			Email:    event.Email,
			Name:     event.Name,
			Avatar:   event.Avatar,
			Identity: identity,
			Status:   event.Status,
		}

		if event.Password != "" {
			hash := event.Password
			if h.cfg.Password == nil || !h.cfg.Password.UsePlainText {
				if hash, err = HashPassword(event.Password); err != nil {
					return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
				}
			}
			user.Password = hash
		}

		user.EnsureDefaults()
		if existing != nil {
			if user.Password == "" {
				user.Password = existing.Password
			}
			user.Status = existing.Status
			user.Created = existing.Created
		} else {
			created = true
		}

		if user, err = h.repo.Users().SaveTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		resp.User = user.Sanitized()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	if token, err := h.tokens.Mint(resp.User); err != nil {
		h.logger.Error("could not mint token after signup: %v", err)
	} else {
		resp.AccessToken = token
		resp.User.AccessToken = token
	}

	kind := EventUserUpdated
	if created {
		kind = EventUserCreated
	}

	emitEvent(ctx, h.hook, h.logger, Event{
		Kind:        kind,
		User:        resp.User,
		RawPassword: event.Password,
		Metadata: map[string]any{
			"identity": identity,
		},
	})

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *SignupHandler) comparePassword(stored, given string) error {
	if h.cfg.Password != nil && h.cfg.Password.UsePlainText {
		return ComparePlaintext(given, stored)
	}
	return ComparePasswordAndHash(given, stored)
}
