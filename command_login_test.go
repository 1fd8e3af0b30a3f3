package authware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginHandler(t *testing.T) {
	t.Run("valid credentials mint a token", func(t *testing.T) {
		repo := newTestDB(t)
		tokens := newTestTokens()
		hook := &recordingHook{}
		handler := NewLoginHandler(repo, newTestConfig(), tokens, hook, nil)

		user := seedUser(t, repo, "ada@example.com", "secret-password", UserStatusActive)

		var res *LoginResponse
		err := handler.Execute(context.Background(), LoginMessage{
			Email:    "ada@example.com",
			Password: "secret-password",
			OnResponse: func(resp *LoginResponse) {
				res = resp
			},
		})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.True(t, res.Success)
		assert.Equal(t, user.ID, res.User.ID)
		assert.Empty(t, res.User.Password)
		require.NotEmpty(t, res.AccessToken)

		claims, err := tokens.Validate(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())

		event, ok := hook.last()
		require.True(t, ok)
		assert.Equal(t, EventLogin, event.Kind)
	})

	t.Run("account id alone finds the account", func(t *testing.T) {
		repo := newTestDB(t)
		handler := NewLoginHandler(repo, newTestConfig(), newTestTokens(), nil, nil)

		user := seedUser(t, repo, "ada@example.com", "secret-password", UserStatusActive)

		var res *LoginResponse
		err := handler.Execute(context.Background(), LoginMessage{
			ID:       user.ID,
			Password: "secret-password",
			OnResponse: func(resp *LoginResponse) {
				res = resp
			},
		})
		require.NoError(t, err)
		assert.Equal(t, user.ID, res.User.ID)
	})

	t.Run("email wins the lookup over a mismatched id", func(t *testing.T) {
		repo := newTestDB(t)
		handler := NewLoginHandler(repo, newTestConfig(), newTestTokens(), nil, nil)

		seedUser(t, repo, "ada@example.com", "secret-password", UserStatusActive)
		other := seedUser(t, repo, "grace@example.com", "other-password", UserStatusActive)

		var res *LoginResponse
		err := handler.Execute(context.Background(), LoginMessage{
			Email:    "ada@example.com",
			ID:       other.ID,
			Password: "secret-password",
			OnResponse: func(resp *LoginResponse) {
				res = resp
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", res.User.Email)
	})

	t.Run("unknown account and wrong password are indistinguishable", func(t *testing.T) {
		repo := newTestDB(t)
		handler := NewLoginHandler(repo, newTestConfig(), newTestTokens(), nil, nil)

		seedUser(t, repo, "ada@example.com", "secret-password", UserStatusActive)

		unknownErr := handler.Execute(context.Background(), LoginMessage{
			Email:    "nobody@example.com",
			Password: "secret-password",
		})
		wrongErr := handler.Execute(context.Background(), LoginMessage{
			Email:    "ada@example.com",
			Password: "not-the-password",
		})

		assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	})

	t.Run("locked account", func(t *testing.T) {
		repo := newTestDB(t)
		seedUser(t, repo, "ada@example.com", "secret-password", UserStatusInactive)

		msg := LoginMessage{Email: "ada@example.com", Password: "secret-password"}

		t.Run("named by default", func(t *testing.T) {
			handler := NewLoginHandler(repo, newTestConfig(), newTestTokens(), nil, nil)
			err := handler.Execute(context.Background(), msg)
			assert.ErrorIs(t, err, ErrAccountLocked)
		})

		t.Run("hidden when configured", func(t *testing.T) {
			cfg := newTestConfig()
			cfg.HideLockedStatus = true
			handler := NewLoginHandler(repo, cfg, newTestTokens(), nil, nil)
			err := handler.Execute(context.Background(), msg)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	})

	t.Run("unverified accounts may log in", func(t *testing.T) {
		repo := newTestDB(t)
		handler := NewLoginHandler(repo, newTestConfig(), newTestTokens(), nil, nil)

		seedUser(t, repo, "ada@example.com", "secret-password", UserStatusUnverified)

		err := handler.Execute(context.Background(), LoginMessage{
			Email:    "ada@example.com",
			Password: "secret-password",
		})
		assert.NoError(t, err)
	})

	t.Run("plaintext mode compares raw values", func(t *testing.T) {
		repo := newTestDB(t)
		cfg := newTestConfig()
		cfg.Password.UsePlainText = true
		handler := NewLoginHandler(repo, cfg, newTestTokens(), nil, nil)

		user := &User{Email: "ada@example.com", Password: "raw-password", Status: UserStatusActive}
		user.EnsureDefaults()
		_, err := repo.Users().Save(context.Background(), user)
		require.NoError(t, err)

		assert.NoError(t, handler.Execute(context.Background(), LoginMessage{
			Email:    "ada@example.com",
			Password: "raw-password",
		}))
		assert.ErrorIs(t, handler.Execute(context.Background(), LoginMessage{
			Email:    "ada@example.com",
			Password: "wrong",
		}), ErrInvalidCredentials)
	})
}
