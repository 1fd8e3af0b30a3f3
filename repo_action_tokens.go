package authware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActionTokens stores the single-use secrets backing password reset and
// email verification links. A user holds at most one live token per
// purpose: Replace atomically supersedes any previous one.
type ActionTokens interface {
	Replace(ctx context.Context, record *ActionToken) error
	ReplaceTx(ctx context.Context, tx bun.IDB, record *ActionToken) error
	GetBySecret(ctx context.Context, secret string) (*ActionToken, error)
	GetBySecretTx(ctx context.Context, tx bun.IDB, secret string) (*ActionToken, error)
	Delete(ctx context.Context, id uuid.UUID, purpose TokenPurpose) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID, purpose TokenPurpose) error
}

type actionTokens struct {
	db *bun.DB
}

var _ ActionTokens = (*actionTokens)(nil)

// NewActionTokensRepository builds the default bun-backed token store.
func NewActionTokensRepository(db *bun.DB) ActionTokens {
	return &actionTokens{db: db}
}

func (a *actionTokens) Replace(ctx context.Context, record *ActionToken) error {
	return a.ReplaceTx(ctx, a.db, record)
}

func (a *actionTokens) ReplaceTx(ctx context.Context, tx bun.IDB, record *ActionToken) error {
	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (id, purpose) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("link = EXCLUDED.link").
		Set("secret = EXCLUDED.secret").
		Set("link_exp = EXCLUDED.link_exp").
		Exec(ctx)

	return err
}

func (a *actionTokens) GetBySecret(ctx context.Context, secret string) (*ActionToken, error) {
	return a.GetBySecretTx(ctx, a.db, secret)
}

func (a *actionTokens) GetBySecretTx(ctx context.Context, tx bun.IDB, secret string) (*ActionToken, error) {
	record := &ActionToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.secret = ?", secret).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"secret": secret,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *actionTokens) Delete(ctx context.Context, id uuid.UUID, purpose TokenPurpose) error {
	return a.DeleteTx(ctx, a.db, id, purpose)
}

func (a *actionTokens) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID, purpose TokenPurpose) error {
	_, err := tx.NewDelete().
		Model((*ActionToken)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.purpose = ?", purpose).
		Exec(ctx)

	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
