package authware

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var setUserPasswordSQL = `UPDATE "auth_users" AS "usr"
SET
	"password" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

var setUserStatusSQL = `UPDATE "auth_users" AS "usr"
SET
	"status" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users is the store adapter for identity records. Save implements the
// upsert contract: insert, falling back to update-by-id when the email
// already has a record.
type Users interface {
	repository.Repository[*User]

	GetByEmailOrID(ctx context.Context, email string, id uuid.UUID) (*User, error)
	GetByEmailOrIDTx(ctx context.Context, tx bun.IDB, email string, id uuid.UUID) (*User, error)
	Save(ctx context.Context, record *User) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, password string) error
	SetStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error)
	SetStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the default bun-backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// GetByEmailOrID filters by whichever identifiers are non-empty. Email
// takes precedence: the id is only consulted when the email is empty or
// matches no record.
func (a *users) GetByEmailOrID(ctx context.Context, email string, id uuid.UUID) (*User, error) {
	return a.GetByEmailOrIDTx(ctx, a.db, email, id)
}

func (a *users) GetByEmailOrIDTx(ctx context.Context, tx bun.IDB, email string, id uuid.UUID) (*User, error) {
	type filter struct {
		column string
		value  any
	}

	filters := make([]filter, 0, 2)
	if email != "" {
		filters = append(filters, filter{column: "email", value: email})
	}
	if id != uuid.Nil {
		filters = append(filters, filter{column: "id", value: id})
	}

	for _, f := range filters {
		record := &User{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias."+f.column+" = ?", f.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if isNoRows(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"email": email,
			"id":    id.String(),
		})
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if record != nil {
		record.EnsureDefaults()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) Save(ctx context.Context, record *User) (*User, error) {
	return a.SaveTx(ctx, a.db, record)
}

func (a *users) SaveTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	existing, err := a.GetByEmailOrIDTx(ctx, tx, record.Email, record.ID)
	if err == nil {
		record.ID = existing.ID
		return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(existing.ID.String()))
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.CreateTx(ctx, tx, record)
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	return a.SetPasswordTx(ctx, a.db, id, password)
}

func (a *users) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, password string) error {
	res, err := a.Repository.RawTx(ctx, tx, setUserPasswordSQL, password, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) SetStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error) {
	return a.SetStatusTx(ctx, a.db, id, status)
}

func (a *users) SetStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, setUserStatusSQL, status, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}
