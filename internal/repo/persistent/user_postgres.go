package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/postgres"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

const (
	// Table
	usersTable = "users"

	// Columns
	userIDColumn           = "id"
	userUsernameColumn     = "username"
	userPasswordHashColumn = "password_hash"
	userCreatedAtColumn    = "created_at"
)

type UserRepo struct {
	*postgres.Postgres
}

func NewUserRepo(pg *postgres.Postgres) *UserRepo {
	return &UserRepo{pg}
}

func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	sql, args, err := r.Builder.
		Insert(usersTable).
		Columns(userIDColumn, userUsernameColumn, userPasswordHashColumn, userCreatedAtColumn).
		Values(user.ID, user.Username, user.PasswordHash, user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("UserRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("UserRepo - Create: %w", errs.ErrAlreadyExists)
		}
		return fmt.Errorf("UserRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.getBy(ctx, squirrel.Eq{userIDColumn: id}, "GetByID")
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getBy(ctx, squirrel.Eq{userUsernameColumn: username}, "GetByUsername")
}

func (r *UserRepo) getBy(ctx context.Context, pred squirrel.Eq, method string) (*entity.User, error) {
	sql, args, err := r.Builder.
		Select(userIDColumn, userUsernameColumn, userPasswordHashColumn, userCreatedAtColumn).
		From(usersTable).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("UserRepo - %s - r.Builder.ToSql: %w", method, err)
	}

	executor := r.GetExecutor(ctx)

	var user entity.User
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("UserRepo - %s: %w", method, errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("UserRepo - %s - executor.QueryRow: %w", method, err)
	}

	return &user, nil
}
