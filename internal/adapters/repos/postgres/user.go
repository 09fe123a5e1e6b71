package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/postgres"
	"gitlab.com/acme/acme-auth/pkg/watermillx"
)

const (
	userEmailConstraint = "user_email_key"

	selectUserColumns = `SELECT id, email, name, image, email_verified, created_at, updated_at FROM "user"`

	insertUserQuery = `INSERT INTO "user" (id, email, name, image, email_verified, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7);`

	updateUserQuery = `UPDATE "user"
    SET email = $2, name = $3, image = $4, email_verified = $5, updated_at = $6
    WHERE id = $1;`
)

type UserRepo struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	pool    *pgxpool.Pool
	wlogger watermill.LoggerAdapter
}

// NewUserRepo creates a new instance of UserRepo.
//
// WARNING: panics if pool is nil
func NewUserRepo(pool *pgxpool.Pool, t trace.Tracer, l *slog.Logger) *UserRepo {
	if pool == nil {
		panic("pgxpool.Pool cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &UserRepo{
		tracer:  t,
		logger:  l,
		pool:    pool,
		wlogger: watermill.NewSlogLogger(l),
	}
}

func (r *UserRepo) SaveUser(ctx context.Context, u *user.User) error {
	const op = "postgres.UserRepo.SaveUser"
	ctx, span := r.tracer.Start(ctx, "UserRepo.SaveUser")
	defer span.End()

	dto := DomainToUserDTO(u)
	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		res, err := tx.Exec(ctx, insertUserQuery,
			dto.ID,
			dto.Email,
			dto.Name,
			dto.Image,
			dto.EmailVerified,
			dto.CreatedAt,
			dto.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, userEmailConstraint) {
				return user.ErrEmailTaken.WithCause(err)
			}
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrNoRowsAffected
		}

		return watermillx.Publish(ctx, tx, r.wlogger, u.GetUncommittedEvents()...)
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to save user")
		return errorx.Wrap(err, op)
	}

	return nil
}

func (r *UserRepo) UpdateUser(
	ctx context.Context,
	id user.ID,
	fn func(ctx context.Context, u *user.User) error,
) error {
	const op = "postgres.UserRepo.UpdateUser"
	ctx, span := r.tracer.Start(ctx, "UserRepo.UpdateUser")
	defer span.End()
	if fn == nil {
		otelx.RecordSpanError(span, ErrNilFunc, "update function cannot be nil")
		return ErrNilFunc
	}

	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, selectUserColumns+` WHERE id = $1 FOR UPDATE;`, uuid.UUID(id)))
		if err != nil {
			return err
		}

		if err := fn(ctx, u); err != nil {
			return err
		}

		dto := DomainToUserDTO(u)
		res, err := tx.Exec(ctx, updateUserQuery,
			dto.ID,
			dto.Email,
			dto.Name,
			dto.Image,
			dto.EmailVerified,
			dto.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, userEmailConstraint) {
				return user.ErrEmailTaken.WithCause(err)
			}
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrNoRowsAffected
		}

		return watermillx.Publish(ctx, tx, r.wlogger, u.GetUncommittedEvents()...)
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "transaction to update user failed")
		return errorx.Wrap(err, op)
	}

	return nil
}

func (r *UserRepo) GetUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	const op = "postgres.UserRepo.GetUserByID"
	ctx, span := r.tracer.Start(ctx, "UserRepo.GetUserByID")
	defer span.End()

	u, err := scanUser(r.pool.QueryRow(ctx, selectUserColumns+` WHERE id = $1;`, uuid.UUID(id)))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get user by id")
		return nil, errorx.Wrap(err, op)
	}

	return u, nil
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	const op = "postgres.UserRepo.GetUserByEmail"
	ctx, span := r.tracer.Start(ctx, "UserRepo.GetUserByEmail")
	defer span.End()

	u, err := scanUser(r.pool.QueryRow(ctx, selectUserColumns+` WHERE email = $1;`, user.NormalizeEmail(email)))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get user by email")
		return nil, errorx.Wrap(err, op)
	}

	return u, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var dto UserDTO
	err := row.Scan(
		&dto.ID, &dto.Email, &dto.Name, &dto.Image,
		&dto.EmailVerified, &dto.CreatedAt, &dto.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return UserToDomain(dto), nil
}
