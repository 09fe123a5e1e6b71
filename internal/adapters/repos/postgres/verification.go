package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/verification"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/postgres"
	"gitlab.com/acme/acme-auth/pkg/watermillx"
)

const (
	selectVerificationColumns = `SELECT id, email, purpose, code_hash, attempts, status, expires_at,
        code_ttl_seconds, resend_cooldown_seconds, resend_at, created_at, updated_at
    FROM verification`

	deleteVerificationByKeyQuery = `DELETE FROM verification WHERE email = $1 AND purpose = $2;`

	insertVerificationQuery = `INSERT INTO verification (id, email, purpose, code_hash, attempts, status, expires_at,
        code_ttl_seconds, resend_cooldown_seconds, resend_at, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	updateVerificationQuery = `UPDATE verification
    SET code_hash = $2, attempts = $3, status = $4, expires_at = $5, resend_at = $6, updated_at = $7
    WHERE id = $1;`

	deleteVerificationQuery = `DELETE FROM verification WHERE id = $1;`

	deleteExpiredVerificationsQuery = `DELETE FROM verification WHERE expires_at <= $1 AND resend_at <= $1;`
)

type VerificationRepo struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	pool    *pgxpool.Pool
	wlogger watermill.LoggerAdapter
}

// NewVerificationRepo creates a new instance of VerificationRepo.
//
// WARNING: panics if pool is nil
func NewVerificationRepo(pool *pgxpool.Pool, t trace.Tracer, l *slog.Logger) *VerificationRepo {
	if pool == nil {
		panic("pgxpool.Pool cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &VerificationRepo{
		tracer:  t,
		logger:  l,
		pool:    pool,
		wlogger: watermill.NewSlogLogger(l),
	}
}

func (r *VerificationRepo) GetVerification(
	ctx context.Context,
	email string,
	purpose verification.Purpose,
) (*verification.Verification, error) {
	const op = "postgres.VerificationRepo.GetVerification"
	ctx, span := r.tracer.Start(ctx, "VerificationRepo.GetVerification",
		trace.WithAttributes(
			otelx.EmailAttr(email),
			attribute.String(otelx.AttrPurpose, purpose.String()),
		))
	defer span.End()

	v, err := scanVerification(r.pool.QueryRow(ctx,
		selectVerificationColumns+` WHERE email = $1 AND purpose = $2;`,
		email, purpose.String(),
	))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get verification")
		return nil, errorx.Wrap(err, op)
	}

	return v, nil
}

// SaveVerification stores v, replacing any challenge for the same email and
// purpose, and writes its events to the outbox in the same transaction.
func (r *VerificationRepo) SaveVerification(ctx context.Context, v *verification.Verification) error {
	const op = "postgres.VerificationRepo.SaveVerification"
	ctx, span := r.tracer.Start(ctx, "VerificationRepo.SaveVerification",
		trace.WithAttributes(
			attribute.String(otelx.AttrVerification, v.ID().String()),
			attribute.String(otelx.AttrPurpose, v.Purpose().String()),
		))
	defer span.End()

	dto := DomainToVerificationDTO(v)
	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteVerificationByKeyQuery, dto.Email, dto.Purpose); err != nil {
			return err
		}

		res, err := tx.Exec(ctx, insertVerificationQuery,
			dto.ID,
			dto.Email,
			dto.Purpose,
			dto.CodeHash,
			dto.Attempts,
			dto.Status,
			dto.ExpiresAt,
			dto.CodeTTLSeconds,
			dto.ResendCooldownSeconds,
			dto.ResendAt,
			dto.CreatedAt,
			dto.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return errorx.NewDuplicateEntry().WithCause(err)
			}
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrNoRowsAffected
		}

		return watermillx.Publish(ctx, tx, r.wlogger, v.GetUncommittedEvents()...)
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to save verification")
		return errorx.Wrap(err, op)
	}

	return nil
}

// UpdateVerification locks the challenge for (email, purpose) and applies fn.
// When fn returns a persistable error the new state is committed first and
// the error is returned afterwards.
func (r *VerificationRepo) UpdateVerification(
	ctx context.Context,
	email string,
	purpose verification.Purpose,
	fn func(ctx context.Context, v *verification.Verification) error,
) error {
	const op = "postgres.VerificationRepo.UpdateVerification"
	ctx, span := r.tracer.Start(ctx, "VerificationRepo.UpdateVerification",
		trace.WithAttributes(
			otelx.EmailAttr(email),
			attribute.String(otelx.AttrPurpose, purpose.String()),
		))
	defer span.End()
	if fn == nil {
		otelx.RecordSpanError(span, ErrNilFunc, "update function cannot be nil")
		return ErrNilFunc
	}

	var fnerr error
	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		v, err := scanVerification(tx.QueryRow(ctx,
			selectVerificationColumns+` WHERE email = $1 AND purpose = $2 FOR UPDATE;`,
			email, purpose.String(),
		))
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String(otelx.AttrVerification, v.ID().String()))

		fnerr = fn(ctx, v)
		if fnerr != nil && !errorx.IsPersistable(fnerr) {
			return fnerr
		}

		dto := DomainToVerificationDTO(v)
		res, err := tx.Exec(ctx, updateVerificationQuery,
			dto.ID,
			dto.CodeHash,
			dto.Attempts,
			dto.Status,
			dto.ExpiresAt,
			dto.ResendAt,
			dto.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrNoRowsAffected
		}

		return watermillx.Publish(ctx, tx, r.wlogger, v.GetUncommittedEvents()...)
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "transaction to update verification failed")
		return errorx.Wrap(err, op)
	}
	if fnerr != nil {
		otelx.RecordSpanError(span, fnerr, "update function returned an error but the state was persisted")
		return errorx.Wrap(fnerr, op)
	}

	return nil
}

func (r *VerificationRepo) DeleteVerification(ctx context.Context, id verification.ID) error {
	const op = "postgres.VerificationRepo.DeleteVerification"
	ctx, span := r.tracer.Start(ctx, "VerificationRepo.DeleteVerification",
		trace.WithAttributes(attribute.String(otelx.AttrVerification, id.String())))
	defer span.End()

	res, err := r.pool.Exec(ctx, deleteVerificationQuery, uuid.UUID(id))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to delete verification")
		return errorx.Wrap(err, op)
	}
	if res.RowsAffected() == 0 {
		return errorx.Wrap(errorx.NewNotFound(), op)
	}

	return nil
}

// DeleteExpiredVerifications removes challenges whose code expired and whose
// resend cooldown elapsed at or before before. An expired challenge can still
// be revived by a resend, so callers pass a cutoff well in the past.
func (r *VerificationRepo) DeleteExpiredVerifications(ctx context.Context, before time.Time) (int64, error) {
	const op = "postgres.VerificationRepo.DeleteExpiredVerifications"
	ctx, span := r.tracer.Start(ctx, "VerificationRepo.DeleteExpiredVerifications")
	defer span.End()

	res, err := r.pool.Exec(ctx, deleteExpiredVerificationsQuery, before)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to delete expired verifications")
		return 0, errorx.Wrap(err, op)
	}

	return res.RowsAffected(), nil
}

func scanVerification(row pgx.Row) (*verification.Verification, error) {
	var dto VerificationDTO
	err := row.Scan(
		&dto.ID, &dto.Email, &dto.Purpose, &dto.CodeHash, &dto.Attempts, &dto.Status, &dto.ExpiresAt,
		&dto.CodeTTLSeconds, &dto.ResendCooldownSeconds, &dto.ResendAt, &dto.CreatedAt, &dto.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorx.NewNotFound().WithCause(err)
		}
		return nil, err
	}

	return VerificationToDomain(dto), nil
}
