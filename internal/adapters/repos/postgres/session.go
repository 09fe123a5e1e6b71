package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/session"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/postgres"
)

const (
	selectSessionColumns = `SELECT id, user_id, expires_at, ip_address, user_agent, created_at, updated_at FROM session`

	insertSessionQuery = `INSERT INTO session (id, user_id, expires_at, ip_address, user_agent, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7);`

	updateSessionQuery = `UPDATE session SET expires_at = $2, updated_at = $3 WHERE id = $1;`

	deleteSessionQuery = `DELETE FROM session WHERE id = $1;`

	deleteExpiredSessionsQuery = `DELETE FROM session WHERE expires_at <= $1;`
)

type SessionRepo struct {
	tracer trace.Tracer
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewSessionRepo creates a new instance of SessionRepo.
//
// WARNING: panics if pool is nil
func NewSessionRepo(pool *pgxpool.Pool, t trace.Tracer, l *slog.Logger) *SessionRepo {
	if pool == nil {
		panic("pgxpool.Pool cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &SessionRepo{
		tracer: t,
		logger: l,
		pool:   pool,
	}
}

func (r *SessionRepo) SaveSession(ctx context.Context, s *session.Session) error {
	const op = "postgres.SessionRepo.SaveSession"
	ctx, span := r.tracer.Start(ctx, "SessionRepo.SaveSession",
		trace.WithAttributes(attribute.String(otelx.AttrSessionID, s.ID().String())))
	defer span.End()

	dto := DomainToSessionDTO(s)
	res, err := r.pool.Exec(ctx, insertSessionQuery,
		dto.ID,
		dto.UserID,
		dto.ExpiresAt,
		dto.IPAddress,
		dto.UserAgent,
		dto.CreatedAt,
		dto.UpdatedAt,
	)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to insert session")
		return errorx.Wrap(err, op)
	}
	if res.RowsAffected() == 0 {
		otelx.RecordSpanError(span, ErrNoRowsAffected, "no rows affected while inserting session")
		return errorx.Wrap(ErrNoRowsAffected, op)
	}

	return nil
}

func (r *SessionRepo) GetSessionByID(ctx context.Context, id session.ID) (*session.Session, error) {
	const op = "postgres.SessionRepo.GetSessionByID"
	ctx, span := r.tracer.Start(ctx, "SessionRepo.GetSessionByID",
		trace.WithAttributes(attribute.String(otelx.AttrSessionID, id.String())))
	defer span.End()

	s, err := scanSession(r.pool.QueryRow(ctx, selectSessionColumns+` WHERE id = $1;`, id.String()))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get session by id")
		return nil, errorx.Wrap(err, op)
	}

	return s, nil
}

func (r *SessionRepo) UpdateSession(
	ctx context.Context,
	id session.ID,
	fn func(ctx context.Context, s *session.Session) error,
) error {
	const op = "postgres.SessionRepo.UpdateSession"
	ctx, span := r.tracer.Start(ctx, "SessionRepo.UpdateSession",
		trace.WithAttributes(attribute.String(otelx.AttrSessionID, id.String())))
	defer span.End()
	if fn == nil {
		otelx.RecordSpanError(span, ErrNilFunc, "update function cannot be nil")
		return ErrNilFunc
	}

	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		s, err := scanSession(tx.QueryRow(ctx, selectSessionColumns+` WHERE id = $1 FOR UPDATE;`, id.String()))
		if err != nil {
			return err
		}

		if err := fn(ctx, s); err != nil {
			return err
		}

		res, err := tx.Exec(ctx, updateSessionQuery, s.ID().String(), s.ExpiresAt(), s.UpdatedAt())
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrNoRowsAffected
		}
		return nil
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "transaction to update session failed")
		return errorx.Wrap(err, op)
	}

	return nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, id session.ID) error {
	const op = "postgres.SessionRepo.DeleteSession"
	ctx, span := r.tracer.Start(ctx, "SessionRepo.DeleteSession",
		trace.WithAttributes(attribute.String(otelx.AttrSessionID, id.String())))
	defer span.End()

	res, err := r.pool.Exec(ctx, deleteSessionQuery, id.String())
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to delete session")
		return errorx.Wrap(err, op)
	}
	if res.RowsAffected() == 0 {
		return errorx.Wrap(errorx.NewResourceNotFound("session"), op)
	}

	return nil
}

// DeleteExpiredSessions removes every session that expired at or before now
// and returns how many rows were removed.
func (r *SessionRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const op = "postgres.SessionRepo.DeleteExpiredSessions"
	ctx, span := r.tracer.Start(ctx, "SessionRepo.DeleteExpiredSessions")
	defer span.End()

	res, err := r.pool.Exec(ctx, deleteExpiredSessionsQuery, now)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to delete expired sessions")
		return 0, errorx.Wrap(err, op)
	}

	return res.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var dto SessionDTO
	err := row.Scan(
		&dto.ID, &dto.UserID, &dto.ExpiresAt,
		&dto.IPAddress, &dto.UserAgent, &dto.CreatedAt, &dto.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorx.NewResourceNotFound("session").WithCause(err)
		}
		return nil, err
	}

	return SessionToDomain(dto), nil
}
