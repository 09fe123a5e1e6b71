package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/acme/acme-auth/internal/domain/account"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
	"gitlab.com/acme/acme-auth/pkg/postgres"
)

const (
	accountProviderConstraint = "account_provider_account_key"

	selectAccountColumns = `SELECT id, user_id, provider_id, account_id,
        access_token, refresh_token, id_token, scope, access_token_expires_at,
        created_at, updated_at
    FROM account`

	insertAccountQuery = `INSERT INTO account (id, user_id, provider_id, account_id,
        access_token, refresh_token, id_token, scope, access_token_expires_at,
        created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	updateAccountQuery = `UPDATE account
    SET access_token = $2, refresh_token = $3, id_token = $4, scope = $5,
        access_token_expires_at = $6, updated_at = $7
    WHERE id = $1;`
)

type AccountRepo struct {
	tracer trace.Tracer
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewAccountRepo creates a new instance of AccountRepo.
//
// WARNING: panics if pool is nil
func NewAccountRepo(pool *pgxpool.Pool, t trace.Tracer, l *slog.Logger) *AccountRepo {
	if pool == nil {
		panic("pgxpool.Pool cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &AccountRepo{
		tracer: t,
		logger: l,
		pool:   pool,
	}
}

func (r *AccountRepo) GetAccount(
	ctx context.Context,
	provider account.ProviderID,
	accountID string,
) (*account.Account, error) {
	const op = "postgres.AccountRepo.GetAccount"
	ctx, span := r.tracer.Start(ctx, "AccountRepo.GetAccount",
		trace.WithAttributes(attribute.String(otelx.AttrProvider, provider.String())))
	defer span.End()

	a, err := scanAccount(r.pool.QueryRow(ctx,
		selectAccountColumns+` WHERE provider_id = $1 AND account_id = $2;`,
		provider.String(), accountID,
	))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to get account")
		return nil, errorx.Wrap(err, op)
	}

	return a, nil
}

func (r *AccountRepo) SaveAccount(ctx context.Context, a *account.Account) error {
	const op = "postgres.AccountRepo.SaveAccount"
	ctx, span := r.tracer.Start(ctx, "AccountRepo.SaveAccount",
		trace.WithAttributes(
			attribute.String(otelx.AttrProvider, a.ProviderID().String()),
			attribute.String(otelx.AttrUserID, a.UserID().String()),
		))
	defer span.End()

	dto := DomainToAccountDTO(a)
	res, err := r.pool.Exec(ctx, insertAccountQuery,
		dto.ID,
		dto.UserID,
		dto.ProviderID,
		dto.AccountID,
		dto.AccessToken,
		dto.RefreshToken,
		dto.IDToken,
		dto.Scope,
		dto.AccessTokenExpiresAt,
		dto.CreatedAt,
		dto.UpdatedAt,
	)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to insert account")
		if isUniqueViolation(err, accountProviderConstraint) {
			return errorx.Wrap(errorx.NewDuplicateEntryWithField("account", i18nx.FieldProvider).WithCause(err), op)
		}
		return errorx.Wrap(err, op)
	}
	if res.RowsAffected() == 0 {
		otelx.RecordSpanError(span, ErrNoRowsAffected, "no rows affected while inserting account")
		return errorx.Wrap(ErrNoRowsAffected, op)
	}

	return nil
}

func (r *AccountRepo) UpdateAccount(
	ctx context.Context,
	provider account.ProviderID,
	accountID string,
	fn func(ctx context.Context, a *account.Account) error,
) error {
	const op = "postgres.AccountRepo.UpdateAccount"
	ctx, span := r.tracer.Start(ctx, "AccountRepo.UpdateAccount",
		trace.WithAttributes(attribute.String(otelx.AttrProvider, provider.String())))
	defer span.End()
	if fn == nil {
		otelx.RecordSpanError(span, ErrNilFunc, "update function cannot be nil")
		return ErrNilFunc
	}

	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		a, err := scanAccount(tx.QueryRow(ctx,
			selectAccountColumns+` WHERE provider_id = $1 AND account_id = $2 FOR UPDATE;`,
			provider.String(), accountID,
		))
		if err != nil {
			return err
		}

		if err := fn(ctx, a); err != nil {
			return err
		}

		dto := DomainToAccountDTO(a)
		res, err := tx.Exec(ctx, updateAccountQuery,
			dto.ID,
			dto.AccessToken,
			dto.RefreshToken,
			dto.IDToken,
			dto.Scope,
			dto.AccessTokenExpiresAt,
			dto.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrNoRowsAffected
		}
		return nil
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "transaction to update account failed")
		return errorx.Wrap(err, op)
	}

	return nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var dto AccountDTO
	err := row.Scan(
		&dto.ID, &dto.UserID, &dto.ProviderID, &dto.AccountID,
		&dto.AccessToken, &dto.RefreshToken, &dto.IDToken, &dto.Scope, &dto.AccessTokenExpiresAt,
		&dto.CreatedAt, &dto.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorx.NewResourceNotFound("account").WithCause(err)
		}
		return nil, err
	}

	return AccountToDomain(dto), nil
}
