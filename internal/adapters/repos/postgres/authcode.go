package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/adapters/repos"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
	"gitlab.com/ucmsv2/authcode-service/pkg/postgres"
)

type AuthCodeRepo struct {
	tracer trace.Tracer
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewAuthCodeRepo creates a new instance of AuthCodeRepo.
// It also sets default tracer and logger if they are nil.
//
//	WARNING; panics if pool is nil
func NewAuthCodeRepo(pool *pgxpool.Pool, t trace.Tracer, l *slog.Logger) *AuthCodeRepo {
	if pool == nil {
		panic("pgxpool.Pool cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &AuthCodeRepo{
		tracer: t,
		logger: l,
		pool:   pool,
	}
}

func (r *AuthCodeRepo) FindLive(ctx context.Context, filter authcode.LiveFilter) ([]*authcode.AuthCode, error) {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.FindLive",
		trace.WithAttributes(
			attribute.String("authcode.site_id", filter.SiteID),
			attribute.String("authcode.user_id", filter.UserID),
			attribute.Bool("authcode.with_code", filter.Code != ""),
		))
	defer span.End()

	codes, err := r.findLive(ctx, filter)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to find live auth codes")
		return nil, err
	}
	span.SetAttributes(attribute.Int("authcode.found", len(codes)))
	return codes, nil
}

func (r *AuthCodeRepo) findLive(ctx context.Context, filter authcode.LiveFilter) ([]*authcode.AuthCode, error) {
	query := `
		SELECT id, site_id, user_id, code, expires_at, created_at, updated_at
		FROM auth_codes
		WHERE site_id = $1
		  AND user_id = $2
		  AND expires_at > $3
		  AND ($4::text = '' OR code = $4::text);
	`

	rows, err := postgres.QuerierFrom(ctx, r.pool).Query(ctx, query,
		filter.SiteID, filter.UserID, filter.Now, filter.Code,
	)
	if err != nil {
		return nil, wrapError("query live auth codes", err)
	}

	dtos, err := pgx.CollectRows(rows, pgx.RowToStructByName[AuthCodeDTO])
	if err != nil {
		return nil, wrapError("scan live auth codes", err)
	}

	codes := make([]*authcode.AuthCode, 0, len(dtos))
	for _, dto := range dtos {
		codes = append(codes, AuthCodeToDomain(dto))
	}
	return codes, nil
}

func (r *AuthCodeRepo) Insert(ctx context.Context, a *authcode.AuthCode) error {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.Insert")
	defer span.End()

	if err := r.insert(ctx, a); err != nil {
		otelx.RecordSpanError(span, err, "failed to insert auth code")
		return err
	}
	return nil
}

func (r *AuthCodeRepo) insert(ctx context.Context, a *authcode.AuthCode) error {
	if a == nil {
		return ErrNilAuthCode
	}
	dto := DomainToAuthCodeDTO(a)

	query := `
		INSERT INTO auth_codes (id, site_id, user_id, code, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	res, err := postgres.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		dto.ID, dto.SiteID, dto.UserID, dto.Code,
		dto.ExpiresAt, dto.CreatedAt, dto.UpdatedAt,
	)
	if err != nil {
		return wrapError("insert auth code", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("insert auth code: %w", repos.ErrNoRowsAffected)
	}
	return nil
}

// InsertIfNoneLive inserts a unless a live code for the same (site, user)
// already exists, in which case the live codes are returned and nothing is
// written. Writers for the same pair are serialized by a transaction scoped
// advisory lock.
func (r *AuthCodeRepo) InsertIfNoneLive(ctx context.Context, a *authcode.AuthCode, now time.Time) ([]*authcode.AuthCode, error) {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.InsertIfNoneLive")
	defer span.End()

	if a == nil {
		return nil, ErrNilAuthCode
	}

	var existing []*authcode.AuthCode
	err := postgres.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2));`, a.SiteID(), a.UserID()); err != nil {
			return wrapError("lock auth code scope", err)
		}

		live, err := r.findLive(ctx, authcode.LiveFilter{SiteID: a.SiteID(), UserID: a.UserID(), Now: now})
		if err != nil {
			return err
		}
		if len(live) > 0 {
			existing = live
			return nil
		}

		return r.insert(ctx, a)
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to conditionally insert auth code")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("authcode.inserted", len(existing) == 0))
	return existing, nil
}

func (r *AuthCodeRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.DeleteExpired")
	defer span.End()

	res, err := postgres.QuerierFrom(ctx, r.pool).Exec(ctx, `DELETE FROM auth_codes WHERE expires_at <= $1;`, before)
	if err != nil {
		err = wrapError("delete expired auth codes", err)
		otelx.RecordSpanError(span, err, "failed to delete expired auth codes")
		return 0, err
	}

	deleted := res.RowsAffected()
	span.SetAttributes(attribute.Int64("authcode.deleted", deleted))
	return deleted, nil
}

func (r *AuthCodeRepo) Ping(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "AuthCodeRepo.Ping")
	defer span.End()

	if err := r.pool.Ping(ctx); err != nil {
		err = wrapError("ping", err)
		otelx.RecordSpanError(span, err, "failed to ping database")
		r.logger.WarnContext(ctx, "database ping failed", slog.Any("error", err))
		return err
	}
	return nil
}
