package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type AccessRepository struct {
	pool PgxPool
}

func NewAccessRepository(pool PgxPool) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// CreateWithLog writes one AccessRequest and its AccessLog in a single
// transaction. A reader must never observe a request without its log,
// so the pair commits as one unit or not at all.
func (r *AccessRepository) CreateWithLog(ctx context.Context, request *domain.AccessRequest, details string) (*domain.AccessLog, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin decision transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	requestQuery := `
		INSERT INTO access_requests (identity_id, required_level, outcome, facial_data, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, requestQuery,
		request.IdentityID,
		string(request.RequiredLevel),
		string(request.Outcome),
		request.FacialData,
	).Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create access request: %w", err)
	}

	logQuery := `
		INSERT INTO access_logs (access_request_id, details, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	accessLog := &domain.AccessLog{
		AccessRequestID: request.ID,
		Details:         details,
	}
	err = tx.QueryRow(ctx, logQuery, request.ID, details).Scan(&accessLog.ID, &accessLog.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create access log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit decision transaction: %w", err)
	}

	return accessLog, nil
}

func (r *AccessRepository) GetRequest(ctx context.Context, id int64) (*domain.AccessRequest, error) {
	query := `
		SELECT id, identity_id, required_level, outcome, facial_data, created_at
		FROM access_requests
		WHERE id = $1
	`

	var request domain.AccessRequest
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.IdentityID,
		&request.RequiredLevel,
		&request.Outcome,
		&request.FacialData,
		&request.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get access request: %w", err)
	}

	return &request, nil
}

// ListRequestsByIdentity returns an identity's access requests, most
// recent first.
func (r *AccessRepository) ListRequestsByIdentity(ctx context.Context, identityID int64) ([]domain.AccessRequest, error) {
	query := `
		SELECT id, identity_id, required_level, outcome, facial_data, created_at
		FROM access_requests
		WHERE identity_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.AccessRequest
	for rows.Next() {
		var request domain.AccessRequest
		if err := rows.Scan(
			&request.ID,
			&request.IdentityID,
			&request.RequiredLevel,
			&request.Outcome,
			&request.FacialData,
			&request.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan access request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list access requests: %w", err)
	}

	return requests, nil
}

func (r *AccessRepository) GetLog(ctx context.Context, id int64) (*domain.AccessLog, error) {
	query := `
		SELECT id, access_request_id, details, created_at
		FROM access_logs
		WHERE id = $1
	`

	var accessLog domain.AccessLog
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&accessLog.ID,
		&accessLog.AccessRequestID,
		&accessLog.Details,
		&accessLog.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get access log: %w", err)
	}

	return &accessLog, nil
}

// ListLogsByIdentity returns an identity's access logs through their
// requests, most recent request first.
func (r *AccessRepository) ListLogsByIdentity(ctx context.Context, identityID int64) ([]domain.AccessLog, error) {
	query := `
		SELECT l.id, l.access_request_id, l.details, l.created_at
		FROM access_logs l
		INNER JOIN access_requests r ON l.access_request_id = r.id
		WHERE r.identity_id = $1
		ORDER BY r.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.AccessLog
	for rows.Next() {
		var accessLog domain.AccessLog
		if err := rows.Scan(
			&accessLog.ID,
			&accessLog.AccessRequestID,
			&accessLog.Details,
			&accessLog.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		logs = append(logs, accessLog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}

	return logs, nil
}
