package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdentityRepositoryInterface defines operations for identity data access
type IdentityRepositoryInterface interface {
	Create(ctx context.Context, identity *domain.Identity) error
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
	GetByName(ctx context.Context, name string) (*domain.Identity, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateFacialData(ctx context.Context, id int64, facialData []byte) error
	Delete(ctx context.Context, id int64) error
	IDs(ctx context.Context) ([]int64, error)
	References(ctx context.Context) ([]domain.Identity, error)
}

// PermissionRepositoryInterface defines operations for permission data access
type PermissionRepositoryInterface interface {
	Add(ctx context.Context, identityID int64, level domain.Level) error
	ListByIdentity(ctx context.Context, identityID int64) ([]domain.Permission, error)
	Has(ctx context.Context, identityID int64, level domain.Level) (bool, error)
	RevokeLevel(ctx context.Context, identityID int64, level domain.Level) error
	RevokeAll(ctx context.Context, identityID int64) error
}

// AccessRepositoryInterface defines operations for the append-only
// audit pair (access requests and their logs)
type AccessRepositoryInterface interface {
	CreateWithLog(ctx context.Context, request *domain.AccessRequest, details string) (*domain.AccessLog, error)
	GetRequest(ctx context.Context, id int64) (*domain.AccessRequest, error)
	ListRequestsByIdentity(ctx context.Context, identityID int64) ([]domain.AccessRequest, error)
	GetLog(ctx context.Context, id int64) (*domain.AccessLog, error)
	ListLogsByIdentity(ctx context.Context, identityID int64) ([]domain.AccessLog, error)
}
