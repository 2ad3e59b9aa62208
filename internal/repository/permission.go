package repository

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type PermissionRepository struct {
	pool PgxPool
}

func NewPermissionRepository(pool PgxPool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

// Add grants a level to an identity. Insert-or-ignore against the
// (identity_id, level) unique constraint: re-adding an existing level
// is a no-op even under concurrent identical calls.
func (r *PermissionRepository) Add(ctx context.Context, identityID int64, level domain.Level) error {
	query := `
		INSERT INTO permissions (identity_id, level, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identity_id, level) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, identityID, string(level)); err != nil {
		return fmt.Errorf("add permission: %w", err)
	}

	return nil
}

func (r *PermissionRepository) ListByIdentity(ctx context.Context, identityID int64) ([]domain.Permission, error) {
	query := `
		SELECT id, identity_id, level, created_at
		FROM permissions
		WHERE identity_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.IdentityID, &p.Level, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}

	return permissions, nil
}

func (r *PermissionRepository) Has(ctx context.Context, identityID int64, level domain.Level) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM permissions
			WHERE identity_id = $1 AND level = $2
		)
	`

	var has bool
	if err := r.pool.QueryRow(ctx, query, identityID, string(level)).Scan(&has); err != nil {
		return false, fmt.Errorf("check permission: %w", err)
	}

	return has, nil
}

// RevokeLevel removes one level from an identity. Revoking a level the
// identity does not hold is a no-op.
func (r *PermissionRepository) RevokeLevel(ctx context.Context, identityID int64, level domain.Level) error {
	query := `
		DELETE FROM permissions
		WHERE identity_id = $1 AND level = $2
	`

	if _, err := r.pool.Exec(ctx, query, identityID, string(level)); err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}

	return nil
}

// RevokeAll removes every permission an identity holds.
func (r *PermissionRepository) RevokeAll(ctx context.Context, identityID int64) error {
	query := `
		DELETE FROM permissions
		WHERE identity_id = $1
	`

	if _, err := r.pool.Exec(ctx, query, identityID); err != nil {
		return fmt.Errorf("revoke all permissions: %w", err)
	}

	return nil
}
