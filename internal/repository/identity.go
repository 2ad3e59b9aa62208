package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

type IdentityRepository struct {
	pool PgxPool
}

func NewIdentityRepository(pool PgxPool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO identities (name, facial_data, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		identity.Name,
		identity.FacialData,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdentityExists
		}
		return fmt.Errorf("create identity: %w", err)
	}

	return nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	query := `
		SELECT id, name, facial_data, created_at, updated_at
		FROM identities
		WHERE id = $1
	`

	return r.scanIdentity(r.pool.QueryRow(ctx, query, id), "get identity by id")
}

func (r *IdentityRepository) GetByName(ctx context.Context, name string) (*domain.Identity, error) {
	query := `
		SELECT id, name, facial_data, created_at, updated_at
		FROM identities
		WHERE name = $1
	`

	return r.scanIdentity(r.pool.QueryRow(ctx, query, name), "get identity by name")
}

func (r *IdentityRepository) scanIdentity(row pgx.Row, op string) (*domain.Identity, error) {
	var identity domain.Identity
	err := row.Scan(
		&identity.ID,
		&identity.Name,
		&identity.FacialData,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &identity, nil
}

func (r *IdentityRepository) UpdateName(ctx context.Context, id int64, name string) error {
	query := `
		UPDATE identities
		SET name = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, name)
	if err != nil {
		return fmt.Errorf("update identity name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

func (r *IdentityRepository) UpdateFacialData(ctx context.Context, id int64, facialData []byte) error {
	query := `
		UPDATE identities
		SET facial_data = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, facialData)
	if err != nil {
		return fmt.Errorf("update identity facial data: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

// Delete removes the identity. Permissions cascade away with it;
// access requests keep their rows with a nulled identity reference so
// the audit trail survives (FK is ON DELETE SET NULL).
func (r *IdentityRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM identities
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

// IDs returns every identity id. The label space of the classifier is
// exactly this set.
func (r *IdentityRepository) IDs(ctx context.Context) ([]int64, error) {
	query := `
		SELECT id
		FROM identities
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identity ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list identity ids: %w", err)
	}

	return ids, nil
}

// References returns id and reference image of every identity, used
// to rebuild the embedding store after a crash before first snapshot.
func (r *IdentityRepository) References(ctx context.Context) ([]domain.Identity, error) {
	query := `
		SELECT id, name, facial_data, created_at, updated_at
		FROM identities
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identity references: %w", err)
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(
			&identity.ID,
			&identity.Name,
			&identity.FacialData,
			&identity.CreatedAt,
			&identity.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan identity reference: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list identity references: %w", err)
	}

	return identities, nil
}
