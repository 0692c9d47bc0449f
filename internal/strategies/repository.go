package strategies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access methods for the models area.
type RepositoryPort interface {
	ListStrategies(ctx context.Context, ownerID string) ([]Strategy, error)
	CreateStrategy(ctx context.Context, s *Strategy, initial *VersionRef) error
	GetRun(ctx context.Context, id string) (*Run, error)
	CreateRun(ctx context.Context, run *Run) error
	CreatePromotion(ctx context.Context, p *Promotion) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListStrategies returns the owner's strategies, most recently updated
// first, with the latest version joined when present.
func (r *Repository) ListStrategies(ctx context.Context, ownerID string) ([]Strategy, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.slug, s.name, COALESCE(s.description, ''), s.owner_id,
		       s.created_at, s.updated_at,
		       v.id, v.version_tag, v.storage_key
		  FROM strategies s
		  LEFT JOIN strategy_versions v ON v.id = s.latest_version_id
		 WHERE s.owner_id = $1
		 ORDER BY s.updated_at DESC
		 LIMIT 50`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Strategy
	for rows.Next() {
		var s Strategy
		var versionID, versionTag, storageKey *string
		if err := rows.Scan(&s.ID, &s.Slug, &s.Name, &s.Description, &s.OwnerID,
			&s.CreatedAt, &s.UpdatedAt, &versionID, &versionTag, &storageKey); err != nil {
			return nil, err
		}
		if versionID != nil {
			s.LatestVersion = &VersionRef{ID: *versionID, VersionTag: *versionTag, StorageKey: *storageKey}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateStrategy inserts a strategy together with its initial version and
// latest-version pointer in one transaction.
func (r *Repository) CreateStrategy(ctx context.Context, s *Strategy, initial *VersionRef) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO strategies (id, slug, name, description, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())`,
		s.ID, s.Slug, s.Name, s.Description, s.OwnerID); err != nil {
		return err
	}
	if initial != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO strategy_versions (id, strategy_id, version_tag, storage_key, created_by)
			VALUES ($1, $2, $3, $4, $5)`,
			initial.ID, s.ID, initial.VersionTag, initial.StorageKey, s.OwnerID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE strategies SET latest_version_id = $1 WHERE id = $2`,
			initial.ID, s.ID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetRun fetches a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, strategy_id, owner_id, kind, status, spec, params,
		       COALESCE(artifact_prefix, ''), created_at
		  FROM runs WHERE id = $1`, id)
	var run Run
	err := row.Scan(&run.ID, &run.StrategyID, &run.OwnerID, &run.Kind, &run.Status,
		&run.Spec, &run.Params, &run.ArtifactPrefix, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// CreateRun inserts a queued run.
func (r *Repository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO runs (id, strategy_id, owner_id, kind, status, spec, params, artifact_prefix, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		run.ID, run.StrategyID, run.OwnerID, run.Kind, run.Status,
		run.Spec, run.Params, run.ArtifactPrefix)
	return err
}

// CreatePromotion inserts a promotion record.
func (r *Repository) CreatePromotion(ctx context.Context, p *Promotion) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO promotions (id, run_id, bot_id, target, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		p.ID, p.RunID, p.BotID, p.Target, p.Status)
	return err
}
