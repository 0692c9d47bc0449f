package bots

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access methods for bots.
type RepositoryPort interface {
	ListBots(ctx context.Context, ownerID string) ([]Bot, error)
	GetBot(ctx context.Context, id string) (*Bot, error)
	RecordCommand(ctx context.Context, botID, command, issuedBy string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBots returns the owner's bots.
func (r *Repository) ListBots(ctx context.Context, ownerID string) ([]Bot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, mode, status, equity, day_pnl, pairlist,
		       COALESCE(strategy_id, ''), owner_id, created_at, updated_at
		  FROM bots WHERE owner_id = $1 ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *bot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBot fetches a bot by ID.
func (r *Repository) GetBot(ctx context.Context, id string) (*Bot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, mode, status, equity, day_pnl, pairlist,
		       COALESCE(strategy_id, ''), owner_id, created_at, updated_at
		  FROM bots WHERE id = $1`, id)
	bot, err := scanBot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return bot, nil
}

// FindBotOwner resolves just the owner, for cross-module promotion checks.
func (r *Repository) FindBotOwner(ctx context.Context, botID string) (string, error) {
	var owner string
	err := r.pool.QueryRow(ctx, `SELECT owner_id FROM bots WHERE id = $1`, botID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return owner, nil
}

// RecordCommand appends a lifecycle command to the bot's command log.
func (r *Repository) RecordCommand(ctx context.Context, botID, command, issuedBy string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bot_commands (bot_id, command, issued_by, created_at)
		VALUES ($1, $2, $3, now())`, botID, command, issuedBy)
	return err
}

func scanBot(row pgx.Row) (*Bot, error) {
	var bot Bot
	var pairlist []byte
	if err := row.Scan(&bot.ID, &bot.Name, &bot.Mode, &bot.Status, &bot.Equity,
		&bot.DayPnl, &pairlist, &bot.StrategyID, &bot.OwnerID,
		&bot.CreatedAt, &bot.UpdatedAt); err != nil {
		return nil, err
	}
	if len(pairlist) > 0 {
		if err := json.Unmarshal(pairlist, &bot.Pairlist); err != nil {
			return nil, err
		}
	}
	return &bot, nil
}
