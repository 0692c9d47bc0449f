// Seeds a development database with an admin account, its role
// assignments, and one sample strategy/run/bot.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL must be set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	userID := getenv("SEED_USER_ID", "user_admin")
	email := getenv("SEED_USER_EMAIL", "admin@example.com")
	name := getenv("SEED_USER_NAME", "Admin")
	password := getenv("SEED_USER_PASSWORD", "changeme")

	fmt.Println("→ Seeding admin user...")
	if err := seedUser(ctx, pool, userID, email, name, password); err != nil {
		log.Fatalf("seed user: %v", err)
	}

	fmt.Println("→ Seeding role assignments...")
	for _, role := range []string{"ADMIN", "RESEARCHER", "BOT_OPERATOR"} {
		if err := ensureRole(ctx, pool, userID, role); err != nil {
			log.Fatalf("seed role %s: %v", role, err)
		}
	}

	fmt.Println("→ Seeding sample strategy, run, and bot...")
	if err := seedSamples(ctx, pool, userID); err != nil {
		log.Fatalf("seed samples: %v", err)
	}

	fmt.Println("Database seeded.")
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, id, email, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, now(), now())
		ON CONFLICT (id) DO UPDATE SET email = $2, name = $3, updated_at = now()`,
		id, email, name, string(hash))
	return err
}

func ensureRole(ctx context.Context, pool *pgxpool.Pool, userID, role string) error {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_assignments WHERE user_id = $1 AND role = $2)`,
		userID, role).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO role_assignments (user_id, role, created_at) VALUES ($1, $2, now())`,
		userID, role)
	return err
}

func seedSamples(ctx context.Context, pool *pgxpool.Pool, ownerID string) error {
	const strategyID = "str_rsi_band"
	if _, err := pool.Exec(ctx, `
		INSERT INTO strategies (id, slug, name, description, owner_id, created_at, updated_at)
		VALUES ($1, 'rsi-band', 'RSI Band', 'Mean-reversion band on RSI', $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET owner_id = $2, updated_at = now()`,
		strategyID, ownerID); err != nil {
		return err
	}

	const versionID = "ver_rsi_band_seed"
	if _, err := pool.Exec(ctx, `
		INSERT INTO strategy_versions (id, strategy_id, version_tag, storage_key, created_by)
		VALUES ($1, $2, 'seed', 'strategies/rsi-band/seed/main.py', $3)
		ON CONFLICT (id) DO NOTHING`,
		versionID, strategyID, ownerID); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx,
		`UPDATE strategies SET latest_version_id = $1 WHERE id = $2`,
		versionID, strategyID); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO runs (id, strategy_id, owner_id, kind, status, spec, params, artifact_prefix, created_at)
		VALUES ('run_seed_001', $1, $2, 'BACKTEST', 'SUCCEEDED',
		        '{"exchange":"binance","pair":"BTC/USDT","timeframe":"1h","start":"2024-01-01","end":"2024-03-01"}',
		        '{"rsi_len":14,"rsi_buy":30,"rsi_sell":70}',
		        'runs/run_seed_001/', now())
		ON CONFLICT (id) DO UPDATE SET status = 'SUCCEEDED'`,
		strategyID, ownerID); err != nil {
		return err
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO bots (id, name, mode, status, equity, day_pnl, pairlist, strategy_id, owner_id, created_at, updated_at)
		VALUES ('bot_seed_001', 'RSI Band Bot', 'paper', 'RUNNING', 10234.5, 123.45,
		        '["BTC/USDT","ETH/USDT"]', $1, $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET status = 'RUNNING', updated_at = now()`,
		strategyID, ownerID)
	return err
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
