package db

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixhub-app/fixhub/internal/logger"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and bootstraps the schema.
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("unable to connect to database")
	}

	if err = Conn.Ping(context.Background()); err != nil {
		logger.Log.Fatal().Err(err).Msg("unable to ping database")
	}

	logger.Log.Info().Msg("connected to Postgres")

	ensureUsersTables()
	ensureAgentTables()
	ensureGigTables()
	ensureRequestTables()
	ensureOrderTables()
	ensureLedgerTables()
	ensureBadgeTable()
	ensureNotificationsTable()
	ensureSettingsTable()
}

// Close releases the pool.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

func exec(label, sql string) {
	if _, err := Conn.Exec(context.Background(), sql); err != nil {
		logger.Log.Error().Err(err).Str("step", label).Msg("schema bootstrap failed")
	}
}

func ensureUsersTables() {
	exec("users", `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT,
            password_hash TEXT,
            roles TEXT[] NOT NULL DEFAULT '{CLIENT}',
            status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (status IN ('PENDING','ACTIVE','SUSPENDED','REJECTED')),
            status_reason TEXT,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)

	exec("fixer_profiles", `
        CREATE TABLE IF NOT EXISTS fixer_profiles (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
            display_name TEXT NOT NULL,
            bio TEXT,
            category_ids TEXT[] NOT NULL DEFAULT '{}',
            neighborhood_id TEXT,
            approved_at TIMESTAMPTZ NULL,
            pending_changes BOOLEAN NOT NULL DEFAULT FALSE,
            rejection_reason TEXT,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)

	exec("login_tokens", `
        CREATE TABLE IF NOT EXISTS login_tokens (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            token_hash TEXT NOT NULL UNIQUE,
            expires_at TIMESTAMPTZ NOT NULL,
            used_at TIMESTAMPTZ NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)
}

func ensureAgentTables() {
	exec("agents", `
        CREATE TABLE IF NOT EXISTS agents (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
            business_name TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (status IN ('PENDING','ACTIVE','SUSPENDED','REJECTED','BANNED')),
            status_reason TEXT,
            requested_neighborhood_ids TEXT[] NOT NULL DEFAULT '{}',
            approved_neighborhood_ids TEXT[] NOT NULL DEFAULT '{}',
            commission_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
            fixer_bonus_enabled BOOLEAN NOT NULL DEFAULT FALSE,
            wallet_balance BIGINT NOT NULL DEFAULT 0,
            total_earned BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)

	exec("agent_fixers", `
        CREATE TABLE IF NOT EXISTS agent_fixers (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            agent_id UUID NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
            fixer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            vet_status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (vet_status IN ('PENDING','APPROVED','REJECTED')),
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (agent_id, fixer_id)
        )`)

	exec("agent_clients", `
        CREATE TABLE IF NOT EXISTS agent_clients (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            agent_id UUID NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
            client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            vet_status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (vet_status IN ('PENDING','APPROVED','REJECTED')),
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (agent_id, client_id)
        )`)

	exec("agent_gigs", `
        CREATE TABLE IF NOT EXISTS agent_gigs (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            agent_fixer_id UUID NOT NULL REFERENCES agent_fixers(id) ON DELETE CASCADE,
            gig_id UUID NOT NULL UNIQUE,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)

	exec("agent_quotes", `
        CREATE TABLE IF NOT EXISTS agent_quotes (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            agent_fixer_id UUID NOT NULL REFERENCES agent_fixers(id) ON DELETE CASCADE,
            quote_id UUID NOT NULL UNIQUE,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)
}

func ensureGigTables() {
	exec("gigs", `
        CREATE TABLE IF NOT EXISTS gigs (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            fixer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT,
            category_id TEXT NOT NULL,
            neighborhood_id TEXT,
            status TEXT NOT NULL DEFAULT 'DRAFT'
                CHECK (status IN ('DRAFT','PENDING_REVIEW','ACTIVE','PAUSED')),
            pending_changes BOOLEAN NOT NULL DEFAULT FALSE,
            rejection_reason TEXT,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_gigs_fixer ON gigs(fixer_id);
        CREATE INDEX IF NOT EXISTS idx_gigs_status ON gigs(status)`)

	exec("gig_packages", `
        CREATE TABLE IF NOT EXISTS gig_packages (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            gig_id UUID NOT NULL REFERENCES gigs(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            description TEXT,
            price BIGINT NOT NULL CHECK (price > 0),
            delivery_days INTEGER NOT NULL DEFAULT 1,
            revisions INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_gig_packages_gig ON gig_packages(gig_id)`)
}

func ensureRequestTables() {
	exec("service_requests", `
        CREATE TABLE IF NOT EXISTS service_requests (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT,
            category_id TEXT NOT NULL,
            neighborhood_id TEXT NOT NULL,
            budget BIGINT,
            status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (status IN ('PENDING','APPROVED','ACCEPTED','CANCELLED')),
            accepted_quote_id UUID NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_requests_client ON service_requests(client_id);
        CREATE INDEX IF NOT EXISTS idx_requests_status ON service_requests(status)`)

	exec("quotes", `
        CREATE TABLE IF NOT EXISTS quotes (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            request_id UUID NOT NULL REFERENCES service_requests(id) ON DELETE CASCADE,
            fixer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL CHECK (amount > 0),
            message TEXT,
            quote_type TEXT NOT NULL DEFAULT 'STANDARD'
                CHECK (quote_type IN ('STANDARD','INSPECTION_REQUIRED')),
            inspection_fee BIGINT NOT NULL DEFAULT 0,
            inspection_fee_paid BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (request_id, fixer_id)
        )`)
}

func ensureOrderTables() {
	exec("orders", `
        CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            gig_id UUID NULL REFERENCES gigs(id),
            package_id UUID NULL REFERENCES gig_packages(id),
            request_id UUID NULL REFERENCES service_requests(id),
            quote_id UUID NULL REFERENCES quotes(id),
            client_id UUID NOT NULL REFERENCES users(id),
            fixer_id UUID NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (status IN ('PENDING','IN_PROGRESS','COMPLETED','CANCELLED','PAID','SETTLED')),
            total_amount BIGINT NOT NULL CHECK (total_amount > 0),
            platform_fee BIGINT NOT NULL,
            fixer_amount BIGINT NOT NULL,
            revisions_allowed INTEGER NOT NULL DEFAULT 0,
            revisions_used INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            CHECK (platform_fee + fixer_amount = total_amount)
        );
        CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_id);
        CREATE INDEX IF NOT EXISTS idx_orders_fixer ON orders(fixer_id);
        CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`)
}

func ensureLedgerTables() {
	exec("purses", `
        CREATE TABLE IF NOT EXISTS purses (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
            available_balance BIGINT NOT NULL DEFAULT 0,
            pending_balance BIGINT NOT NULL DEFAULT 0,
            commission_balance BIGINT NOT NULL DEFAULT 0,
            total_revenue BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)

	// Single platform purse row, keyed by user_id IS NULL.
	exec("platform_purse_index", `
        CREATE UNIQUE INDEX IF NOT EXISTS idx_purses_platform
        ON purses((user_id IS NULL)) WHERE user_id IS NULL`)
	exec("platform_purse_seed", `
        INSERT INTO purses (user_id)
        SELECT NULL WHERE NOT EXISTS (SELECT 1 FROM purses WHERE user_id IS NULL)`)

	exec("agent_commissions", `
        CREATE TABLE IF NOT EXISTS agent_commissions (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            order_id UUID NOT NULL REFERENCES orders(id),
            agent_fixer_id UUID NOT NULL REFERENCES agent_fixers(id),
            agent_id UUID NOT NULL REFERENCES agents(id),
            fixer_id UUID NOT NULL REFERENCES users(id),
            amount BIGINT NOT NULL,
            percentage NUMERIC(5,2) NOT NULL,
            order_amount BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'ACCRUED'
                CHECK (status IN ('ACCRUED','PARTIALLY_REVERSED')),
            reversed_amount BIGINT NOT NULL DEFAULT 0,
            reversal_reason TEXT,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (order_id, agent_fixer_id)
        )`)
}

func ensureBadgeTable() {
	exec("badge_requests", `
        CREATE TABLE IF NOT EXISTS badge_requests (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            fixer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            badge_type TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (status IN ('PENDING','PAYMENT_RECEIVED','MORE_INFO_NEEDED','APPROVED','REJECTED')),
            payment_status TEXT NOT NULL DEFAULT 'PENDING'
                CHECK (payment_status IN ('PENDING','PAID')),
            admin_notes TEXT,
            rejection_reason TEXT,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_badge_requests_fixer ON badge_requests(fixer_id)`)
}

func ensureNotificationsTable() {
	exec("notifications", `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT,
            reference UUID NULL,
            metadata JSONB NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMPTZ NULL
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL`)
}

func ensureSettingsTable() {
	exec("settings", `
        CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`)
	exec("settings_defaults", `
        INSERT INTO settings (key, value) VALUES
            ('platform_commission_percentage', '0.20'),
            ('commission_refund_percentage', '0.50'),
            ('auto_release_escrow_days', '7')
        ON CONFLICT (key) DO NOTHING`)
}
