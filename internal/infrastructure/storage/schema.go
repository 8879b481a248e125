package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []struct {
	name  string
	query string
}{
	{
		name: "catalog_products",
		query: `
		CREATE TABLE IF NOT EXISTS catalog_products (
			id TEXT PRIMARY KEY,
			identity_key TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL DEFAULT '',
			supplier_id TEXT NOT NULL DEFAULT '',
			sku TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(14,2),
			original_price NUMERIC(14,2),
			cost NUMERIC(14,2),
			currency VARCHAR(8) NOT NULL DEFAULT '',
			images TEXT[] NOT NULL DEFAULT '{}',
			videos TEXT[] NOT NULL DEFAULT '{}',
			stock INT NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			variants JSONB NOT NULL DEFAULT '[]',
			reviews JSONB NOT NULL DEFAULT '[]',
			status VARCHAR(32) NOT NULL,
			quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			supplier_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			source_type VARCHAR(32) NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			imported_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS catalog_products_supplier_idx ON catalog_products (lower(supplier_id));
		`,
	},
	{
		name: "catalog_suppliers",
		query: `
		CREATE TABLE IF NOT EXISTS catalog_suppliers (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			country VARCHAR(64) NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL DEFAULT 'active',
			quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			breakdown JSONB NOT NULL DEFAULT '{}',
			shipping_days INT NOT NULL DEFAULT 0,
			feed_url TEXT NOT NULL DEFAULT '',
			feed_type VARCHAR(32) NOT NULL DEFAULT '',
			auth_mode VARCHAR(16) NOT NULL DEFAULT '',
			auth_header TEXT NOT NULL DEFAULT '',
			auth_token TEXT NOT NULL DEFAULT '',
			auth_username TEXT NOT NULL DEFAULT '',
			auth_password TEXT NOT NULL DEFAULT '',
			last_sync_at TIMESTAMPTZ,
			last_sync_status VARCHAR(32) NOT NULL DEFAULT ''
		);
		`,
	},
	{
		name: "supplier_orders",
		query: `
		CREATE TABLE IF NOT EXISTS supplier_orders (
			id BIGSERIAL PRIMARY KEY,
			supplier_id TEXT NOT NULL REFERENCES catalog_suppliers(id),
			on_time BOOLEAN NOT NULL DEFAULT TRUE,
			fulfillment_hours DOUBLE PRECISION,
			price_ratio DOUBLE PRECISION,
			complaint BOOLEAN NOT NULL DEFAULT FALSE,
			returned BOOLEAN NOT NULL DEFAULT FALSE,
			support_reply_hours DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS supplier_orders_supplier_idx ON supplier_orders (supplier_id);
		`,
	},
}

// Migrate creates the catalog tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, step := range schema {
		if _, err := db.ExecContext(ctx, step.query); err != nil {
			return fmt.Errorf("create %s: %w", step.name, err)
		}
	}
	return nil
}
