package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateProductsTable, downCreateProductsTable)
}

func upCreateProductsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE products (
	  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	  name TEXT NOT NULL,
	  sku TEXT UNIQUE NOT NULL,
	  price NUMERIC(12, 2) NOT NULL,
	  stock INTEGER NOT NULL DEFAULT 0,
	  category TEXT NOT NULL,
	  description TEXT NOT NULL,
	  sizes TEXT NOT NULL DEFAULT '',
	  created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE TABLE product_images (
	  product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	  url TEXT NOT NULL,
	  storage_id TEXT NOT NULL,
	  position INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateProductsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	DROP TABLE IF EXISTS product_images;
	DROP TABLE IF EXISTS products;
	`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
