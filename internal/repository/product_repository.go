package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/irfandhmahudi/backend-mern/internal/model"
)

// UpdateProductParams carries the partial-update fields; nil means keep.
type UpdateProductParams struct {
	Name        *string
	SKU         *string
	Price       *float64
	Stock       *int
	Category    *string
	Description *string
	Sizes       *string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) (uuid.UUID, error)
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) error
	ReplaceImages(ctx context.Context, id uuid.UUID, images []model.ProductImage) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresProductRepository struct {
	db *sqlx.DB
}

func NewPostgresProductRepository(db *sqlx.DB) ProductRepository {
	return &postgresProductRepository{db: db}
}

func (r *postgresProductRepository) Create(ctx context.Context, product *model.Product) (uuid.UUID, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (name, sku, price, stock, category, description, sizes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var newID uuid.UUID
	err = tx.QueryRowxContext(ctx, query,
		product.Name, product.SKU, product.Price, product.Stock,
		product.Category, product.Description, product.Sizes,
	).Scan(&newID)
	if err != nil {
		return uuid.Nil, err
	}

	for i, img := range product.Images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_images (product_id, url, storage_id, position) VALUES ($1, $2, $3, $4)`,
			newID, img.URL, img.StorageID, i,
		)
		if err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	return newID, nil
}

func (r *postgresProductRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	query := `SELECT id, name, sku, price, stock, category, description, sizes, created_at, updated_at FROM products ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, err
	}

	var images []model.ProductImage
	if err := r.db.SelectContext(ctx, &images,
		`SELECT product_id, url, storage_id, position FROM product_images ORDER BY product_id, position`,
	); err != nil {
		return nil, err
	}

	byProduct := make(map[uuid.UUID][]model.ProductImage, len(products))
	for _, img := range images {
		byProduct[img.ProductID] = append(byProduct[img.ProductID], img)
	}
	for i := range products {
		products[i].Images = byProduct[products[i].ID]
	}

	return products, nil
}

// FindByID returns (nil, nil) when the product does not exist.
func (r *postgresProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	query := `SELECT id, name, sku, price, stock, category, description, sizes, created_at, updated_at FROM products WHERE id = $1`
	err := r.db.GetContext(ctx, &product, query, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &product.Images,
		`SELECT product_id, url, storage_id, position FROM product_images WHERE product_id = $1 ORDER BY position`, id,
	); err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *postgresProductRepository) Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) error {
	var setClauses []string
	var args []interface{}
	argID := 1

	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.SKU != nil {
		add("sku", *params.SKU)
	}
	if params.Price != nil {
		add("price", *params.Price)
	}
	if params.Stock != nil {
		add("stock", *params.Stock)
	}
	if params.Category != nil {
		add("category", *params.Category)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.Sizes != nil {
		add("sizes", *params.Sizes)
	}

	if len(setClauses) == 0 {
		return nil
	}
	setClauses = append(setClauses, "updated_at = now()")

	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argID)
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *postgresProductRepository) ReplaceImages(ctx context.Context, id uuid.UUID, images []model.ProductImage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_images WHERE product_id = $1`, id); err != nil {
		return err
	}

	for i, img := range images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_images (product_id, url, storage_id, position) VALUES ($1, $2, $3, $4)`,
			id, img.URL, img.StorageID, i,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes the product; product_images rows go with it via ON DELETE CASCADE.
func (r *postgresProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}
