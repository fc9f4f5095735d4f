package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	SKU         string    `db:"sku" json:"sku"`
	Price       float64   `db:"price" json:"price"`
	Stock       int       `db:"stock" json:"stock"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description"`
	Sizes       string    `db:"sizes" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Populated from product_images, not a column.
	Images []ProductImage `db:"-" json:"images"`
}

type ProductImage struct {
	ProductID uuid.UUID `db:"product_id" json:"-"`
	URL       string    `db:"url" json:"url"`
	StorageID string    `db:"storage_id" json:"storage_id"`
	Position  int       `db:"position" json:"-"`
}

// SizeList splits the stored CSV sizes column.
func (p *Product) SizeList() []string {
	if p.Sizes == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(p.Sizes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// JoinSizes normalizes a size list into the CSV column format.
func JoinSizes(sizes []string) string {
	var cleaned []string
	for _, s := range sizes {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, ",")
}
