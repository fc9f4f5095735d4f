package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/irfandhmahudi/backend-mern/internal/model"
	"github.com/irfandhmahudi/backend-mern/internal/repository"
	"github.com/irfandhmahudi/backend-mern/internal/storage"
)

var ErrProductNotFound = errors.New("product not found")

// ImageFile is a single multipart upload handed down from the handler.
type ImageFile struct {
	Filename string
	Body     io.Reader
}

type CreateProductParams struct {
	Name        string
	SKU         string
	Price       float64
	Stock       int
	Category    string
	Description string
	Sizes       []string
	Images      []ImageFile
}

type UpdateProductParams struct {
	Name        *string
	SKU         *string
	Price       *float64
	Stock       *int
	Category    *string
	Description *string
	Sizes       []string
	Images      []ImageFile
}

type ProductService interface {
	Create(ctx context.Context, params CreateProductParams) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) (*model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
	storage     storage.ObjectStorage
}

func NewProductService(productRepo repository.ProductRepository, store storage.ObjectStorage) ProductService {
	return &productService{productRepo: productRepo, storage: store}
}

const productImageFolder = "uploads/products"

func (s *productService) uploadImages(ctx context.Context, files []ImageFile) ([]model.ProductImage, error) {
	var images []model.ProductImage
	for i, f := range files {
		uploaded, err := s.storage.Upload(ctx, productImageFolder, f.Filename, f.Body)
		if err != nil {
			return nil, err
		}
		images = append(images, model.ProductImage{
			URL:       uploaded.URL,
			StorageID: uploaded.ID,
			Position:  i,
		})
	}
	return images, nil
}

func (s *productService) destroyImages(ctx context.Context, images []model.ProductImage) {
	for _, img := range images {
		if err := s.storage.Destroy(ctx, img.StorageID); err != nil {
			slog.Warn("Failed to destroy product image", "storage_id", img.StorageID, "error", err)
		}
	}
}

func (s *productService) Create(ctx context.Context, params CreateProductParams) (*model.Product, error) {
	images, err := s.uploadImages(ctx, params.Images)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        params.Name,
		SKU:         params.SKU,
		Price:       params.Price,
		Stock:       params.Stock,
		Category:    params.Category,
		Description: params.Description,
		Sizes:       model.JoinSizes(params.Sizes),
		Images:      images,
	}

	newID, err := s.productRepo.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	product.ID = newID

	return product, nil
}

func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.FindAll(ctx)
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	return product, nil
}

// Update applies partial field changes; new images, when present, replace
// the previous set and the old objects are destroyed.
func (s *productService) Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	var sizes *string
	if params.Sizes != nil {
		joined := model.JoinSizes(params.Sizes)
		sizes = &joined
	}

	err = s.productRepo.Update(ctx, id, repository.UpdateProductParams{
		Name:        params.Name,
		SKU:         params.SKU,
		Price:       params.Price,
		Stock:       params.Stock,
		Category:    params.Category,
		Description: params.Description,
		Sizes:       sizes,
	})
	if err != nil {
		return nil, err
	}

	if len(params.Images) > 0 {
		images, err := s.uploadImages(ctx, params.Images)
		if err != nil {
			return nil, err
		}
		if err := s.productRepo.ReplaceImages(ctx, id, images); err != nil {
			return nil, err
		}
		s.destroyImages(ctx, product.Images)
	}

	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.destroyImages(ctx, product.Images)

	return nil
}
