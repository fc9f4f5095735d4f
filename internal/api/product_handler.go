package api

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/irfandhmahudi/backend-mern/internal/model"
	"github.com/irfandhmahudi/backend-mern/internal/service"
)

type ProductHandler struct {
	products service.ProductService
}

func NewProductHandler(products service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type productResponse struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	SKU         string               `json:"sku"`
	Price       float64              `json:"price"`
	Stock       int                  `json:"stock"`
	Category    string               `json:"category"`
	Description string               `json:"description"`
	Size        []string             `json:"size"`
	Images      []model.ProductImage `json:"images"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		Description: p.Description,
		Size:        p.SizeList(),
		Images:      p.Images,
	}
}

// imageFiles opens every uploaded "images" part; callers must run the
// returned closer before responding.
func imageFiles(form *multipart.Form) ([]service.ImageFile, func(), error) {
	var files []service.ImageFile
	var opened []multipart.File

	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, header := range form.File["images"] {
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		files = append(files, service.ImageFile{Filename: header.Filename, Body: f})
	}

	return files, closeAll, nil
}

// size may arrive as a CSV value or as repeated form fields.
func parseSizes(values []string) []string {
	var sizes []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sizes = append(sizes, s)
			}
		}
	}
	return sizes
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse form data")
	}

	value := func(key string) string {
		if vals := form.Value[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	name := value("name")
	sku := value("sku")
	category := value("category")
	description := value("description")
	priceStr := value("price")
	stockStr := value("stock")
	sizes := parseSizes(form.Value["size"])

	if name == "" || sku == "" || category == "" || description == "" || priceStr == "" || stockStr == "" || len(sizes) == 0 {
		return fail(c, fiber.StatusBadRequest, "All fields are required")
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid price")
	}
	stock, err := strconv.Atoi(stockStr)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid stock")
	}

	files, closeFiles, err := imageFiles(form)
	if err != nil {
		return serviceError(c, err)
	}
	defer closeFiles()

	_, err = h.products.Create(c.Context(), service.CreateProductParams{
		Name:        name,
		SKU:         sku,
		Price:       price,
		Stock:       stock,
		Category:    category,
		Description: description,
		Sizes:       sizes,
		Images:      files,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Product created successfully",
	})
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.products.List(c.Context())
	if err != nil {
		return serviceError(c, err)
	}

	response := make([]productResponse, 0, len(products))
	for i := range products {
		response = append(response, toProductResponse(&products[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    response,
	})
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid product ID")
	}

	product, err := h.products.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    toProductResponse(product),
	})
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid product ID")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse form data")
	}

	params := service.UpdateProductParams{}

	strField := func(key string) *string {
		if vals := form.Value[key]; len(vals) > 0 {
			return &vals[0]
		}
		return nil
	}

	params.Name = strField("name")
	params.SKU = strField("sku")
	params.Category = strField("category")
	params.Description = strField("description")

	if v := strField("price"); v != nil {
		price, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid price")
		}
		params.Price = &price
	}
	if v := strField("stock"); v != nil {
		stock, err := strconv.Atoi(*v)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid stock")
		}
		params.Stock = &stock
	}
	if vals := form.Value["size"]; len(vals) > 0 {
		params.Sizes = parseSizes(vals)
	}

	files, closeFiles, err := imageFiles(form)
	if err != nil {
		return serviceError(c, err)
	}
	defer closeFiles()
	params.Images = files

	if _, err := h.products.Update(c.Context(), id, params); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Product updated successfully",
	})
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid product ID")
	}

	if err := h.products.Delete(c.Context(), id); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Product deleted successfully",
	})
}
