package services

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/storage"
)

type ProductInput struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Category    string           `json:"category" binding:"required"`
	BaseImage   string           `json:"baseImage" binding:"required"`
	Variants    []models.Variant `json:"variants" binding:"required,min=1,dive"`
}

// ProductPatch holds the fields present in an update request. Variants
// replace the stored list wholesale when set.
type ProductPatch struct {
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Category    *string           `json:"category"`
	BaseImage   *string           `json:"baseImage"`
	Variants    *[]models.Variant `json:"variants"`
}

// UploadProductInput is the multipart creation path: one image and a single
// free-size variant.
type UploadProductInput struct {
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       int
	Image       io.Reader
}

type CatalogService struct {
	products repository.ProductRepository
	images   storage.ImageStore
}

func NewCatalogService(products repository.ProductRepository, images storage.ImageStore) *CatalogService {
	return &CatalogService{products: products, images: images}
}

func (s *CatalogService) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, persistence("list products", err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (models.Product, error) {
	oid, err := parseID("productId", id)
	if err != nil {
		return models.Product{}, err
	}
	product, err := s.products.GetByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Product{}, notFound("product", id)
	}
	if err != nil {
		return models.Product{}, persistence("get product", err)
	}
	return product, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (models.Product, error) {
	if err := validateStruct(in); err != nil {
		return models.Product{}, err
	}

	product := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		BaseImage:   strings.TrimSpace(in.BaseImage),
		Variants:    in.Variants,
	}
	if err := checkProduct(&product); err != nil {
		return models.Product{}, err
	}

	if err := s.products.Create(ctx, &product); err != nil {
		return models.Product{}, persistence("create product", err)
	}
	log.Println("[CATALOG] [INFO] product created:", product.ID.Hex())
	return product, nil
}

func (s *CatalogService) CreateWithImage(ctx context.Context, in UploadProductInput) (models.Product, error) {
	if in.Image == nil {
		return models.Product{}, invalid("image", "is required")
	}
	if s.images == nil {
		return models.Product{}, ErrUnavailable
	}

	// validate before paying for the upload
	product := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		BaseImage:   "pending",
		Variants: []models.Variant{{
			Size:  "Free Size",
			Color: "Standard",
			Type:  models.DefaultVariantType,
			Price: in.Price,
			Stock: in.Stock,
		}},
	}
	if err := checkProduct(&product); err != nil {
		return models.Product{}, err
	}

	url, err := s.images.Upload(ctx, in.Image, storage.FolderProducts)
	if err != nil {
		return models.Product{}, upstream("upload product image", err)
	}
	product.BaseImage = url

	if err := s.products.Create(ctx, &product); err != nil {
		return models.Product{}, persistence("create product", err)
	}
	log.Println("[CATALOG] [INFO] product uploaded:", product.ID.Hex())
	return product, nil
}

// Update merges patch over the stored product. An explicitly empty variants
// list is rejected rather than leaving the product unpurchasable.
func (s *CatalogService) Update(ctx context.Context, id string, patch ProductPatch, image io.Reader) (models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.BaseImage != nil {
		product.BaseImage = strings.TrimSpace(*patch.BaseImage)
	}
	if patch.Variants != nil {
		if len(*patch.Variants) == 0 {
			return models.Product{}, invalid("variants", "at least one variant is required")
		}
		product.Variants = *patch.Variants
	}
	if err := checkProduct(&product); err != nil {
		return models.Product{}, err
	}

	if image != nil {
		if s.images == nil {
			return models.Product{}, ErrUnavailable
		}
		url, err := s.images.Upload(ctx, image, storage.FolderProducts)
		if err != nil {
			return models.Product{}, upstream("upload product image", err)
		}
		product.BaseImage = url
	}

	if err := s.products.Update(ctx, &product); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Product{}, notFound("product", id)
		}
		return models.Product{}, persistence("update product", err)
	}
	log.Println("[CATALOG] [INFO] product updated:", product.ID.Hex())
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	oid, err := parseID("productId", id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("product", id)
		}
		return persistence("delete product", err)
	}
	log.Println("[CATALOG] [INFO] product deleted:", id)
	return nil
}

// checkProduct normalizes category and variant defaults, then validates.
func checkProduct(p *models.Product) error {
	category, ok := models.NormalizeCategory(p.Category)
	if !ok {
		return invalid("category", "must be one of %s", strings.Join(models.Categories, ", "))
	}
	p.Category = category

	input := ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		BaseImage:   p.BaseImage,
		Variants:    p.Variants,
	}
	if input.Description == "" {
		input.Description = "-"
	}
	if err := validateStruct(input); err != nil {
		return err
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		v.Size = strings.TrimSpace(v.Size)
		v.Color = strings.TrimSpace(v.Color)
		v.Type = strings.TrimSpace(v.Type)
		if v.Type == "" {
			v.Type = models.DefaultVariantType
		}
		if v.Size == "" || v.Color == "" {
			return invalid("variants", "size and color are required")
		}
		for j := 0; j < i; j++ {
			if strings.EqualFold(p.Variants[j].Size, v.Size) && strings.EqualFold(p.Variants[j].Color, v.Color) {
				return invalid("variants", "duplicate variant %s/%s", v.Size, v.Color)
			}
		}
	}
	return nil
}

func objectIDs(ids map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}
