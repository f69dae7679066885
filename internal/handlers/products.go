package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/repository"
	"storefront/internal/services"
)

/*
GET /api/products
- category, search and sort are optional
- pagination applies only when both page and limit are sent
*/
func GetProducts(catalog *services.CatalogService, ping func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, route)

		log.Printf(
			"[%s] hit page=%s limit=%s category=%s search=%s sort=%s",
			route,
			c.Query("page"),
			c.Query("limit"),
			c.Query("category"),
			c.Query("search"),
			c.Query("sort"),
		)

		if err := ensureStore(c.Request.Context(), ping); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		products, err := catalog.List(ctx, repository.ProductFilter{
			Category: strings.TrimSpace(c.Query("category")),
			Search:   strings.TrimSpace(c.Query("search")),
			Sort:     strings.TrimSpace(c.Query("sort")),
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		pageStr := c.Query("page")
		limitStr := c.Query("limit")
		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			start := (page - 1) * limit
			if start > int64(len(products)) {
				start = int64(len(products))
			}
			end := start + limit
			if end > int64(len(products)) {
				end = int64(len(products))
			}
			products = products[start:end]
		}

		log.Printf("[%s] returning %d products", route, len(products))
		c.JSON(http.StatusOK, products)
	}
}

func GetProduct(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := catalog.GetProduct(ctx, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func CreateProduct(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products"
		defer handlePanic(c, route)

		var req services.ProductInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		product, err := catalog.Create(ctx, req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// UploadProduct creates a single-variant product from a multipart form with
// an image file.
func UploadProduct(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products/upload"
		defer handlePanic(c, route)

		input, err := parseMultipartProductRequest(c)
		if err != nil {
			respondMultipartError(c, err)
			return
		}
		defer input.Close()

		if !input.ImageSet {
			respondWithError(c, http.StatusBadRequest, route, "image is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		product, err := catalog.CreateWithImage(ctx, services.UploadProductInput{
			Name:        input.Name,
			Description: input.Description,
			Category:    input.Category,
			Price:       input.Price,
			Stock:       input.Stock,
			Image:       input.Image,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// UpdateProduct accepts a JSON patch or a multipart form. A multipart price
// applies to every variant; a multipart stock only to single-variant products.
func UpdateProduct(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/products/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		var patch services.ProductPatch
		var image io.Reader
		if isMultipart(c) {
			input, err := parseMultipartProductRequest(c)
			if err != nil {
				respondMultipartError(c, err)
				return
			}
			defer input.Close()

			patch, err = patchFromMultipart(ctx, catalog, c.Param("id"), input)
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			if input.ImageSet {
				image = input.Image
			}
		} else if err := c.ShouldBindJSON(&patch); err != nil {
			respondValidationError(c, err)
			return
		}

		product, err := catalog.Update(ctx, c.Param("id"), patch, image)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func patchFromMultipart(ctx context.Context, catalog *services.CatalogService, id string, input MultipartProductInput) (services.ProductPatch, error) {
	var patch services.ProductPatch
	if input.NameSet {
		patch.Name = &input.Name
	}
	if input.DescriptionSet {
		patch.Description = &input.Description
	}
	if input.CategorySet {
		patch.Category = &input.Category
	}
	if input.VariantsSet {
		patch.Variants = &input.Variants
		return patch, nil
	}
	if !input.PriceSet && !input.StockSet {
		return patch, nil
	}

	current, err := catalog.GetProduct(ctx, id)
	if err != nil {
		return patch, err
	}
	variants := current.Variants
	if input.StockSet && len(variants) != 1 {
		return patch, services.ValidationError{Field: "stock", Message: "product has several variants; send variants instead"}
	}
	for i := range variants {
		if input.PriceSet {
			variants[i].Price = input.Price
		}
		if input.StockSet {
			variants[i].Stock = input.Stock
		}
	}
	patch.Variants = &variants
	return patch, nil
}

func DeleteProduct(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/products/:id"

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := catalog.Delete(ctx, c.Param("id")); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
	}
}
