package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/storage"
)

const maxMultipartMemory = 32 << 20

// MultipartProductInput records which form fields were present so updates
// only touch what the client sent.
type MultipartProductInput struct {
	Name           string
	NameSet        bool
	Description    string
	DescriptionSet bool
	Category       string
	CategorySet    bool
	Price          float64
	PriceSet       bool
	Stock          int
	StockSet       bool
	Variants       []models.Variant
	VariantsSet    bool
	Image          io.ReadCloser
	ImageSet       bool
}

func (in MultipartProductInput) Close() {
	if in.Image != nil {
		in.Image.Close()
	}
}

func parseMultipartProductRequest(c *gin.Context) (MultipartProductInput, error) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return MultipartProductInput{}, err
	}

	input := MultipartProductInput{}

	if value, ok := c.GetPostForm("name"); ok {
		input.Name = strings.TrimSpace(value)
		input.NameSet = true
	}

	if value, ok := c.GetPostForm("description"); ok {
		input.Description = strings.TrimSpace(value)
		input.DescriptionSet = true
	}

	if value, ok := c.GetPostForm("category"); ok {
		input.Category = strings.TrimSpace(value)
		input.CategorySet = true
	}

	if value, ok := c.GetPostForm("price"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return MultipartProductInput{}, errors.New("price must be a number")
		}
		input.Price = parsed
		input.PriceSet = true
	}

	if value, ok := c.GetPostForm("stock"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return MultipartProductInput{}, errors.New("stock must be an integer")
		}
		input.Stock = parsed
		input.StockSet = true
	}

	// variants arrive as a JSON array in a single form field
	if value, ok := c.GetPostForm("variants"); ok {
		var variants []models.Variant
		if err := json.Unmarshal([]byte(value), &variants); err != nil {
			return MultipartProductInput{}, errors.New("variants must be a JSON array")
		}
		input.Variants = variants
		input.VariantsSet = true
	}

	file, err := c.FormFile("image")
	if err == nil {
		if err := storage.ValidateImage(file); err != nil {
			return MultipartProductInput{}, err
		}
		opened, err := file.Open()
		if err != nil {
			return MultipartProductInput{}, err
		}
		input.Image = opened
		input.ImageSet = true
	} else if !errors.Is(err, http.ErrMissingFile) && !strings.Contains(err.Error(), "no such file") {
		return MultipartProductInput{}, err
	}

	return input, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func respondMultipartError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
