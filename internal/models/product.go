package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CategoryMen   = "Men"
	CategoryWomen = "Women"
	CategoryKids  = "Kids"

	DefaultVariantType = "Default"
)

var Categories = []string{CategoryMen, CategoryWomen, CategoryKids}

// NormalizeCategory maps a case-insensitive category name onto the closed set.
func NormalizeCategory(value string) (string, bool) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(value), c) {
			return c, true
		}
	}
	return "", false
}

// Variant is a purchasable size/color combination embedded in a product.
type Variant struct {
	Size  string  `bson:"size" json:"size" binding:"required"`
	Color string  `bson:"color" json:"color" binding:"required"`
	Type  string  `bson:"type" json:"type"`
	Price float64 `bson:"price" json:"price" binding:"gte=0"`
	Stock int     `bson:"stock" json:"stock" binding:"gte=0"`
	Image string  `bson:"image,omitempty" json:"image,omitempty"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	BaseImage   string             `bson:"baseImage" json:"baseImage"`
	Price       float64            `bson:"price" json:"price"`
	Variants    []Variant          `bson:"variants" json:"variants"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FindVariant returns the first variant matching size and color,
// compared case-insensitively.
func (p Product) FindVariant(size, color string) (Variant, int, bool) {
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)
	for i, v := range p.Variants {
		if strings.EqualFold(v.Size, size) && strings.EqualFold(v.Color, color) {
			return v, i, true
		}
	}
	return Variant{}, -1, false
}

// DisplayPrice is the price of the first variant, used for sorting.
func (p Product) DisplayPrice() float64 {
	if len(p.Variants) > 0 {
		return p.Variants[0].Price
	}
	return p.Price
}

// ImageFor prefers the variant image and falls back to the product base image.
func (p Product) ImageFor(v Variant) string {
	if strings.TrimSpace(v.Image) != "" {
		return v.Image
	}
	return p.BaseImage
}
