// Package invoice builds and renders PDF invoices for orders.
package invoice

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

const DeletedProductName = "Deleted Product"

type Line struct {
	Name      string
	Size      string
	Color     string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Document is everything the renderer prints, already sanitized.
type Document struct {
	StoreName        string
	OrderID          string
	OrderedAt        time.Time
	ExpectedDelivery time.Time
	Status           string
	CustomerName     string
	CustomerEmail    string
	Address          string
	Lines            []Line
	Total            decimal.Decimal
	DesignImageURL   string
}

// LinesTotal sums the per-line subtotals.
func (d Document) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range d.Lines {
		sum = sum.Add(l.Subtotal)
	}
	return sum
}

// Build snapshots an order for rendering. products holds the catalog entries
// that still exist; a line whose product is absent prints as deleted.
func Build(storeName string, order models.Order, customer models.User, products map[primitive.ObjectID]models.Product) Document {
	doc := Document{
		StoreName:        storeName,
		OrderID:          order.ID.Hex(),
		OrderedAt:        order.CreatedAt,
		ExpectedDelivery: order.ExpectedDelivery,
		Status:           order.Status,
		CustomerName:     customer.Name,
		CustomerEmail:    customer.Email,
		Address:          strings.TrimSpace(order.Address),
		Lines:            make([]Line, 0, len(order.Items)),
		Total:            sanitizeAmount(order.Total),
		DesignImageURL:   strings.TrimSpace(order.DesignImage),
	}
	if doc.ExpectedDelivery.IsZero() && !order.CreatedAt.IsZero() {
		doc.ExpectedDelivery = models.ExpectedDeliveryFrom(order.CreatedAt)
	}

	for _, item := range order.Items {
		name := strings.TrimSpace(item.Name)
		product, exists := products[item.ProductID]
		switch {
		case !exists:
			name = DeletedProductName
		case name == "":
			name = product.Name
		}

		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		unit := sanitizeAmount(item.Price)
		doc.Lines = append(doc.Lines, Line{
			Name:      name,
			Size:      item.Variant.Size,
			Color:     item.Variant.Color,
			Quantity:  qty,
			UnitPrice: unit,
			Subtotal:  unit.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return doc
}

// sanitizeAmount maps NaN, infinities and negatives to zero.
func sanitizeAmount(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
