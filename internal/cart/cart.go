// Package cart implements the client-held shopping cart. The server keeps no
// cart state: callers pass the current lines in and receive the new lines
// back, and every add revalidates the variant against the catalog.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

var (
	ErrVariantUnavailable = errors.New("selected variant is no longer available")
	ErrOutOfStock         = errors.New("selected variant is out of stock")
)

const NoticeStockLimit = "stock_limit"

// ProductSource resolves catalog products by id.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
}

// Line is one cart entry. Name, Image, Price and Stock are a snapshot taken
// at the last catalog fetch and can go stale.
type Line struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity" binding:"gte=1"`
	Stock     int     `json:"stock"`
}

func (l Line) Key() string {
	return LineKey(l.ProductID, l.Size, l.Color)
}

// LineKey identifies a line by product and variant.
func LineKey(productID, size, color string) string {
	return fmt.Sprintf("%s-%s-%s", productID, orDefault(size), orDefault(color))
}

func orDefault(v string) string {
	if strings.TrimSpace(v) == "" {
		return "default"
	}
	return strings.TrimSpace(v)
}

type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func stockLimitNotice(stock int) *Notice {
	return &Notice{Code: NoticeStockLimit, Message: fmt.Sprintf("Only %d left in stock", stock)}
}

type Cart struct {
	Lines []Line `json:"items"`
}

func (c Cart) clone() Cart {
	return Cart{Lines: append([]Line{}, c.Lines...)}
}

func (c Cart) index(key string) int {
	for i, l := range c.Lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

// Increase adds one unit unless that would pass the line's last known stock,
// in which case the line is left as it is.
func (c Cart) Increase(key string) (Cart, *Notice) {
	out := c.clone()
	i := out.index(key)
	if i < 0 {
		return out, nil
	}
	if out.Lines[i].Quantity+1 > out.Lines[i].Stock {
		return out, stockLimitNotice(out.Lines[i].Stock)
	}
	out.Lines[i].Quantity++
	return out, nil
}

// Decrease removes one unit; quantity never drops below 1.
func (c Cart) Decrease(key string) Cart {
	out := c.clone()
	if i := out.index(key); i >= 0 && out.Lines[i].Quantity > 1 {
		out.Lines[i].Quantity--
	}
	return out
}

func (c Cart) Remove(key string) Cart {
	out := Cart{Lines: make([]Line, 0, len(c.Lines))}
	for _, l := range c.Lines {
		if l.Key() != key {
			out.Lines = append(out.Lines, l)
		}
	}
	return out
}

func (c Cart) Clear() Cart {
	return Cart{Lines: []Line{}}
}

func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total sums the snapshot prices. Checkout recomputes from the catalog.
func (c Cart) Total() float64 {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	f, _ := sum.Round(2).Float64()
	return f
}

type Manager struct {
	catalog ProductSource
}

func NewManager(catalog ProductSource) *Manager {
	return &Manager{catalog: catalog}
}

// Add re-fetches the product, resolves the variant and inserts or increments
// the line. The quantity is capped at the freshly fetched stock, in which
// case a stock-limit notice is returned alongside the new cart.
func (m *Manager) Add(ctx context.Context, c Cart, productID, size, color string, qty int) (Cart, *Notice, error) {
	if qty < 1 {
		qty = 1
	}

	product, err := m.catalog.GetProduct(ctx, productID)
	if err != nil {
		return c, nil, err
	}

	variant, _, ok := product.FindVariant(size, color)
	if !ok {
		return c, nil, ErrVariantUnavailable
	}
	if variant.Stock <= 0 {
		return c, nil, ErrOutOfStock
	}

	out := c.clone()
	line := Line{
		ProductID: product.ID.Hex(),
		Name:      product.Name,
		Image:     product.ImageFor(variant),
		Price:     variant.Price,
		Size:      variant.Size,
		Color:     variant.Color,
		Stock:     variant.Stock,
	}

	i := out.index(line.Key())
	if i < 0 {
		out.Lines = append(out.Lines, line)
		i = len(out.Lines) - 1
	} else {
		line.Quantity = out.Lines[i].Quantity
		out.Lines[i] = line
	}

	wanted := out.Lines[i].Quantity + qty
	var notice *Notice
	if wanted > variant.Stock {
		wanted = variant.Stock
		notice = stockLimitNotice(variant.Stock)
	}
	out.Lines[i].Quantity = wanted

	return out, notice, nil
}
