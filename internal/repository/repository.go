// Package repository persists products, orders and users. Two backends share
// the same interfaces: MongoDB for deployments and an in-memory store used by
// tests and by local runs without MONGO_URI.
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

type ProductFilter struct {
	Category string
	Search   string
	Sort     string
}

const (
	SortPriceAsc  = "asc"
	SortPriceDesc = "desc"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
)

type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	// DecrementStock lowers the stock of the first variant matching size and
	// color, never below zero. It reports false when the product or variant
	// no longer exists.
	DecrementStock(ctx context.Context, id primitive.ObjectID, size, color string, qty int) (bool, error)
}

type OrderQuery struct {
	Page    int64
	Limit   int64
	UserIDs []primitive.ObjectID
	OrderID *primitive.ObjectID
	// Filtered restricts the listing to UserIDs/OrderID even when both are empty.
	Filtered bool
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	FindByPaymentSession(ctx context.Context, sessionID string) (models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	List(ctx context.Context, query OrderQuery) ([]models.Order, int64, error)
	All(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (models.Order, error)
	Count(ctx context.Context) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	SearchIDs(ctx context.Context, term string) ([]primitive.ObjectID, error)
}

// Transactor runs fn atomically. Repository calls made with the ctx handed
// to fn join the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Store struct {
	Products ProductRepository
	Orders   OrderRepository
	Users    UserRepository
	Tx       Transactor
	Ping     func(ctx context.Context) error
}
