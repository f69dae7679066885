package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/events"
	"storefront/internal/invoice"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const defaultOrderPageSize = 10

type OrderService struct {
	store     *repository.Store
	renderer  *invoice.Renderer
	publisher events.Publisher
	storeName string
}

func NewOrderService(store *repository.Store, renderer *invoice.Renderer, publisher events.Publisher, storeName string) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{store: store, renderer: renderer, publisher: publisher, storeName: storeName}
}

func (s *OrderService) MyOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	orders, err := s.store.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list user orders", err)
	}
	return orders, nil
}

// AllOrders pages through every order, newest first. search matches the
// owner's name or email, or an order id typed in full.
func (s *OrderService) AllOrders(ctx context.Context, page, limit int64, search string) (models.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultOrderPageSize
	}

	query := repository.OrderQuery{Page: page, Limit: limit}
	if search = strings.TrimSpace(search); search != "" {
		ids, err := s.store.Users.SearchIDs(ctx, search)
		if err != nil {
			return models.OrderPage{}, persistence("search users", err)
		}
		query.Filtered = true
		query.UserIDs = ids
		if oid, err := primitive.ObjectIDFromHex(search); err == nil {
			query.OrderID = &oid
		}
	}

	orders, total, err := s.store.Orders.List(ctx, query)
	if err != nil {
		return models.OrderPage{}, persistence("list orders", err)
	}

	owners := make(map[primitive.ObjectID]struct{}, len(orders))
	for _, o := range orders {
		owners[o.UserID] = struct{}{}
	}
	users, err := s.store.Users.GetMany(ctx, objectIDs(owners))
	if err != nil {
		return models.OrderPage{}, persistence("load order owners", err)
	}

	out := models.OrderPage{
		Orders:     make([]models.AdminOrder, 0, len(orders)),
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
		Total:      total,
	}
	for _, o := range orders {
		row := models.AdminOrder{Order: o}
		if u, ok := users[o.UserID]; ok {
			row.User = &models.OrderCustomer{ID: u.ID, Name: u.Name, Email: u.Email}
		}
		out.Orders = append(out.Orders, row)
	}
	return out, nil
}

// SetStatus assigns any valid status; transitions are not restricted.
func (s *OrderService) SetStatus(ctx context.Context, id, status string) (models.Order, error) {
	status = strings.TrimSpace(status)
	if !models.IsValidOrderStatus(status) {
		return models.Order{}, invalid("status", "must be one of %s", strings.Join(models.OrderStatuses, ", "))
	}
	oid, err := parseID("orderId", id)
	if err != nil {
		return models.Order{}, err
	}

	order, err := s.store.Orders.UpdateStatus(ctx, oid, status)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Order{}, notFound("order", id)
	}
	if err != nil {
		return models.Order{}, persistence("update order status", err)
	}

	log.Printf("[ORDER] [INFO] order %s status set to %s", id, status)
	if err := s.publisher.Publish(ctx, events.OrderEvent{
		Type:    events.TypeOrderStatusChanged,
		OrderID: order.ID.Hex(),
		UserID:  order.UserID.Hex(),
		Status:  order.Status,
		Total:   order.Total,
		At:      order.UpdatedAt,
	}); err != nil {
		log.Println("[EVENTS] [ERROR] order.status_changed publish failed:", err)
	}
	return order, nil
}

// Invoice renders the order PDF for its owner or an admin.
func (s *OrderService) Invoice(ctx context.Context, requester models.User, id string) (string, []byte, error) {
	oid, err := parseID("orderId", id)
	if err != nil {
		return "", nil, err
	}

	order, err := s.store.Orders.GetByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, notFound("order", id)
	}
	if err != nil {
		return "", nil, persistence("get order", err)
	}

	if order.UserID != requester.ID && !requester.IsAdmin {
		log.Printf("[INVOICE] [WARN] user %s denied invoice %s", requester.ID.Hex(), id)
		return "", nil, ErrForbidden
	}

	customer, err := s.store.Users.GetByID(ctx, order.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", nil, persistence("get order owner", err)
	}

	ids := make(map[primitive.ObjectID]struct{}, len(order.Items))
	for _, item := range order.Items {
		ids[item.ProductID] = struct{}{}
	}
	products, err := s.store.Products.GetMany(ctx, objectIDs(ids))
	if err != nil {
		return "", nil, persistence("load invoice products", err)
	}

	doc := invoice.Build(s.storeName, order, customer, products)
	data, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return "", nil, fmt.Errorf("render invoice: %w", err)
	}
	return fmt.Sprintf("invoice-%s.pdf", order.ID.Hex()), data, nil
}
