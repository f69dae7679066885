package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/storage"
)

const (
	metaUserID      = "userId"
	metaAddress     = "address"
	metaDesignImage = "designImage"
	metaItems       = "items"

	// provider limits: 50 keys, 500 characters per value
	metaValueLimit = 500
	metaMaxKeys    = 50
)

// CheckoutLine is a cart line as sent by the client. Price is informational;
// the catalog price is authoritative.
type CheckoutLine struct {
	ProductID string  `json:"productId" binding:"required"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity" binding:"required,gte=1"`
	Price     float64 `json:"price"`
}

type CheckoutRequest struct {
	Items       []CheckoutLine `json:"items" binding:"required,min=1,dive"`
	Address     string         `json:"address" binding:"required"`
	DesignImage string         `json:"designImage"`
}

type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	// DesignHosts limits designImage to https URLs on these hosts. Empty
	// allows any https host.
	DesignHosts []string
}

// WebhookResult describes what a webhook delivery did.
type WebhookResult struct {
	EventType string
	Handled   bool
	Duplicate bool
	Order     *models.Order
}

type CheckoutService struct {
	store     *repository.Store
	gateway   payment.Gateway
	publisher events.Publisher
	cfg       CheckoutConfig
}

func NewCheckoutService(store *repository.Store, gateway payment.Gateway, publisher events.Publisher, cfg CheckoutConfig) *CheckoutService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	return &CheckoutService{store: store, gateway: gateway, publisher: publisher, cfg: cfg}
}

// CreateSession revalidates the cart against the catalog and opens a hosted
// payment session. The validated lines travel in the session metadata and
// come back with the completion webhook.
func (s *CheckoutService) CreateSession(ctx context.Context, user models.User, req CheckoutRequest) (payment.CheckoutSession, error) {
	if s.gateway == nil {
		return payment.CheckoutSession{}, ErrUnavailable
	}

	lines, total, err := s.priceLines(ctx, req)
	if err != nil {
		return payment.CheckoutSession{}, err
	}

	metadata, err := encodeMetadata(user.ID, req.Address, req.DesignImage, lines)
	if err != nil {
		return payment.CheckoutSession{}, err
	}

	items := make([]payment.LineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, payment.LineItem{
			Name:       fmt.Sprintf("%s (%s / %s)", line.Name, line.Variant.Size, line.Variant.Color),
			Image:      line.BaseImage,
			UnitAmount: payment.ToMinorUnits(decimal.NewFromFloat(line.Price)),
			Quantity:   int64(line.Quantity),
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Currency:      s.cfg.Currency,
		Items:         items,
		Metadata:      metadata,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
		CustomerEmail: user.Email,
	})
	if err != nil {
		return payment.CheckoutSession{}, upstream("create checkout session", err)
	}

	log.Printf("[CHECKOUT] [INFO] session %s created for user %s total %s", session.ID, user.ID.Hex(), total.StringFixed(2))
	return session, nil
}

// HandleWebhook verifies and applies a provider event. Only paid checkout
// sessions have side effects; a session that already produced an order is
// acknowledged without creating another.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	if s.gateway == nil {
		return WebhookResult{}, ErrUnavailable
	}

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrSignatureInvalid) {
			return WebhookResult{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		return WebhookResult{}, invalid("payload", "%v", err)
	}

	result := WebhookResult{EventType: event.Type}
	if !isSessionEvent(event.Type) || event.Session == nil {
		log.Println("[WEBHOOK] [INFO] ignoring event type:", event.Type)
		return result, nil
	}
	cs := event.Session
	if !cs.Paid() {
		log.Printf("[WEBHOOK] [INFO] session %s not paid yet (%q), waiting for settlement", cs.ID, cs.PaymentStatus)
		return result, nil
	}
	result.Handled = true

	order, err := decodeMetadata(cs.Metadata)
	if err != nil {
		log.Printf("[WEBHOOK] [ERROR] session %s metadata unreadable: %v", cs.ID, err)
		return result, err
	}
	order.PaymentSessionID = cs.ID
	order.PaymentIntentID = cs.PaymentIntentID

	if cs.AmountTotal > 0 {
		if expected := payment.ToMinorUnits(decimal.NewFromFloat(order.Total)); expected != cs.AmountTotal {
			log.Printf("[WEBHOOK] [WARN] session %s amount %d differs from order total %d", cs.ID, cs.AmountTotal, expected)
		}
	}

	duplicate, err := s.persistOrder(ctx, &order)
	if err != nil {
		return result, err
	}
	result.Duplicate = duplicate
	result.Order = &order
	return result, nil
}

// PlaceOrder creates an order directly, without a payment session.
func (s *CheckoutService) PlaceOrder(ctx context.Context, user models.User, req CheckoutRequest) (models.Order, error) {
	lines, total, err := s.priceLines(ctx, req)
	if err != nil {
		return models.Order{}, err
	}

	order := newOrder(user.ID, lines, total, req.Address, req.DesignImage)
	if _, err := s.persistOrder(ctx, &order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func isSessionEvent(eventType string) bool {
	return eventType == payment.EventCheckoutCompleted || eventType == payment.EventCheckoutAsyncSucceeded
}

func newOrder(userID primitive.ObjectID, lines []models.OrderLine, total decimal.Decimal, address, design string) models.Order {
	created := time.Now().UTC()
	return models.Order{
		UserID:           userID,
		Items:            lines,
		Total:            total.Round(2).InexactFloat64(),
		Address:          strings.TrimSpace(address),
		DesignImage:      strings.TrimSpace(design),
		Status:           models.OrderStatusProcessing,
		CreatedAt:        created,
		ExpectedDelivery: models.ExpectedDeliveryFrom(created),
	}
}

var errAlreadyRecorded = errors.New("order already recorded for payment session")

// persistOrder inserts the order and decrements stock in one transaction.
// It reports true when the payment session had already been recorded.
func (s *CheckoutService) persistOrder(ctx context.Context, order *models.Order) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var existing models.Order
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if order.PaymentSessionID != "" {
			found, err := s.store.Orders.FindByPaymentSession(ctx, order.PaymentSessionID)
			if err == nil {
				existing = found
				return errAlreadyRecorded
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		if err := s.store.Orders.Create(ctx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errAlreadyRecorded
			}
			return err
		}

		for _, line := range order.Items {
			ok, err := s.store.Products.DecrementStock(ctx, line.ProductID, line.Variant.Size, line.Variant.Color, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				log.Printf("[CHECKOUT] [WARN] stock not decremented, product %s variant %s/%s gone",
					line.ProductID.Hex(), line.Variant.Size, line.Variant.Color)
			}
		}
		return nil
	})

	if errors.Is(err, errAlreadyRecorded) {
		log.Println("[CHECKOUT] [INFO] duplicate delivery for session:", order.PaymentSessionID)
		if !existing.ID.IsZero() {
			*order = existing
		}
		return true, nil
	}
	if err != nil {
		log.Println("[CHECKOUT] [ERROR] order persistence failed:", err)
		return false, persistence("create order", err)
	}

	log.Printf("[CHECKOUT] [INFO] order %s created for user %s", order.ID.Hex(), order.UserID.Hex())
	s.publish(ctx, *order)
	return false, nil
}

func (s *CheckoutService) publish(ctx context.Context, order models.Order) {
	err := s.publisher.Publish(ctx, events.OrderEvent{
		Type:      events.TypeOrderCreated,
		OrderID:   order.ID.Hex(),
		UserID:    order.UserID.Hex(),
		Status:    order.Status,
		Total:     order.Total,
		SessionID: order.PaymentSessionID,
		At:        order.CreatedAt,
	})
	if err != nil {
		log.Println("[EVENTS] [ERROR] order.created publish failed:", err)
	}
}

// priceLines resolves every line against the catalog and snapshots name,
// image and price. Client-sent prices are ignored.
func (s *CheckoutService) priceLines(ctx context.Context, req CheckoutRequest) ([]models.OrderLine, decimal.Decimal, error) {
	if len(req.Items) == 0 {
		return nil, decimal.Zero, invalid("items", "cart is empty")
	}
	if strings.TrimSpace(req.Address) == "" {
		return nil, decimal.Zero, invalid("address", "is required")
	}
	if len(req.Address) > metaValueLimit {
		return nil, decimal.Zero, invalid("address", "must be at most %d characters", metaValueLimit)
	}
	if len(req.DesignImage) > metaValueLimit {
		return nil, decimal.Zero, invalid("designImage", "must be at most %d characters", metaValueLimit)
	}
	if design := strings.TrimSpace(req.DesignImage); design != "" {
		if err := storage.CheckHostedURL(design, s.cfg.DesignHosts); err != nil {
			return nil, decimal.Zero, invalid("designImage", "%v", err)
		}
	}

	ids := make(map[primitive.ObjectID]struct{}, len(req.Items))
	parsed := make([]primitive.ObjectID, len(req.Items))
	for i, item := range req.Items {
		id, err := parseID(fmt.Sprintf("items[%d].productId", i), item.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if item.Quantity <= 0 {
			return nil, decimal.Zero, invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		}
		parsed[i] = id
		ids[id] = struct{}{}
	}

	products, err := s.store.Products.GetMany(ctx, objectIDs(ids))
	if err != nil {
		return nil, decimal.Zero, persistence("load cart products", err)
	}

	// quantities per variant across lines, so split lines cannot oversell
	wanted := make(map[string]int)
	lines := make([]models.OrderLine, 0, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		product, ok := products[parsed[i]]
		if !ok {
			return nil, decimal.Zero, notFound("product", item.ProductID)
		}
		variant, _, ok := product.FindVariant(item.Size, item.Color)
		if !ok {
			return nil, decimal.Zero, invalid(fmt.Sprintf("items[%d]", i), "variant %s/%s of %s is no longer available", item.Size, item.Color, product.Name)
		}

		key := product.ID.Hex() + "|" + strings.ToLower(variant.Size) + "|" + strings.ToLower(variant.Color)
		wanted[key] += item.Quantity
		if variant.Stock < wanted[key] {
			return nil, decimal.Zero, OutOfStockError{
				ProductID: product.ID.Hex(),
				Size:      variant.Size,
				Color:     variant.Color,
				Available: variant.Stock,
				Requested: wanted[key],
			}
		}

		if item.Price != 0 && item.Price != variant.Price {
			log.Printf("[CHECKOUT] [WARN] client price %.2f for %s differs from catalog %.2f", item.Price, product.ID.Hex(), variant.Price)
		}

		unit := decimal.NewFromFloat(variant.Price)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, models.OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			BaseImage: product.ImageFor(variant),
			Price:     variant.Price,
			Quantity:  item.Quantity,
			Variant:   models.LineVariant{Size: variant.Size, Color: variant.Color},
		})
	}
	return lines, total, nil
}

// metaLine is the compact metadata form of an order line.
type metaLine struct {
	ProductID string  `json:"p"`
	Name      string  `json:"n"`
	Image     string  `json:"i,omitempty"`
	Price     float64 `json:"pr"`
	Quantity  int     `json:"q"`
	Size      string  `json:"s"`
	Color     string  `json:"c"`
}

func encodeMetadata(userID primitive.ObjectID, address, design string, lines []models.OrderLine) (map[string]string, error) {
	compact := make([]metaLine, 0, len(lines))
	for _, l := range lines {
		compact = append(compact, metaLine{
			ProductID: l.ProductID.Hex(),
			Name:      l.Name,
			Image:     l.BaseImage,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Size:      l.Variant.Size,
			Color:     l.Variant.Color,
		})
	}
	encoded, err := json.Marshal(compact)
	if err != nil {
		return nil, fmt.Errorf("encode cart metadata: %w", err)
	}

	metadata := map[string]string{
		metaUserID:  userID.Hex(),
		metaAddress: strings.TrimSpace(address),
	}
	if design = strings.TrimSpace(design); design != "" {
		metadata[metaDesignImage] = design
	}

	chunks := chunk(string(encoded), metaValueLimit)
	if len(chunks)+len(metadata) > metaMaxKeys {
		return nil, invalid("items", "cart is too large for a single checkout")
	}
	for i, c := range chunks {
		metadata[chunkKey(i)] = c
	}
	return metadata, nil
}

func decodeMetadata(metadata map[string]string) (models.Order, error) {
	userID, err := primitive.ObjectIDFromHex(metadata[metaUserID])
	if err != nil {
		return models.Order{}, invalid("metadata.userId", "missing or invalid")
	}

	keys := make([]int, 0)
	for k := range metadata {
		if k == metaItems {
			keys = append(keys, 0)
			continue
		}
		if rest, ok := strings.CutPrefix(k, metaItems+"_"); ok {
			if n, err := strconv.Atoi(rest); err == nil {
				keys = append(keys, n)
			}
		}
	}
	if len(keys) == 0 {
		return models.Order{}, invalid("metadata.items", "missing")
	}
	sort.Ints(keys)

	var b strings.Builder
	for _, n := range keys {
		b.WriteString(metadata[chunkKey(n)])
	}

	var compact []metaLine
	if err := json.Unmarshal([]byte(b.String()), &compact); err != nil {
		return models.Order{}, invalid("metadata.items", "unreadable: %v", err)
	}
	if len(compact) == 0 {
		return models.Order{}, invalid("metadata.items", "empty")
	}

	lines := make([]models.OrderLine, 0, len(compact))
	total := decimal.Zero
	for _, m := range compact {
		productID, err := primitive.ObjectIDFromHex(m.ProductID)
		if err != nil {
			return models.Order{}, invalid("metadata.items", "invalid product id %q", m.ProductID)
		}
		total = total.Add(decimal.NewFromFloat(m.Price).Mul(decimal.NewFromInt(int64(m.Quantity))))
		lines = append(lines, models.OrderLine{
			ProductID: productID,
			Name:      m.Name,
			BaseImage: m.Image,
			Price:     m.Price,
			Quantity:  m.Quantity,
			Variant:   models.LineVariant{Size: m.Size, Color: m.Color},
		})
	}

	return newOrder(userID, lines, total, metadata[metaAddress], metadata[metaDesignImage]), nil
}

func chunkKey(i int) string {
	if i == 0 {
		return metaItems
	}
	return metaItems + "_" + strconv.Itoa(i)
}

// chunk splits s into pieces of at most n bytes without cutting a rune.
func chunk(s string, n int) []string {
	out := make([]string, 0, len(s)/n+1)
	for len(s) > n {
		cut := n
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
