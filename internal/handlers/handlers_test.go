package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"

	"storefront/internal/cart"
	"storefront/internal/events"
	"storefront/internal/invoice"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/services"
)

const (
	testJWTSecret     = "handlers-secret"
	testWebhookSecret = "whsec_handlers"
)

type offlineFetcher struct{}

func (offlineFetcher) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("offline")
}

type testServer struct {
	router http.Handler
	store  *repository.Store
	auth   *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	publisher := &events.Recorder{}
	catalog := services.NewCatalogService(store.Products, nil)
	auth := services.NewAuthService(store.Users, testJWTSecret, time.Hour)
	gateway := payment.NewStripeGateway("sk_test_unused", testWebhookSecret)

	router := NewRouter(Deps{
		Store:    store,
		Catalog:  catalog,
		Cart:     cart.NewManager(catalog),
		Checkout: services.NewCheckoutService(store, gateway, publisher, services.CheckoutConfig{Currency: "inr"}),
		Orders:   services.NewOrderService(store, invoice.NewRenderer(offlineFetcher{}), publisher, "Threadline"),
		Users:    services.NewUserService(store.Users, store.Products),
		Auth:     auth,
		Admin:    services.NewAdminService(store),
		Uploads:  services.NewUploadService(nil),

		JWTSecret: testJWTSecret,
		StoreName: "Threadline",
	})
	return &testServer{router: router, store: store, auth: auth}
}

func (s *testServer) user(t *testing.T, name, email string, admin bool) (models.User, string) {
	t.Helper()
	u := models.User{Name: name, Email: email, IsAdmin: admin, PasswordHash: "x"}
	require.NoError(t, s.store.Users.Create(context.Background(), &u))
	token, err := s.auth.IssueToken(u)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) product(t *testing.T, v models.Variant) models.Product {
	t.Helper()
	p := models.Product{Name: "Black Tee", Category: models.CategoryMen, BaseImage: "https://img.test/tee.png", Variants: []models.Variant{v}}
	require.NoError(t, s.store.Products.Create(context.Background(), &p))
	return p
}

func (s *testServer) do(method, path, token string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func completedEvent(sessionID string, metadata map[string]string) []byte {
	meta, _ := json.Marshal(metadata)
	return []byte(fmt.Sprintf(`{
  "id": "evt_%s",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": %q,
    "object": "checkout.session",
    "amount_total": 100000,
    "payment_status": "paid",
    "metadata": %s
  }}
}`, sessionID, sessionID, meta))
}

func signature(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	s := newTestServer(t)
	buyer, _ := s.user(t, "Asha", "asha@example.com", false)
	tee := s.product(t, models.Variant{Size: "M", Color: "Black", Price: 500, Stock: 5})
	payload := completedEvent("cs_forged", map[string]string{
		"userId": buyer.ID.Hex(),
		"items":  fmt.Sprintf(`[{"p":%q,"n":"Black Tee","pr":500,"q":2,"s":"M","c":"Black"}]`, tee.ID.Hex()),
	})

	w := s.do(http.MethodPost, "/api/webhook", "", payload, map[string]string{
		signatureHeader: signature(payload, "whsec_attacker"),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "signature")
	count, _ := s.store.Orders.Count(context.Background())
	assert.Zero(t, count)
	stored, _ := s.store.Products.GetByID(context.Background(), tee.ID)
	assert.Equal(t, 5, stored.Variants[0].Stock)
}

func TestWebhook_CompletedSessionIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	buyer, _ := s.user(t, "Asha", "asha@example.com", false)
	tee := s.product(t, models.Variant{Size: "M", Color: "Black", Price: 500, Stock: 5})
	payload := completedEvent("cs_paid", map[string]string{
		"userId":  buyer.ID.Hex(),
		"address": "12 MG Road, Pune",
		"items":   fmt.Sprintf(`[{"p":%q,"n":"Black Tee","pr":500,"q":2,"s":"M","c":"Black"}]`, tee.ID.Hex()),
	})
	header := map[string]string{signatureHeader: signature(payload, testWebhookSecret)}

	first := s.do(http.MethodPost, "/api/webhook", "", payload, header)
	second := s.do(http.MethodPost, "/api/webhook", "", payload, header)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	orders, err := s.store.Orders.ListByUser(context.Background(), buyer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1000.0, orders[0].Total)
	stored, _ := s.store.Products.GetByID(context.Background(), tee.ID)
	assert.Equal(t, 3, stored.Variants[0].Stock)
}

func TestInvoice_Access(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.user(t, "Asha", "asha@example.com", false)
	_, strangerToken := s.user(t, "Mallory", "mallory@example.com", false)
	_, adminToken := s.user(t, "Root", "root@example.com", true)
	tee := s.product(t, models.Variant{Size: "M", Color: "Black", Price: 500, Stock: 5})

	order := models.Order{
		UserID: owner.ID,
		Items: []models.OrderLine{{
			ProductID: tee.ID, Name: "Black Tee", Price: 500, Quantity: 1,
			Variant: models.LineVariant{Size: "M", Color: "Black"},
		}},
		Total:  500,
		Status: models.OrderStatusProcessing,
	}
	require.NoError(t, s.store.Orders.Create(context.Background(), &order))
	path := "/api/orders/" + order.ID.Hex() + "/invoice"

	denied := s.do(http.MethodGet, path, strangerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.NotContains(t, denied.Header().Get("Content-Type"), "application/pdf")

	mine := s.do(http.MethodGet, path, ownerToken, nil, nil)
	assert.Equal(t, http.StatusOK, mine.Code)
	assert.Equal(t, "application/pdf", mine.Header().Get("Content-Type"))
	assert.Contains(t, mine.Header().Get("Content-Disposition"), "invoice-"+order.ID.Hex()+".pdf")
	assert.True(t, bytes.HasPrefix(mine.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, adminToken, nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, path, "", nil, nil).Code)
}

func TestCartAdd_CapsAtStock(t *testing.T) {
	s := newTestServer(t)
	tee := s.product(t, models.Variant{Size: "M", Color: "Black", Price: 500, Stock: 2})

	w := s.do(http.MethodPost, "/api/cart/add", "", mustJSON(t, gin.H{
		"productId": tee.ID.Hex(), "size": "M", "color": "Black", "quantity": 3,
	}), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items  []cart.Line  `json:"items"`
		Total  float64      `json:"total"`
		Notice *cart.Notice `json:"notice"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 2, body.Items[0].Quantity)
	assert.Equal(t, 1000.0, body.Total)
	require.NotNil(t, body.Notice)
	assert.Equal(t, cart.NoticeStockLimit, body.Notice.Code)

	inc := s.do(http.MethodPost, "/api/cart/increase", "", mustJSON(t, gin.H{
		"cart": gin.H{"items": body.Items}, "key": body.Items[0].Key(),
	}), nil)
	require.Equal(t, http.StatusOK, inc.Code)
	assert.Contains(t, inc.Body.String(), cart.NoticeStockLimit)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/cart/explode", "", []byte(`{}`), nil).Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	_, shopperToken := s.user(t, "Asha", "asha@example.com", false)
	_, adminToken := s.user(t, "Root", "root@example.com", true)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/dashboard", shopperToken, nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/admin/dashboard", adminToken, nil, nil).Code)

	noVariants := mustJSON(t, gin.H{
		"name": "Tee", "description": "Cotton", "category": "Men", "baseImage": "https://img.test/x.png", "variants": []gin.H{},
	})
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/products", shopperToken, noVariants, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/products", adminToken, noVariants, nil).Code)
}

func TestRegisterThenLogin(t *testing.T) {
	s := newTestServer(t)
	creds := mustJSON(t, gin.H{"name": "Asha", "email": "asha@example.com", "password": "secret12"})

	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/auth/register", "", creds, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/auth/register", "", creds, nil).Code)

	w := s.do(http.MethodPost, "/api/auth/login", "", mustJSON(t, gin.H{"email": "asha@example.com", "password": "secret12"}), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	profile := s.do(http.MethodGet, "/api/users/profile", body.AccessToken, nil, nil)
	assert.Equal(t, http.StatusOK, profile.Code)
	assert.Contains(t, profile.Body.String(), "asha@example.com")
	assert.NotContains(t, profile.Body.String(), "password")

	bad := s.do(http.MethodPost, "/api/auth/login", "", mustJSON(t, gin.H{"email": "asha@example.com", "password": "nope"}), nil)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}
