package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repository"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (payment.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(payment.Event), args.Error(1)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Upload(ctx context.Context, file interface{}, folder string) (string, error) {
	args := m.Called(ctx, file, folder)
	return args.String(0), args.Error(1)
}

func seedUser(t *testing.T, store *repository.Store, name, email string, admin bool) models.User {
	t.Helper()
	u := models.User{Name: name, Email: email, IsAdmin: admin, PasswordHash: "x"}
	require.NoError(t, store.Users.Create(context.Background(), &u))
	return u
}

func seedProduct(t *testing.T, store *repository.Store, name, category string, variants ...models.Variant) models.Product {
	t.Helper()
	p := models.Product{
		Name:      name,
		Category:  category,
		BaseImage: "https://img.test/" + name + ".png",
		Variants:  variants,
	}
	require.NoError(t, store.Products.Create(context.Background(), &p))
	return p
}

func stockOf(t *testing.T, store *repository.Store, p models.Product, size, color string) int {
	t.Helper()
	got, err := store.Products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	v, _, ok := got.FindVariant(size, color)
	require.True(t, ok)
	return v.Stock
}
