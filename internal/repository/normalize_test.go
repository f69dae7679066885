package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestNormalizeProductDocumentSynthesizesVariantForFlatProduct(t *testing.T) {
	product, err := normalizeProductDocument(bson.M{
		"name":     "Plain Tee",
		"category": "men",
		"price":    "499",
		"stock":    int32(7),
		"image":    "https://img.test/tee.png",
	})
	require.NoError(t, err)

	require.Len(t, product.Variants, 1)
	v := product.Variants[0]
	assert.Equal(t, "Free Size", v.Size)
	assert.Equal(t, "Standard", v.Color)
	assert.Equal(t, models.DefaultVariantType, v.Type)
	assert.Equal(t, 499.0, v.Price)
	assert.Equal(t, 7, v.Stock)
	assert.Equal(t, models.CategoryMen, product.Category)
	assert.Equal(t, "https://img.test/tee.png", product.BaseImage)
}

func TestNormalizeProductDocumentCoercesVariantNumbers(t *testing.T) {
	product, err := normalizeProductDocument(bson.M{
		"name":     "Hoodie",
		"category": bson.A{"Women"},
		"variants": bson.A{
			bson.M{"size": "M", "color": "Black", "price": int64(900), "stock": "3"},
			bson.M{"size": "L", "color": "Black", "price": "oops", "stock": 2.0, "type": "Zip"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryWomen, product.Category)
	assert.Equal(t, 900.0, product.Price)
	require.Len(t, product.Variants, 2)
	assert.Equal(t, 900.0, product.Variants[0].Price)
	assert.Equal(t, 3, product.Variants[0].Stock)
	assert.Equal(t, models.DefaultVariantType, product.Variants[0].Type)
	assert.Equal(t, 0.0, product.Variants[1].Price)
	assert.Equal(t, 2, product.Variants[1].Stock)
	assert.Equal(t, "Zip", product.Variants[1].Type)
}

func TestNormalizeOrderDocumentReconcilesLegacyShape(t *testing.T) {
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	order, err := normalizeOrderDocument(bson.M{
		"userId":    userID,
		"createdAt": primitive.NewDateTimeFromTime(created),
		"address":   "12 Lane",
		"items": bson.A{
			bson.M{"product": productID, "quantity": int32(2), "price": int32(250)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, userID, order.UserID)
	assert.Equal(t, 500.0, order.Total)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.True(t, order.ExpectedDelivery.Equal(created.Add(5*24*time.Hour)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, productID, order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestNormalizeOrderDocumentKeepsStoredTotalAndStatus(t *testing.T) {
	order, err := normalizeOrderDocument(bson.M{
		"user":   primitive.NewObjectID(),
		"total":  int64(1500),
		"status": models.OrderStatusPaid,
		"items":  bson.A{},
	})
	require.NoError(t, err)

	assert.Equal(t, 1500.0, order.Total)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Empty(t, order.Items)
}

func TestNormalizeUserDocumentConvertsAddressObjectIDs(t *testing.T) {
	addrID := primitive.NewObjectID()
	user, err := normalizeUserDocument(bson.M{
		"name":  "Asha",
		"email": "asha@example.com",
		"addresses": bson.A{
			bson.M{"_id": addrID, "fullName": "Asha", "city": "Pune"},
		},
	})
	require.NoError(t, err)

	require.Len(t, user.Addresses, 1)
	assert.Equal(t, addrID.Hex(), user.Addresses[0].ID)
	assert.NotNil(t, user.Wishlist)
}
