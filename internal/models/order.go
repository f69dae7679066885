package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
	// OrderStatusPaid is only found on orders written by an older checkout flow.
	OrderStatusPaid = "Paid"

	DeliveryWindow = 5 * 24 * time.Hour
)

// OrderStatuses lists the statuses an admin may assign.
var OrderStatuses = []string{
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func IsValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func ExpectedDeliveryFrom(createdAt time.Time) time.Time {
	return createdAt.Add(DeliveryWindow)
}

type LineVariant struct {
	Size  string `bson:"size" json:"size"`
	Color string `bson:"color" json:"color"`
}

// OrderLine is a point-in-time snapshot of a purchased variant. ProductID
// may dangle once the product is deleted.
type OrderLine struct {
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Name      string             `bson:"name" json:"name"`
	BaseImage string             `bson:"baseImage" json:"baseImage"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Variant   LineVariant        `bson:"variant" json:"variant"`
}

type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID           primitive.ObjectID `bson:"user" json:"user"`
	Items            []OrderLine        `bson:"items" json:"items"`
	Total            float64            `bson:"total" json:"total"`
	Address          string             `bson:"address" json:"address"`
	DesignImage      string             `bson:"designImage,omitempty" json:"designImage,omitempty"`
	Status           string             `bson:"status" json:"status"`
	PaymentSessionID string             `bson:"paymentSessionId,omitempty" json:"paymentSessionId,omitempty"`
	PaymentIntentID  string             `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	ExpectedDelivery time.Time          `bson:"expectedDelivery" json:"expectedDelivery"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OrderCustomer is the owner summary attached to admin order listings.
type OrderCustomer struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

type AdminOrder struct {
	Order `bson:",inline"`
	User  *OrderCustomer `bson:"-" json:"customer,omitempty"`
}
