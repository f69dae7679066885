package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address represents a single shipping address embedded in a user.
type Address struct {
	ID          string    `bson:"id" json:"_id"`
	FullName    string    `bson:"fullName" json:"fullName"`
	Phone       string    `bson:"phone" json:"phone"`
	HouseNumber string    `bson:"houseNumber" json:"houseNumber"`
	Area        string    `bson:"area" json:"area"`
	Landmark    string    `bson:"landmark" json:"landmark"`
	City        string    `bson:"city" json:"city"`
	State       string    `bson:"state" json:"state"`
	Pincode     string    `bson:"pincode" json:"pincode"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// User represents the application user account.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name         string               `bson:"name" json:"name"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"password" json:"-"`
	IsAdmin      bool                 `bson:"isAdmin" json:"isAdmin"`
	ProfileImage string               `bson:"profileImage" json:"profileImage"`
	Addresses    []Address            `bson:"addresses" json:"addresses"`
	Wishlist     []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}
