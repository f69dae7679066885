package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repository"
)

func TestRegisterAndLogin(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAuthService(store.Users, "test-secret", time.Hour)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, RegisterInput{Name: " Meera ", Email: "Meera@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "Meera", user.Name)
	assert.Equal(t, "meera@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.Hex(), claims["userId"])

	_, _, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "meera@example.com", Password: "secret99"})
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = svc.Register(ctx, RegisterInput{Name: "Short", Email: "short@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrValidation)

	logged, _, err := svc.Login(ctx, LoginInput{Email: "MEERA@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = svc.Login(ctx, LoginInput{Email: "meera@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func validAddress() AddressInput {
	return AddressInput{
		FullName:    "Meera Nair",
		Phone:       "9876543210",
		HouseNumber: "14B",
		Area:        "Indiranagar",
		City:        "Bengaluru",
		State:       "Karnataka",
		Pincode:     "560038",
	}
}

func TestAddresses(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewUserService(store.Users, store.Products)
	ctx := context.Background()
	user := seedUser(t, store, "Meera", "meera@example.com", false)

	addresses, err := svc.AddAddress(ctx, user.ID, validAddress())
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	first := addresses[0]
	assert.NotEmpty(t, first.ID)

	second := validAddress()
	second.City = " Kochi "
	addresses, err = svc.AddAddress(ctx, user.ID, second)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.Equal(t, "Kochi", addresses[1].City)

	incomplete := validAddress()
	incomplete.Pincode = "  "
	_, err = svc.AddAddress(ctx, user.ID, incomplete)
	assert.ErrorIs(t, err, ErrValidation)

	moved := validAddress()
	moved.Landmark = "Near metro"
	addresses, err = svc.UpdateAddress(ctx, user.ID, first.ID, moved)
	require.NoError(t, err)
	assert.Equal(t, first.ID, addresses[0].ID)
	assert.Equal(t, "Near metro", addresses[0].Landmark)

	_, err = svc.UpdateAddress(ctx, user.ID, "missing", moved)
	assert.ErrorIs(t, err, ErrNotFound)

	addresses, err = svc.DeleteAddress(ctx, user.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, "Kochi", addresses[0].City)

	stored, err := svc.Addresses(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestToggleWishlist(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewUserService(store.Users, store.Products)
	ctx := context.Background()
	user := seedUser(t, store, "Meera", "meera@example.com", false)
	scarf := seedProduct(t, store, "Silk Scarf", models.CategoryWomen, models.Variant{Size: "Free Size", Color: "Red", Price: 700, Stock: 2})

	added, list, err := svc.ToggleWishlist(ctx, user.ID, scarf.ID.Hex())
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []primitive.ObjectID{scarf.ID}, list)

	products, err := svc.Wishlist(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Silk Scarf", products[0].Name)

	added, list, err = svc.ToggleWishlist(ctx, user.ID, scarf.ID.Hex())
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, list)

	_, _, err = svc.ToggleWishlist(ctx, user.ID, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewUserService(store.Users, store.Products)
	ctx := context.Background()
	user := seedUser(t, store, "Meera", "meera@example.com", false)
	seedUser(t, store, "Taken", "taken@example.com", false)

	name := "Meera N"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Meera N", updated.Name)

	taken := "taken@example.com"
	_, err = svc.UpdateProfile(ctx, user.ID, ProfilePatch{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	bad := "not-an-email"
	_, err = svc.UpdateProfile(ctx, user.ID, ProfilePatch{Email: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}
