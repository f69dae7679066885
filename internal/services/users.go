package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type AddressInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	HouseNumber string `json:"houseNumber" binding:"required"`
	Area        string `json:"area" binding:"required"`
	Landmark    string `json:"landmark"`
	City        string `json:"city" binding:"required"`
	State       string `json:"state" binding:"required"`
	Pincode     string `json:"pincode" binding:"required"`
}

func (in AddressInput) trimmed() AddressInput {
	return AddressInput{
		FullName:    strings.TrimSpace(in.FullName),
		Phone:       strings.TrimSpace(in.Phone),
		HouseNumber: strings.TrimSpace(in.HouseNumber),
		Area:        strings.TrimSpace(in.Area),
		Landmark:    strings.TrimSpace(in.Landmark),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		Pincode:     strings.TrimSpace(in.Pincode),
	}
}

type ProfilePatch struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	ProfileImage *string `json:"profileImage"`
}

type UserService struct {
	users    repository.UserRepository
	products repository.ProductRepository
}

func NewUserService(users repository.UserRepository, products repository.ProductRepository) *UserService {
	return &UserService{users: users, products: products}
}

func (s *UserService) Profile(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, notFound("user", id.Hex())
	}
	if err != nil {
		return models.User{}, persistence("get user", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, patch ProfilePatch) (models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return models.User{}, invalid("name", "is required")
		}
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if err := validate.Var(email, "required,email"); err != nil {
			return models.User{}, invalid("email", "must be a valid email address")
		}
		user.Email = email
	}
	if patch.Password != nil {
		if len(*patch.Password) < 6 {
			return models.User{}, invalid("password", "must be at least 6 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, err
		}
		user.PasswordHash = string(hash)
	}
	if patch.ProfileImage != nil {
		user.ProfileImage = strings.TrimSpace(*patch.ProfileImage)
	}

	if err := s.save(ctx, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) Addresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Addresses, nil
}

func (s *UserService) AddAddress(ctx context.Context, userID primitive.ObjectID, in AddressInput) ([]models.Address, error) {
	in = in.trimmed()
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	address := addressFrom(in)
	address.ID = uuid.NewString()
	address.CreatedAt = now
	address.UpdatedAt = now
	user.Addresses = append(user.Addresses, address)

	if err := s.save(ctx, &user); err != nil {
		return nil, err
	}
	log.Println("[ADDRESS] [INFO] address added for user:", userID.Hex())
	return user.Addresses, nil
}

func (s *UserService) UpdateAddress(ctx context.Context, userID primitive.ObjectID, addressID string, in AddressInput) ([]models.Address, error) {
	in = in.trimmed()
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := findAddress(user.Addresses, addressID)
	if idx < 0 {
		return nil, notFound("address", addressID)
	}
	updated := addressFrom(in)
	updated.ID = user.Addresses[idx].ID
	updated.CreatedAt = user.Addresses[idx].CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	user.Addresses[idx] = updated

	if err := s.save(ctx, &user); err != nil {
		return nil, err
	}
	return user.Addresses, nil
}

func (s *UserService) DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) ([]models.Address, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := findAddress(user.Addresses, addressID)
	if idx < 0 {
		return nil, notFound("address", addressID)
	}
	user.Addresses = append(user.Addresses[:idx], user.Addresses[idx+1:]...)

	if err := s.save(ctx, &user); err != nil {
		return nil, err
	}
	return user.Addresses, nil
}

// Wishlist returns the wishlisted products that still exist, in list order.
func (s *UserService) Wishlist(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	products, err := s.products.GetMany(ctx, user.Wishlist)
	if err != nil {
		return nil, persistence("load wishlist", err)
	}

	out := make([]models.Product, 0, len(user.Wishlist))
	for _, id := range user.Wishlist {
		if p, ok := products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ToggleWishlist adds the product if absent and removes it otherwise. It
// reports whether the product is wishlisted afterwards.
func (s *UserService) ToggleWishlist(ctx context.Context, userID primitive.ObjectID, productID string) (bool, []primitive.ObjectID, error) {
	pid, err := parseID("productId", productID)
	if err != nil {
		return false, nil, err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return false, nil, err
	}

	for i, id := range user.Wishlist {
		if id == pid {
			user.Wishlist = append(user.Wishlist[:i], user.Wishlist[i+1:]...)
			if err := s.save(ctx, &user); err != nil {
				return false, nil, err
			}
			return false, user.Wishlist, nil
		}
	}

	if _, err := s.products.GetByID(ctx, pid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil, notFound("product", productID)
		}
		return false, nil, persistence("get product", err)
	}
	user.Wishlist = append(user.Wishlist, pid)
	if err := s.save(ctx, &user); err != nil {
		return false, nil, err
	}
	return true, user.Wishlist, nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	err := s.users.Update(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, repository.ErrNotFound):
		return notFound("user", user.ID.Hex())
	default:
		return persistence("update user", err)
	}
}

func addressFrom(in AddressInput) models.Address {
	return models.Address{
		FullName:    in.FullName,
		Phone:       in.Phone,
		HouseNumber: in.HouseNumber,
		Area:        in.Area,
		Landmark:    in.Landmark,
		City:        in.City,
		State:       in.State,
		Pincode:     in.Pincode,
	}
}

func findAddress(addresses []models.Address, id string) int {
	for i, a := range addresses {
		if a.ID == id {
			return i
		}
	}
	return -1
}
