package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
	"storefront/internal/repository"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthService struct {
	users     repository.UserRepository
	jwtSecret string
	accessTTL time.Duration
}

func NewAuthService(users repository.UserRepository, jwtSecret string, accessTTL time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, accessTTL: accessTTL}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return models.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", err
	}

	user := models.User{Name: in.Name, Email: in.Email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, "", ErrConflict
		}
		return models.User{}, "", persistence("create user", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	log.Println("[AUTH] [INFO] user registered:", user.Email)
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		log.Println("[AUTH] [ERROR] login unknown email")
		return models.User{}, "", ErrUnauthorized
	}
	if err != nil {
		return models.User{}, "", persistence("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		log.Println("[AUTH] [ERROR] login invalid credentials for user")
		return models.User{}, "", ErrUnauthorized
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	log.Println("[AUTH] [INFO] user login succeeded:", user.Email)
	return user, token, nil
}

// IssueToken signs an HS256 access token carrying the user id.
func (s *AuthService) IssueToken(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": user.ID.Hex(),
		"email":  user.Email,
		"iat":    now.Unix(),
		"exp":    now.Add(s.accessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
}
