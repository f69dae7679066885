package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/cart"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureStore(ctx context.Context, ping func(context.Context) error) error {
	if ping == nil {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return ping(checkCtx)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps service errors onto status codes. Upstream and
// persistence details stay in the log.
func respondServiceError(c *gin.Context, route string, err error) {
	var validation services.ValidationError
	var stock services.OutOfStockError
	switch {
	case errors.As(err, &stock):
		log.Printf("[%s] returning error %d: %v", route, http.StatusBadRequest, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient stock",
			"productId": stock.ProductID,
			"available": stock.Available,
			"requested": stock.Requested,
		})
	case errors.As(err, &validation):
		log.Printf("[%s] returning error %d: %v", route, http.StatusBadRequest, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": []string{validation.Error()},
		})
	case errors.Is(err, services.ErrSignatureInvalid):
		respondWithError(c, http.StatusBadRequest, route, "webhook signature verification failed")
	case errors.Is(err, cart.ErrVariantUnavailable), errors.Is(err, cart.ErrOutOfStock):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, services.ErrValidation):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		respondWithError(c, http.StatusForbidden, route, "forbidden")
	case errors.Is(err, services.ErrConflict):
		respondWithError(c, http.StatusConflict, route, "email already registered")
	case errors.Is(err, services.ErrUpstream):
		log.Printf("[%s] upstream failure: %v", route, err)
		respondWithError(c, http.StatusBadGateway, route, "upstream service failed")
	case errors.Is(err, services.ErrUnavailable):
		respondWithError(c, http.StatusServiceUnavailable, route, "service not configured")
	default:
		log.Printf("[%s] internal failure: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "min", "gte":
				details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email address", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// currentUser reads the account UserAuth attached to the request.
func currentUser(c *gin.Context, route string) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return models.User{}, false
	}
	return user, true
}

func currentUserID(c *gin.Context, route string) (primitive.ObjectID, bool) {
	user, ok := currentUser(c, route)
	return user.ID, ok
}
