package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/services"
)

const signatureHeader = "Stripe-Signature"

func CreateCheckoutSession(checkout *services.CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/create-checkout-session"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}

		var req services.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		session, err := checkout.CreateSession(ctx, user, req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": session.ID, "url": session.URL})
	}
}

// Webhook must see the body exactly as sent; it is read raw before anything
// else touches it.
func Webhook(checkout *services.CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/webhook"
		defer handlePanic(c, route)

		payload, err := c.GetRawData()
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable body")
			return
		}

		result, err := checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		if result.Handled && result.Order != nil {
			log.Printf("[WEBHOOK] [INFO] %s handled order=%s duplicate=%t", result.EventType, result.Order.ID.Hex(), result.Duplicate)
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
