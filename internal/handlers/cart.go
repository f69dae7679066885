package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
)

// The cart lives on the client. Every request carries the current cart and
// receives the next one.

type cartAddRequest struct {
	Cart      cart.Cart `json:"cart"`
	ProductID string    `json:"productId" binding:"required"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
}

type cartActionRequest struct {
	Cart cart.Cart `json:"cart"`
	Key  string    `json:"key"`
}

func cartResponse(next cart.Cart, notice *cart.Notice) gin.H {
	if next.Lines == nil {
		next.Lines = []cart.Line{}
	}
	body := gin.H{
		"items": next.Lines,
		"count": next.Count(),
		"total": next.Total(),
	}
	if notice != nil {
		body["notice"] = notice
	}
	return body
}

func AddToCart(manager *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/add"

		var req cartAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		next, notice, err := manager.Add(ctx, req.Cart, req.ProductID, req.Size, req.Color, req.Quantity)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(next, notice))
	}
}

// UpdateCart applies increase, decrease, remove or clear to the line
// identified by key.
func UpdateCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/:action"

		var req cartActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		var next cart.Cart
		var notice *cart.Notice
		switch c.Param("action") {
		case "increase":
			next, notice = req.Cart.Increase(req.Key)
		case "decrease":
			next = req.Cart.Decrease(req.Key)
		case "remove":
			next = req.Cart.Remove(req.Key)
		case "clear":
			next = req.Cart.Clear()
		default:
			respondWithError(c, http.StatusNotFound, route, "unknown cart action")
			return
		}
		c.JSON(http.StatusOK, cartResponse(next, notice))
	}
}
