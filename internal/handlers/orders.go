package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/services"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PlaceOrder creates an order without going through the payment provider.
func PlaceOrder(checkout *services.CheckoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/checkout"
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

		order, err := checkout.PlaceOrder(ctx, user, req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func MyOrders(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/my-orders"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, err := orders.MyOrders(ctx, userID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

/*
GET /api/orders
- admin listing, newest first
- search matches customer name/email or a full order id
*/
func GetOrders(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		result, err := orders.AllOrders(ctx, page, limit, c.Query("search"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func UpdateOrderStatus(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/status"

		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := orders.SetStatus(ctx, c.Param("id"), req.Status)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// DownloadInvoice renders the whole PDF before writing anything, so a
// failure never leaves a half-sent document.
func DownloadInvoice(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id/invoice"
		defer handlePanic(c, route)

		user, ok := currentUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		filename, data, err := orders.Invoice(ctx, user, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/pdf", data)
	}
}
