package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/services"
)

func DashboardStats(admin *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/dashboard"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		stats, err := admin.DashboardStats(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func DailyRevenue(admin *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/orders/daily-revenue"

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		days, err := admin.DailyRevenue(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, days)
	}
}

func ListUsers(admin *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/users"

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		users, err := admin.ListUsers(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func DeleteUser(admin *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/users/:id"
		requester, ok := currentUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := admin.DeleteUser(ctx, requester, c.Param("id")); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}
