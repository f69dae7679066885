package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/services"
)

func GetProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/profile"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := users.Profile(ctx, userID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func UpdateProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/users/profile"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req services.ProfilePatch
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, err := users.UpdateProfile(ctx, userID, req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func GetUserAddresses(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/addresses"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		addresses, err := users.Addresses(ctx, userID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"addresses": addresses})
	}
}

func CreateUserAddress(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/addresses"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req services.AddressInput
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println("[ADDRESS] [ERROR] invalid address body:", err)
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		addresses, err := users.AddAddress(ctx, userID, req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"addresses": addresses})
	}
}

func UpdateUserAddress(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/users/addresses/:id"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		var req services.AddressInput
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println("[ADDRESS] [ERROR] invalid address body:", err)
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		addresses, err := users.UpdateAddress(ctx, userID, c.Param("id"), req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"addresses": addresses})
	}
}

func DeleteUserAddress(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/users/addresses/:id"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		addresses, err := users.DeleteAddress(ctx, userID, c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"addresses": addresses})
	}
}

func GetWishlist(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/wishlist"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		products, err := users.Wishlist(ctx, userID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func ToggleWishlist(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/wishlist/:productId"
		userID, ok := currentUserID(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		added, wishlist, err := users.ToggleWishlist(ctx, userID, c.Param("productId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"wishlisted": added, "wishlist": wishlist})
	}
}
