package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/services"
)

func authResponse(token string, user models.User) gin.H {
	return gin.H{
		"accessToken": token,
		"user": gin.H{
			"id":      user.ID.Hex(),
			"name":    user.Name,
			"email":   user.Email,
			"isAdmin": user.IsAdmin,
		},
	}
}

func Register(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/register"

		var req services.RegisterInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, token, err := auth.Register(ctx, req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, authResponse(token, user))
	}
}

func Login(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/login"

		var req services.LoginInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		user, token, err := auth.Login(ctx, req)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, authResponse(token, user))
	}
}
