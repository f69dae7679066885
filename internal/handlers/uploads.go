package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/services"
	"storefront/internal/storage"
)

type dataURIRequest struct {
	Data string `json:"data" binding:"required"`
}

// UploadImage accepts a base64 data URI in JSON.
func UploadImage(uploads *services.UploadService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/upload"

		var req dataURIRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		url, err := uploads.UploadDataURI(ctx, req.Data)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// UploadDesign accepts a multipart "image" file.
func UploadDesign(uploads *services.UploadService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/upload/design"

		header, err := c.FormFile("image")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "image is required")
			return
		}
		if err := storage.ValidateDesign(header); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		file, err := header.Open()
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable upload")
			return
		}
		defer file.Close()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		url, err := uploads.UploadDesign(ctx, file)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}
