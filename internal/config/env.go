package config

import (
	"fmt"
	"log"
	"strings"
)

// Validate reports every required key that is missing. Payment and image
// hosting keys are optional: without them the matching endpoints answer 503.
func (c Config) Validate() error {
	missing := make([]string, 0)
	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("ENV %s is required", strings.Join(missing, ", "))
	}

	if c.StripeSecretKey == "" || c.StripeWebhookSecret == "" {
		log.Println("[CONFIG] [WARN] stripe keys not set, checkout disabled")
	}
	if c.CloudinaryCloudName == "" {
		log.Println("[CONFIG] [WARN] cloudinary not configured, uploads disabled")
	}
	if c.MongoURI == "" {
		log.Println("[CONFIG] [WARN] MONGO_URI not set, using in-memory store")
	}
	return nil
}
