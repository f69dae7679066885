package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newViper())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "clothing_store", cfg.DBName)
	assert.Equal(t, "inr", cfg.PaymentCurrency)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.True(t, cfg.MongoTransactions)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, []string{"res.cloudinary.com"}, cfg.DesignImageHosts)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	v.Set("PAYMENT_CURRENCY", "USD")
	v.Set("ACCESS_TOKEN_TTL", 2)
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("CLIENT_URL", "https://shop.test/")
	v.Set("DESIGN_IMAGE_HOSTS", "res.cloudinary.com,cdn.shop.test")

	cfg := fromViper(v)

	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, 2*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"res.cloudinary.com", "cdn.shop.test"}, cfg.DesignImageHosts)
	assert.Equal(t, "https://shop.test/success?session_id={CHECKOUT_SESSION_ID}", cfg.SuccessURL())
	assert.Equal(t, "https://shop.test/cart", cfg.CancelURL())
}

func TestValidateRequiresJWTSecret(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	assert.NoError(t, Config{JWTSecret: "s"}.Validate())
}
