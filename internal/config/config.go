package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var AppEnv Config

type Config struct {
	Port              string
	MongoURI          string
	DBName            string
	MongoTransactions bool
	JWTSecret         string
	AccessTokenTTL    time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string
	ClientURL           string
	AllowedOrigins      []string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	DesignImageHosts    []string

	RabbitMQURL string
	StoreName   string
}

// SuccessURL is where the hosted checkout page redirects after payment.
func (c Config) SuccessURL() string {
	return strings.TrimRight(c.ClientURL, "/") + "/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c Config) CancelURL() string {
	return strings.TrimRight(c.ClientURL, "/") + "/cart"
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_NAME", "clothing_store")
	v.SetDefault("MONGO_TRANSACTIONS", true)
	v.SetDefault("ACCESS_TOKEN_TTL", 24)
	v.SetDefault("PAYMENT_CURRENCY", "inr")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("STORE_NAME", "Clothing Store")
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Port:                getEnvOrDefault(v, "PORT", "8080"),
		MongoURI:            getEnvOrDefault(v, "MONGO_URI", ""),
		DBName:              getEnvOrDefault(v, "DB_NAME", "clothing_store"),
		MongoTransactions:   v.GetBool("MONGO_TRANSACTIONS"),
		JWTSecret:           getEnvOrDefault(v, "JWT_SECRET", ""),
		AccessTokenTTL:      getDurationEnv(v, "ACCESS_TOKEN_TTL", 24, time.Hour),
		StripeSecretKey:     getEnvOrDefault(v, "STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnvOrDefault(v, "STRIPE_WEBHOOK_SECRET", ""),
		PaymentCurrency:     strings.ToLower(getEnvOrDefault(v, "PAYMENT_CURRENCY", "inr")),
		ClientURL:           getEnvOrDefault(v, "CLIENT_URL", "http://localhost:3000"),
		AllowedOrigins:      splitList(v.GetString("ALLOWED_ORIGINS")),
		CloudinaryCloudName: getEnvOrDefault(v, "CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnvOrDefault(v, "CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnvOrDefault(v, "CLOUDINARY_API_SECRET", ""),
		DesignImageHosts:    splitList(getEnvOrDefault(v, "DESIGN_IMAGE_HOSTS", "res.cloudinary.com")),
		RabbitMQURL:         getEnvOrDefault(v, "RABBITMQ_URL", ""),
		StoreName:           getEnvOrDefault(v, "STORE_NAME", "Clothing Store"),
	}
}

func getEnvOrDefault(v *viper.Viper, key, defaultValue string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(v *viper.Viper, key string, defaultValue int, unit time.Duration) time.Duration {
	if parsed := v.GetInt(key); parsed > 0 {
		return time.Duration(parsed) * unit
	}
	return time.Duration(defaultValue) * unit
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
