package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"keijiban-backend/utils"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Pilotes de stockage supportés
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config contient toutes les configurations de l'application
type Config struct {
	Port        string
	Host        string
	Environment string
	JWTSecret   string
	CORSOrigins []string

	VAPIDSubject    string
	VAPIDPublicKey  string
	VAPIDPrivateKey string

	StoreDriver string
	MongoURI    string
	MongoDB     string
	DatabaseURL string
	SQLitePath  string

	PushTTL              time.Duration
	PushTimeout          time.Duration
	BroadcastConcurrency int
	BroadcastRatePerMin  int
	BroadcastBurst       int
	NotificationBodyMax  int

	StaticDir       string
	SlackWebhookURL string
	LogLevel        string
	LogPretty       bool
}

// Load charge la configuration depuis les variables d'environnement
func Load() (*Config, error) {
	// Charger le fichier .env s'il existe
	_ = godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")
	config := &Config{
		Port:        getEnv("PORT", "8090"),
		Host:        getEnv("HOST", "0.0.0.0"),
		Environment: environment,
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		VAPIDSubject:    getEnv("VAPID_SUBJECT", ""),
		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "keijiban"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "keijiban.db"),

		PushTTL:              getDuration("PUSH_TTL", 24*time.Hour),
		PushTimeout:          getDuration("PUSH_TIMEOUT", 10*time.Second),
		BroadcastConcurrency: getInt("BROADCAST_CONCURRENCY", 16),
		BroadcastRatePerMin:  getInt("BROADCAST_RATE_PER_MIN", 30),
		BroadcastBurst:       getInt("BROADCAST_BURST", 5),
		NotificationBodyMax:  getInt("NOTIFICATION_BODY_MAX", 100),

		StaticDir:       getEnv("STATIC_DIR", "web/static"),
		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getBool("LOG_PRETTY", environment == "development"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate vérifie les configurations critiques
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET est requis")
	}

	if c.VAPIDSubject == "" || c.VAPIDPublicKey == "" || c.VAPIDPrivateKey == "" {
		return fmt.Errorf("VAPID_SUBJECT, VAPID_PUBLIC_KEY et VAPID_PRIVATE_KEY sont requis")
	}
	if !strings.HasPrefix(c.VAPIDSubject, "mailto:") && !strings.HasPrefix(c.VAPIDSubject, "https:") {
		return fmt.Errorf("VAPID_SUBJECT doit commencer par mailto: ou https:")
	}
	if err := utils.ValidateVAPIDKeys(c.VAPIDPublicKey, c.VAPIDPrivateKey); err != nil {
		return fmt.Errorf("clés VAPID invalides: %w", err)
	}

	switch c.StoreDriver {
	case DriverMongo, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL est requis avec STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("STORE_DRIVER inconnu: %q", c.StoreDriver)
	}

	if c.BroadcastConcurrency < 1 {
		c.BroadcastConcurrency = 1
	}
	if c.NotificationBodyMax < 1 {
		c.NotificationBodyMax = 100
	}
	return nil
}

// IsProduction indique si l'application tourne en production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv récupère une variable d'environnement avec une valeur par défaut
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("⚠️ Entier invalide, valeur par défaut utilisée")
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("⚠️ Booléen invalide, valeur par défaut utilisée")
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("⚠️ Durée invalide, valeur par défaut utilisée")
		return defaultValue
	}
	return v
}

// splitCSV découpe une liste séparée par des virgules en ignorant les entrées vides
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
