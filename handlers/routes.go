package handlers

import (
	"net/http"

	"keijiban-backend/database"
	"keijiban-backend/middleware"
	"keijiban-backend/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig regroupe les dépendances du routeur HTTP
type RouterConfig struct {
	Environment    string
	JWTSecret      string
	CORSOrigins    []string
	VAPIDPublicKey string
	StaticDir      string

	Store       database.Store
	Broadcaster services.Broadcaster
	Posts       *services.PostService
	Slack       *services.SlackService
	RateLimiter *middleware.RateLimiter
}

// NewRouter construit le routeur de l'API
func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(cfg.Slack))
	router.Use(middleware.Metrics)
	router.Use(middleware.CORS(cfg.CORSOrigins))

	notificationHandler := NewNotificationHandler(cfg.Store.Subscriptions(), cfg.Broadcaster, cfg.VAPIDPublicKey)
	postHandler := NewPostHandler(cfg.Posts, cfg.Store.Posts())
	healthHandler := NewHealthHandler(cfg.Environment, cfg.Store)

	// Routes publiques
	router.HandleFunc("/api/health", healthHandler.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/api/notifications/vapid-public-key", notificationHandler.GetVAPIDPublicKey).Methods("GET", "OPTIONS")

	// Routes protégées
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.Auth(cfg.JWTSecret))

	broadcast := http.Handler(http.HandlerFunc(notificationHandler.Broadcast))
	if cfg.RateLimiter != nil {
		broadcast = cfg.RateLimiter.Handler(broadcast)
	}
	protected.Handle("/notifications/send", broadcast).Methods("POST", "OPTIONS")
	protected.HandleFunc("/notifications/subscribe", notificationHandler.Subscribe).Methods("POST", "OPTIONS")
	protected.HandleFunc("/notifications/subscribe", notificationHandler.Unsubscribe).Methods("DELETE")
	protected.HandleFunc("/notifications/subscriptions", notificationHandler.ListSubscriptions).Methods("GET")
	protected.HandleFunc("/notifications/unsubscribe", notificationHandler.Unsubscribe).Methods("POST", "OPTIONS")

	protected.HandleFunc("/posts", postHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/posts/{id}", postHandler.Get).Methods("GET", "OPTIONS")

	// Coquille applicative (liste de pré-cache du worker)
	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods("GET", "HEAD")
	}

	return router
}
