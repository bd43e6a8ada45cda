package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keijiban-backend/config"
	"keijiban-backend/database"
	"keijiban-backend/handlers"
	"keijiban-backend/middleware"
	"keijiban-backend/services"
	"keijiban-backend/utils"

	"github.com/rs/zerolog/log"
)

func main() {
	// Charger la configuration
	cfg, err := config.Load()
	if err != nil {
		utils.SetupLogger("info", true)
		log.Fatal().Err(err).Msg("❌ Erreur lors du chargement de la configuration")
	}
	utils.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	if cfg.IsProduction() {
		for _, origin := range cfg.CORSOrigins {
			if origin == "*" {
				log.Warn().Msg("⚠️ CORS_ALLOWED_ORIGINS contient * en production")
			}
		}
	}

	// Connexion au stockage
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := database.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("❌ Erreur de connexion au stockage")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Error().Err(err).Msg("❌ Erreur lors de la fermeture du stockage")
		}
	}()

	// Services
	sender := services.NewWebPushSender(services.WebPushOptions{
		Subject:    cfg.VAPIDSubject,
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		TTL:        cfg.PushTTL,
		Timeout:    cfg.PushTimeout,
	})
	broadcaster := services.NewBroadcastService(store.Subscriptions(), sender, services.BroadcastOptions{
		Concurrency: cfg.BroadcastConcurrency,
		Timeout:     cfg.PushTimeout,
		BodyMax:     cfg.NotificationBodyMax,
	})
	postService := services.NewPostService(store.Posts(), broadcaster, cfg.NotificationBodyMax)
	slackService := services.NewSlackService(cfg.SlackWebhookURL)

	router := handlers.NewRouter(handlers.RouterConfig{
		Environment:    cfg.Environment,
		JWTSecret:      cfg.JWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		StaticDir:      cfg.StaticDir,
		Store:          store,
		Broadcaster:    broadcaster,
		Posts:          postService,
		Slack:          slackService,
		RateLimiter:    middleware.NewRateLimiter(cfg.BroadcastRatePerMin, cfg.BroadcastBurst),
	})

	// Démarrer le serveur
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", addr).
			Str("env", cfg.Environment).
			Str("database", store.Name()).
			Msg("🚀 Serveur démarré")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("❌ Erreur du serveur")
		}
	}()

	// Attendre le signal d'arrêt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Arrêt du serveur...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ Erreur lors de l'arrêt du serveur")
	}
	// Les diffusions lancées par les posts se terminent avant la fermeture du stockage
	postService.Wait()
	log.Info().Msg("✓ Serveur arrêté proprement")
}
