package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"keijiban-backend/agent"
	"keijiban-backend/lifecycle"
	"keijiban-backend/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type agentOptions struct {
	server    string
	token     string
	listen    string
	publicURL string
	redisAddr string
	deny      bool
}

// NewAgentCommand crée la commande qui lance un agent abonné
func NewAgentCommand() *cobra.Command {
	opts := &agentOptions{}

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Lance un agent qui s'abonne et affiche les notifications reçues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8090", "URL du serveur")
	cmd.Flags().StringVar(&opts.token, "token", "", "token de session")
	cmd.Flags().StringVar(&opts.listen, "listen", "127.0.0.1:8091", "adresse d'écoute de l'endpoint push")
	cmd.Flags().StringVar(&opts.publicURL, "public-url", "", "URL publique de l'endpoint push (défaut: http://<listen>)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "adresse Redis pour le cache hors ligne")
	cmd.Flags().BoolVar(&opts.deny, "deny", false, "refuser la permission de notification")
	return cmd
}

func runAgent(parent context.Context, opts *agentOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := agent.Config{
		Server:    opts.server,
		Token:     opts.token,
		PublicURL: opts.publicURL,
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://" + opts.listen
	}
	if opts.deny {
		cfg.OnRequest = lifecycle.PermissionDenied
	}
	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis injoignable: %w", err)
		}
		cfg.Caches = worker.NewRedisCacheStorage(rdb, "pushctl:")
	}

	a, err := agent.New(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", opts.listen).Msg("📡 Endpoint push en écoute")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("❌ Erreur du serveur push")
			stop()
		}
	}()

	if err := a.Start(ctx); err != nil {
		_ = srv.Close()
		return err
	}
	log.Info().Str("state", string(a.Controller().State())).Str("endpoint", a.Endpoint()).Msg("✅ Agent prêt")

	<-ctx.Done()
	log.Info().Msg("🛑 Arrêt de l'agent...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
