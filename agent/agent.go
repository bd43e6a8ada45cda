// Package agent est un agent utilisateur sans interface: il héberge un endpoint push,
// déchiffre les messages reçus et pilote le worker de livraison et le contrôleur d'abonnement.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"keijiban-backend/client"
	"keijiban-backend/lifecycle"
	"keijiban-backend/pushclient"
	"keijiban-backend/worker"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// maxPushBody borne la taille d'un message push accepté
const maxPushBody = 8 << 10

// Config configure un Agent
type Config struct {
	// Server est l'URL de base du serveur (origine de l'application)
	Server string
	Token  string
	// PublicURL est l'URL de base à laquelle les services push joignent cet agent
	PublicURL string
	// OnRequest est la réponse donnée à une demande de permission (granted par défaut)
	OnRequest lifecycle.Permission

	Caches     worker.CacheStorage
	HTTPClient *http.Client
}

type subscription struct {
	id       string
	endpoint string
	keys     *pushclient.Keys
}

// Agent simule un profil de navigateur abonné aux notifications
type Agent struct {
	cfg        Config
	api        *client.Client
	worker     *worker.Worker
	controller *lifecycle.Controller
	tray       *worker.Tray
	windows    *worker.WindowSet

	mu         sync.Mutex
	permission lifecycle.Permission
	current    *subscription
	known      map[string]*subscription
}

// New crée un agent. Start doit être appelé avant toute réception.
func New(cfg Config) (*Agent, error) {
	if cfg.Server == "" || cfg.PublicURL == "" {
		return nil, errors.New("URL du serveur et URL publique requises")
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.OnRequest == "" {
		cfg.OnRequest = lifecycle.PermissionGranted
	}
	if cfg.Caches == nil {
		cfg.Caches = worker.NewMemoryCacheStorage()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	a := &Agent{
		cfg:        cfg,
		api:        client.New(cfg.Server, cfg.Token, httpClient),
		tray:       worker.NewTray(true),
		windows:    worker.NewWindowSet(cfg.Server),
		permission: lifecycle.PermissionDefault,
		known:      make(map[string]*subscription),
	}
	a.tray.OnShow = func(n worker.Notification) {
		log.Info().Str("title", n.Title).Str("body", n.Body).Str("url", n.URL).Msg("🔔 Notification reçue")
	}

	w, err := worker.New(worker.DefaultConfig(cfg.Server), httpClient.Transport, cfg.Caches, a.tray, a.windows)
	if err != nil {
		return nil, err
	}
	a.worker = w
	a.controller = lifecycle.NewController(a, a.api)
	return a, nil
}

// Start lance la boucle du worker, l'installe puis charge une première vue de page.
// La boucle s'arrête avec ctx.
func (a *Agent) Start(ctx context.Context) error {
	go func() {
		if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("❌ Boucle du worker arrêtée")
		}
	}()
	if err := a.worker.Dispatch(ctx, worker.InstallEvent{}); err != nil {
		return fmt.Errorf("erreur lors de l'installation du worker: %w", err)
	}
	a.windows.Add(a.cfg.Server+"/", true)
	return a.Reload(ctx)
}

// Reload simule une nouvelle vue de page: l'état de consentement est recalculé
// et l'invitation éventuelle est acceptée.
func (a *Agent) Reload(ctx context.Context) error {
	if err := a.controller.Init(ctx, a.cfg.Token != ""); err != nil {
		return err
	}
	if a.controller.PromptVisible() {
		return a.controller.Accept(ctx)
	}
	return nil
}

// Handler sert POST /push/{id}
func (a *Agent) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/push/{id}", a.receive).Methods(http.MethodPost)
	return router
}

func (a *Agent) receive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a.mu.Lock()
	sub := a.known[id]
	a.mu.Unlock()
	if sub == nil {
		w.WriteHeader(http.StatusGone)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBody))
	if err != nil {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	var data []byte
	if len(body) > 0 {
		data, err = pushclient.Decrypt(sub.keys, body)
		if err != nil {
			log.Warn().Err(err).Str("subscription", id).Msg("⚠️ Message push indéchiffrable")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	if err := a.worker.Dispatch(r.Context(), worker.PushEvent{Data: data}); err != nil {
		log.Warn().Err(err).Msg("⚠️ Message push non traité")
	}
	w.WriteHeader(http.StatusCreated)
}

// Expire oublie l'abonnement courant sans prévenir le serveur; son endpoint répond 410 ensuite
func (a *Agent) Expire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		delete(a.known, a.current.id)
		a.current = nil
	}
}

// Click touche la notification visible
func (a *Agent) Click(ctx context.Context) error {
	visible := a.tray.Visible()
	if len(visible) == 0 {
		return errors.New("aucune notification visible")
	}
	return a.worker.Dispatch(ctx, worker.NotificationClickEvent{Notification: visible[len(visible)-1]})
}

// Unsubscribe désabonne l'agent côté navigateur et côté serveur
func (a *Agent) Unsubscribe(ctx context.Context) error {
	return a.controller.Unsubscribe(ctx)
}

// HTTPClient retourne un client dont les requêtes passent par le worker
func (a *Agent) HTTPClient() *http.Client {
	return &http.Client{Transport: a.worker}
}

// Notifications retourne les notifications visibles
func (a *Agent) Notifications() []worker.Notification {
	return a.tray.Visible()
}

// Windows retourne les fenêtres ouvertes
func (a *Agent) Windows() []worker.WindowClient {
	return a.windows.Windows()
}

// Controller expose le contrôleur d'abonnement
func (a *Agent) Controller() *lifecycle.Controller {
	return a.controller
}

// Endpoint retourne l'endpoint de l'abonnement courant, vide sans abonnement
func (a *Agent) Endpoint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return ""
	}
	return a.current.endpoint
}
