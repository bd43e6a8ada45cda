// Package worker implémente le worker de livraison côté client: cycle de vie versionné,
// interception réseau « network-first » avec repli hors ligne et affichage des notifications push.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// State est l'état du cycle de vie du worker
type State int

const (
	StateInstalling State = iota
	StateWaiting
	StateActivating
	StateActive
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateRedundant:
		return "redundant"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrStopped est retournée par Dispatch quand la boucle d'événements est arrêtée
	ErrStopped = errors.New("worker arrêté")
	// ErrInvalidState est retournée pour un événement de cycle de vie hors séquence
	ErrInvalidState = errors.New("état du worker incompatible")
)

// Event est un événement traité par la boucle du worker
type Event interface {
	eventName() string
}

// InstallEvent pré-cache la coquille puis active le worker
type InstallEvent struct{}

// ActivateEvent supprime les caches des versions précédentes et prend le contrôle des fenêtres
type ActivateEvent struct{}

// PushEvent porte le message push déchiffré (vide si le message n'a pas de données)
type PushEvent struct {
	Data []byte
}

// NotificationClickEvent est émis quand l'utilisateur touche une notification
type NotificationClickEvent struct {
	Notification Notification
}

func (InstallEvent) eventName() string           { return "install" }
func (ActivateEvent) eventName() string          { return "activate" }
func (PushEvent) eventName() string              { return "push" }
func (NotificationClickEvent) eventName() string { return "notificationclick" }

type envelope struct {
	ctx   context.Context
	event Event
	done  chan error
}

// Worker est une instance versionnée du worker de livraison
type Worker struct {
	cfg      Config
	origin   *url.URL
	network  http.RoundTripper
	caches   CacheStorage
	notifier Notifier
	clients  Clients

	events  chan envelope
	stopped chan struct{}
	runOnce sync.Once

	mu    sync.RWMutex
	state State
}

// New crée un worker dans l'état installing. network sert aux requêtes réelles
// (http.DefaultTransport si nil).
func New(cfg Config, network http.RoundTripper, caches CacheStorage, notifier Notifier, clients Clients) (*Worker, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("origine invalide %q", cfg.Origin)
	}
	if cfg.CacheName == "" {
		return nil, errors.New("nom de cache requis")
	}
	if network == nil {
		network = http.DefaultTransport
	}
	return &Worker{
		cfg:      cfg,
		origin:   origin,
		network:  network,
		caches:   caches,
		notifier: notifier,
		clients:  clients,
		events:   make(chan envelope),
		stopped:  make(chan struct{}),
		state:    StateInstalling,
	}, nil
}

// State retourne l'état courant du cycle de vie
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	prev := w.state
	w.state = s
	w.mu.Unlock()
	log.Debug().Str("cache", w.cfg.CacheName).Stringer("from", prev).Stringer("to", s).Msg("worker: changement d'état")
}

// Run traite les événements un par un jusqu'à l'annulation de ctx.
// Un seul Run par worker.
func (w *Worker) Run(ctx context.Context) error {
	started := false
	w.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("boucle d'événements déjà démarrée")
	}
	defer close(w.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-w.events:
			env.done <- w.handle(env.ctx, env.event)
		}
	}
}

// Dispatch soumet un événement et attend que son traitement soit terminé
func (w *Worker) Dispatch(ctx context.Context, event Event) error {
	env := envelope{ctx: ctx, event: event, done: make(chan error, 1)}
	select {
	case w.events <- env:
	case <-w.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-env.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) handle(ctx context.Context, event Event) error {
	var err error
	switch ev := event.(type) {
	case InstallEvent:
		err = w.install(ctx)
	case ActivateEvent:
		err = w.activate(ctx)
	case PushEvent:
		err = w.handlePush(ctx, ev)
	case NotificationClickEvent:
		err = w.handleClick(ctx, ev)
	default:
		err = fmt.Errorf("événement inconnu %T", event)
	}
	if err != nil {
		log.Warn().Err(err).Str("event", event.eventName()).Msg("⚠️ worker: événement en échec")
	}
	return err
}

// install pré-cache la liste complète ou rien, puis s'active sans attendre
func (w *Worker) install(ctx context.Context) error {
	if s := w.State(); s != StateInstalling {
		return fmt.Errorf("%w: install depuis %s", ErrInvalidState, s)
	}

	entries := make([]*Entry, 0, len(w.cfg.Precache))
	for _, path := range w.cfg.Precache {
		entry, err := w.fetchForPrecache(ctx, path)
		if err != nil {
			w.setState(StateRedundant)
			return fmt.Errorf("erreur lors du pré-cache de %s: %w", path, err)
		}
		entries = append(entries, entry)
	}

	cache, err := w.caches.Open(ctx, w.cfg.CacheName)
	if err == nil {
		err = cache.PutAll(ctx, entries)
	}
	if err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("erreur lors de l'écriture du pré-cache: %w", err)
	}

	w.setState(StateWaiting)
	log.Info().Str("cache", w.cfg.CacheName).Int("assets", len(entries)).Msg("✓ worker installé")
	return w.activate(ctx)
}

func (w *Worker) fetchForPrecache(ctx context.Context, path string) (*Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolveURL(w.cfg.Origin, path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.network.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("statut inattendu %d", resp.StatusCode)
	}
	return readEntry(cacheKey(req.URL), resp)
}

// activate supprime tous les caches d'une autre version puis prend le contrôle des fenêtres
func (w *Worker) activate(ctx context.Context) error {
	switch s := w.State(); s {
	case StateActive:
		return nil
	case StateWaiting:
	default:
		return fmt.Errorf("%w: activate depuis %s", ErrInvalidState, s)
	}
	w.setState(StateActivating)

	names, err := w.caches.Names(ctx)
	if err != nil {
		w.setState(StateWaiting)
		return err
	}
	for _, name := range names {
		if name == w.cfg.CacheName {
			continue
		}
		if err := w.caches.Delete(ctx, name); err != nil {
			w.setState(StateWaiting)
			return err
		}
		log.Info().Str("cache", name).Msg("🗑️ worker: ancien cache supprimé")
	}

	if err := w.clients.Claim(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ worker: prise de contrôle des fenêtres impossible")
	}
	w.setState(StateActive)
	log.Info().Str("cache", w.cfg.CacheName).Msg("✓ worker actif")
	return nil
}

// resolveURL rend absolue une URL relative à l'origine
func resolveURL(origin, ref string) string {
	if strings.Contains(ref, "://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return strings.TrimRight(origin, "/") + ref
}
