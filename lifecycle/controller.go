// Package lifecycle gère le consentement aux notifications et l'abonnement push d'un utilisateur connecté.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"keijiban-backend/models"
	"keijiban-backend/utils"

	"github.com/rs/zerolog/log"
)

// ErrUnsupported est retournée quand la plateforme ne supporte pas les notifications push
var ErrUnsupported = errors.New("notifications push non supportées")

// Permission est la valeur de permission de notification de la plateforme
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// State est l'état de consentement vu par l'application
type State string

const (
	StateUnknown  State = "unknown"
	StatePrompted State = "prompted"
	StateGranted  State = "granted"
	StateDenied   State = "denied"
)

// Subscription est l'abonnement push détenu par la plateforme
type Subscription struct {
	Endpoint string
	Keys     models.PushKeys
}

// Registration est l'enregistrement prêt du worker de livraison
type Registration interface {
	// GetSubscription retourne nil sans erreur s'il n'y a pas d'abonnement
	GetSubscription(ctx context.Context) (*Subscription, error)
	Subscribe(ctx context.Context, applicationServerKey []byte) (*Subscription, error)
	Unsubscribe(ctx context.Context) error
}

// Platform expose les capacités de notification du navigateur
type Platform interface {
	Supported() bool
	Permission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (Permission, error)
	Ready(ctx context.Context) (Registration, error)
}

// Server est l'API d'abonnement du serveur
type Server interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	Register(ctx context.Context, sub models.SubscriptionInfo) error
	Unregister(ctx context.Context, endpoint string) error
}

// Controller est la machine à états du consentement pour une vue de page.
// Le refus temporaire (Dismiss) n'est pas persisté: une nouvelle vue redemande.
type Controller struct {
	platform Platform
	server   Server

	mu            sync.Mutex
	state         State
	promptVisible bool
	subscribing   bool
	publicKey     string
}

// NewController crée un contrôleur dans l'état unknown
func NewController(platform Platform, server Server) *Controller {
	return &Controller{platform: platform, server: server, state: StateUnknown}
}

// State retourne l'état de consentement
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PromptVisible indique si l'invitation à activer les notifications est affichée
func (c *Controller) PromptVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.promptVisible
}

func (c *Controller) set(state State, prompt bool) {
	c.mu.Lock()
	c.state = state
	c.promptVisible = prompt
	c.mu.Unlock()
}

// Init détermine l'état initial au chargement de la page.
// Si la permission est déjà accordée, l'abonnement est recréé en silence s'il a disparu.
func (c *Controller) Init(ctx context.Context, loggedIn bool) error {
	if !loggedIn {
		c.set(StateUnknown, false)
		return nil
	}
	if !c.platform.Supported() {
		c.set(StateUnknown, false)
		return ErrUnsupported
	}

	perm, err := c.platform.Permission(ctx)
	if err != nil {
		c.set(StateUnknown, false)
		return fmt.Errorf("erreur lors de la lecture de la permission: %w", err)
	}

	switch perm {
	case PermissionGranted:
		c.set(StateGranted, false)
		c.silentResubscribe(ctx)
	case PermissionDenied:
		c.set(StateDenied, false)
	default:
		c.set(StatePrompted, true)
	}
	return nil
}

// silentResubscribe est au mieux: les erreurs sont journalisées puis ignorées
func (c *Controller) silentResubscribe(ctx context.Context) {
	reg, err := c.platform.Ready(ctx)
	if err == nil {
		var existing *Subscription
		existing, err = reg.GetSubscription(ctx)
		if err == nil && existing != nil {
			return
		}
	}
	if err == nil {
		err = c.Subscribe(ctx)
	}
	if err != nil {
		log.Debug().Err(err).Msg("réabonnement silencieux ignoré")
		return
	}
	log.Info().Msg("✓ Abonnement push recréé")
}

// Accept demande la permission puis abonne l'utilisateur si elle est accordée.
// L'invitation est masquée dans tous les cas; un échec n'est pas retenté.
func (c *Controller) Accept(ctx context.Context) error {
	if !c.platform.Supported() {
		return ErrUnsupported
	}
	c.mu.Lock()
	if c.subscribing {
		c.mu.Unlock()
		return nil
	}
	c.subscribing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.subscribing = false
		c.mu.Unlock()
	}()

	perm, err := c.platform.RequestPermission(ctx)
	if err != nil {
		c.set(StateUnknown, false)
		log.Error().Err(err).Msg("❌ Échec de l'activation des notifications")
		return fmt.Errorf("erreur lors de la demande de permission: %w", err)
	}

	switch perm {
	case PermissionGranted:
		c.set(StateGranted, false)
		if err := c.Subscribe(ctx); err != nil {
			log.Error().Err(err).Msg("❌ Échec de l'activation des notifications")
			return err
		}
	case PermissionDenied:
		c.set(StateDenied, false)
	default:
		c.set(StateUnknown, false)
	}
	return nil
}

// Dismiss masque l'invitation pour cette vue seulement
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promptVisible = false
	if c.state == StatePrompted {
		c.state = StateUnknown
	}
}

// Subscribe crée l'abonnement push avec la clé publique du serveur et l'enregistre côté serveur
func (c *Controller) Subscribe(ctx context.Context) error {
	key, err := c.applicationServerKey(ctx)
	if err != nil {
		return err
	}
	reg, err := c.platform.Ready(ctx)
	if err != nil {
		return fmt.Errorf("worker non prêt: %w", err)
	}
	sub, err := reg.Subscribe(ctx, key)
	if err != nil {
		return fmt.Errorf("erreur lors de la création de l'abonnement: %w", err)
	}
	if err := c.server.Register(ctx, models.SubscriptionInfo{Endpoint: sub.Endpoint, Keys: sub.Keys}); err != nil {
		return fmt.Errorf("erreur lors de l'enregistrement de l'abonnement: %w", err)
	}
	log.Info().Str("endpoint", sub.Endpoint).Msg("✓ Abonné aux notifications push")
	return nil
}

// Unsubscribe supprime l'abonnement du serveur puis de la plateforme. Sans abonnement, ne fait rien.
// Si le serveur refuse, l'abonnement local est conservé pour qu'un nouvel essai reste possible.
func (c *Controller) Unsubscribe(ctx context.Context) error {
	reg, err := c.platform.Ready(ctx)
	if err != nil {
		return fmt.Errorf("worker non prêt: %w", err)
	}
	sub, err := reg.GetSubscription(ctx)
	if err != nil {
		return fmt.Errorf("erreur lors de la lecture de l'abonnement: %w", err)
	}
	if sub == nil {
		return nil
	}
	if err := c.server.Unregister(ctx, sub.Endpoint); err != nil {
		return fmt.Errorf("erreur lors du désabonnement serveur: %w", err)
	}
	if err := reg.Unsubscribe(ctx); err != nil {
		return fmt.Errorf("erreur lors de la suppression de l'abonnement: %w", err)
	}
	log.Info().Str("endpoint", sub.Endpoint).Msg("✓ Désabonné des notifications push")
	return nil
}

func (c *Controller) applicationServerKey(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	key := c.publicKey
	c.mu.Unlock()

	if key == "" {
		var err error
		key, err = c.server.VAPIDPublicKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("erreur lors de la récupération de la clé VAPID: %w", err)
		}
		c.mu.Lock()
		c.publicKey = key
		c.mu.Unlock()
	}

	raw, err := utils.DecodeApplicationServerKey(key)
	if err != nil {
		return nil, fmt.Errorf("clé VAPID invalide: %w", err)
	}
	return raw, nil
}
