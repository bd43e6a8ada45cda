package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"keijiban-backend/constants"
	"keijiban-backend/models"
	"keijiban-backend/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrTitleRequired est retournée quand la notification n'a pas de titre
var ErrTitleRequired = errors.New("le titre est requis")

// SubscriptionReader est l'accès administratif au magasin utilisé par la diffusion
type SubscriptionReader interface {
	FindAll(ctx context.Context) ([]models.PushSubscription, error)
	DeleteByID(ctx context.Context, id string) error
}

// BroadcastOptions configure BroadcastService
type BroadcastOptions struct {
	Concurrency int
	Timeout     time.Duration
	BodyMax     int
}

// BroadcastService diffuse une notification à tous les abonnements
type BroadcastService struct {
	store       SubscriptionReader
	sender      Sender
	concurrency int
	timeout     time.Duration
	bodyMax     int
}

// NewBroadcastService crée un nouveau BroadcastService
func NewBroadcastService(store SubscriptionReader, sender Sender, opts BroadcastOptions) *BroadcastService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BodyMax < 1 {
		opts.BodyMax = constants.NotificationBodyMax
	}
	return &BroadcastService{
		store:       store,
		sender:      sender,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		bodyMax:     opts.BodyMax,
	}
}

// BuildPayload construit le message commun à tous les destinataires
func (s *BroadcastService) BuildPayload(req models.NotificationRequest) (models.NotificationPayload, error) {
	if strings.TrimSpace(req.Title) == "" {
		return models.NotificationPayload{}, ErrTitleRequired
	}
	url := req.URL
	if url == "" {
		url = constants.DefaultNotificationURL
	}
	return models.NotificationPayload{
		Title: req.Title,
		Body:  utils.Truncate(req.Body, s.bodyMax),
		URL:   url,
		Icon:  constants.DefaultNotificationIcon,
		Badge: constants.DefaultNotificationBadge,
	}, nil
}

// Broadcast envoie la notification à chaque abonnement en parallèle et attend
// que toutes les livraisons soient réglées. Les endpoints 404/410 sont supprimés.
// Seules la validation et la lecture du magasin font échouer l'appel.
func (s *BroadcastService) Broadcast(ctx context.Context, req models.NotificationRequest) (models.BroadcastResult, error) {
	payload, err := s.BuildPayload(req)
	if err != nil {
		return models.BroadcastResult{}, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return models.BroadcastResult{}, fmt.Errorf("erreur lors de la création du payload: %w", err)
	}

	subs, err := s.store.FindAll(ctx)
	if err != nil {
		return models.BroadcastResult{}, err
	}
	broadcastRecipients.Observe(float64(len(subs)))
	if len(subs) == 0 {
		return models.BroadcastResult{}, nil
	}

	start := time.Now()
	// Une livraison partielle est un résultat acceptable: l'annulation de l'appelant ne l'interrompt pas
	ctx = context.WithoutCancel(ctx)

	var sent, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			if err := s.deliver(ctx, sub, data); err != nil {
				failed.Add(1)
			} else {
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	broadcastDuration.Observe(time.Since(start).Seconds())

	result := models.BroadcastResult{Sent: int(sent.Load()), Failed: int(failed.Load())}
	log.Info().
		Int("total", len(subs)).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("📊 Diffusion terminée")
	return result, nil
}

// deliver envoie à un destinataire et supprime l'abonnement s'il a expiré
func (s *BroadcastService) deliver(ctx context.Context, sub models.PushSubscription, data []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.sender.Send(sendCtx, sub, data)
	if err == nil {
		pushDeliveries.WithLabelValues(OutcomeSent).Inc()
		return nil
	}
	pushDeliveries.WithLabelValues(OutcomeFailed).Inc()

	if !errors.Is(err, ErrSubscriptionGone) {
		log.Warn().Err(err).Str("user_id", sub.UserID).Str("endpoint", sub.Endpoint).Msg("⚠️ Échec de livraison")
		return err
	}

	if derr := s.store.DeleteByID(ctx, sub.ID); derr != nil {
		log.Error().Err(derr).Str("subscription_id", sub.ID).Msg("❌ Suppression de l'abonnement expiré impossible")
		return err
	}
	pushDeliveries.WithLabelValues(OutcomePruned).Inc()
	log.Info().Str("user_id", sub.UserID).Str("endpoint", sub.Endpoint).Msg("🗑️ Abonnement expiré supprimé")
	return err
}
