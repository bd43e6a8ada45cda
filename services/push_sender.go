package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"keijiban-backend/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone signale un endpoint définitivement invalide (404 ou 410)
var ErrSubscriptionGone = errors.New("abonnement expiré")

// DeliveryError est une réponse non 2xx du service push
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("service push: statut %d", e.StatusCode)
	}
	return fmt.Sprintf("service push: statut %d: %s", e.StatusCode, e.Body)
}

// Is rattache 404 et 410 à ErrSubscriptionGone
func (e *DeliveryError) Is(target error) bool {
	return target == ErrSubscriptionGone &&
		(e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone)
}

// Sender envoie un message chiffré à un abonnement
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) error
}

// WebPushOptions configure WebPushSender
type WebPushOptions struct {
	Subject    string
	PublicKey  string
	PrivateKey string
	TTL        time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
}

// WebPushSender envoie les notifications via le protocole Web Push (VAPID + aes128gcm)
type WebPushSender struct {
	subject    string
	publicKey  string
	privateKey string
	ttl        time.Duration
	client     *http.Client
}

// NewWebPushSender crée un nouveau WebPushSender
func NewWebPushSender(opts WebPushOptions) *WebPushSender {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &WebPushSender{
		// webpush-go ajoute lui-même le préfixe mailto:
		subject:    strings.TrimPrefix(opts.Subject, "mailto:"),
		publicKey:  opts.PublicKey,
		privateKey: opts.PrivateKey,
		ttl:        opts.TTL,
		client:     client,
	}
}

// Send chiffre, signe et soumet le message à l'endpoint de l'abonnement.
// payload n'est jamais modifié: il est partagé par tous les envois d'une diffusion.
func (s *WebPushSender) Send(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	// webpush-go écrit le délimiteur et le bourrage dans la capacité libre du message
	payload = bytes.Clone(payload)
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             int(s.ttl.Seconds()),
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("erreur lors de l'envoi push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &DeliveryError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
