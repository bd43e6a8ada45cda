package agent

import (
	"context"
	"fmt"

	"keijiban-backend/lifecycle"
	"keijiban-backend/pushclient"

	"github.com/google/uuid"
)

// Supported indique que l'agent gère toujours les notifications push
func (a *Agent) Supported() bool {
	return true
}

// Permission retourne l'état courant de la permission de notification
func (a *Agent) Permission(context.Context) (lifecycle.Permission, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.permission, nil
}

// RequestPermission ne redemande pas une permission déjà tranchée
func (a *Agent) RequestPermission(context.Context) (lifecycle.Permission, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.permission == lifecycle.PermissionDefault {
		a.permission = a.cfg.OnRequest
	}
	return a.permission, nil
}

// Ready retourne l'enregistrement du worker de l'agent
func (a *Agent) Ready(context.Context) (lifecycle.Registration, error) {
	return registration{a}, nil
}

// registration est l'enregistrement du worker de l'agent
type registration struct {
	a *Agent
}

func (r registration) GetSubscription(context.Context) (*lifecycle.Subscription, error) {
	a := r.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, nil
	}
	return a.current.info(), nil
}

// Subscribe retourne l'abonnement courant s'il existe, sinon en crée un nouveau
func (r registration) Subscribe(_ context.Context, applicationServerKey []byte) (*lifecycle.Subscription, error) {
	if len(applicationServerKey) != 65 {
		return nil, fmt.Errorf("clé du serveur d'application invalide (%d octets)", len(applicationServerKey))
	}
	a := r.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		return a.current.info(), nil
	}

	keys, err := pushclient.GenerateKeys()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	sub := &subscription{id: id, endpoint: a.cfg.PublicURL + "/push/" + id, keys: keys}
	a.known[id] = sub
	a.current = sub
	return sub.info(), nil
}

func (r registration) Unsubscribe(context.Context) error {
	r.a.Expire()
	return nil
}

func (s *subscription) info() *lifecycle.Subscription {
	return &lifecycle.Subscription{Endpoint: s.endpoint, Keys: s.keys.PushKeys()}
}
