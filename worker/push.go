package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

type pushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	URL   string `json:"url"`
}

// handlePush affiche la notification sous le tag commun, puis pose le badge
func (w *Worker) handlePush(ctx context.Context, ev PushEvent) error {
	if len(ev.Data) == 0 {
		return nil
	}
	var msg pushMessage
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		return fmt.Errorf("message push illisible: %w", err)
	}

	n := Notification{
		Title:    orDefault(msg.Title, w.cfg.DefaultTitle),
		Body:     msg.Body,
		Icon:     orDefault(msg.Icon, w.cfg.DefaultIcon),
		Badge:    orDefault(msg.Badge, w.cfg.DefaultBadge),
		Tag:      w.cfg.NotificationTag,
		Renotify: true,
		URL:      orDefault(msg.URL, w.cfg.DefaultURL),
	}
	if err := w.notifier.ShowNotification(ctx, n); err != nil {
		return fmt.Errorf("erreur lors de l'affichage de la notification: %w", err)
	}

	if err := w.notifier.SetBadge(ctx); err != nil && !errors.Is(err, ErrBadgeUnsupported) {
		log.Debug().Err(err).Msg("worker: badge non posé")
	}
	return nil
}

// handleClick ferme la notification, efface le badge, puis focalise
// une fenêtre déjà ouverte sur la cible ou en ouvre une nouvelle
func (w *Worker) handleClick(ctx context.Context, ev NotificationClickEvent) error {
	if err := w.notifier.CloseNotification(ctx, ev.Notification.Tag); err != nil {
		log.Debug().Err(err).Msg("worker: fermeture de la notification impossible")
	}
	if err := w.notifier.ClearBadge(ctx); err != nil && !errors.Is(err, ErrBadgeUnsupported) {
		log.Debug().Err(err).Msg("worker: badge non effacé")
	}

	target := orDefault(ev.Notification.URL, w.cfg.DefaultURL)
	windows, err := w.clients.MatchAll(ctx, true)
	if err != nil {
		log.Debug().Err(err).Msg("worker: liste des fenêtres indisponible")
	}
	for _, win := range windows {
		if strings.Contains(win.URL, target) {
			return w.clients.Focus(ctx, win.ID)
		}
	}
	_, err = w.clients.OpenWindow(ctx, target)
	return err
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
