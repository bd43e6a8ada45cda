package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrBadgeUnsupported est retournée par les plateformes sans badge d'application
var ErrBadgeUnsupported = errors.New("badge d'application non supporté")

// Notification est une notification système affichée par le worker
type Notification struct {
	Title    string
	Body     string
	Icon     string
	Badge    string
	Tag      string
	Renotify bool
	URL      string
}

// Notifier affiche les notifications et gère le badge d'application
type Notifier interface {
	ShowNotification(ctx context.Context, n Notification) error
	CloseNotification(ctx context.Context, tag string) error
	SetBadge(ctx context.Context) error
	ClearBadge(ctx context.Context) error
}

// WindowClient est une fenêtre ouverte sur l'application
type WindowClient struct {
	ID         string
	URL        string
	Focused    bool
	Controlled bool
}

// Clients donne accès aux fenêtres de l'application
type Clients interface {
	MatchAll(ctx context.Context, includeUncontrolled bool) ([]WindowClient, error)
	Focus(ctx context.Context, id string) error
	OpenWindow(ctx context.Context, url string) (WindowClient, error)
	// Claim prend le contrôle de toutes les fenêtres ouvertes
	Claim(ctx context.Context) error
}

// Tray est une zone de notifications: une notification remplace celle qui porte le même tag
type Tray struct {
	mu             sync.Mutex
	visible        []Notification
	alerts         int
	badge          bool
	badgeSupported bool

	// OnShow est appelé à chaque notification affichée, hors verrou
	OnShow func(Notification)
}

// NewTray crée une zone de notifications vide
func NewTray(badgeSupported bool) *Tray {
	return &Tray{badgeSupported: badgeSupported}
}

// ShowNotification affiche n en remplaçant la notification de même tag
func (t *Tray) ShowNotification(_ context.Context, n Notification) error {
	t.mu.Lock()
	replaced := false
	if n.Tag != "" {
		for i := range t.visible {
			if t.visible[i].Tag == n.Tag {
				t.visible[i] = n
				replaced = true
				break
			}
		}
	}
	if !replaced {
		t.visible = append(t.visible, n)
	}
	if !replaced || n.Renotify {
		t.alerts++
	}
	onShow := t.OnShow
	t.mu.Unlock()

	if onShow != nil {
		onShow(n)
	}
	return nil
}

// CloseNotification ferme les notifications portant tag
func (t *Tray) CloseNotification(_ context.Context, tag string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.visible[:0]
	for _, n := range t.visible {
		if n.Tag != tag {
			kept = append(kept, n)
		}
	}
	t.visible = kept
	return nil
}

// SetBadge allume le badge de l'application
func (t *Tray) SetBadge(context.Context) error {
	return t.setBadge(true)
}

func (t *Tray) ClearBadge(context.Context) error {
	return t.setBadge(false)
}

func (t *Tray) setBadge(on bool) error {
	if !t.badgeSupported {
		return ErrBadgeUnsupported
	}
	t.mu.Lock()
	t.badge = on
	t.mu.Unlock()
	return nil
}

// Visible retourne les notifications actuellement affichées
func (t *Tray) Visible() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Notification(nil), t.visible...)
}

// Alerts compte les notifications qui ont alerté l'utilisateur
func (t *Tray) Alerts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alerts
}

// Badge indique si le badge d'application est affiché
func (t *Tray) Badge() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.badge
}

// WindowSet est l'ensemble des fenêtres ouvertes d'un profil
type WindowSet struct {
	mu      sync.Mutex
	origin  string
	windows []WindowClient
}

// NewWindowSet crée un ensemble de fenêtres pour origin
func NewWindowSet(origin string) *WindowSet {
	return &WindowSet{origin: origin}
}

// Add ouvre une fenêtre existante avant l'activation du worker
func (s *WindowSet) Add(url string, controlled bool) WindowClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := WindowClient{ID: uuid.NewString(), URL: url, Controlled: controlled}
	s.windows = append(s.windows, w)
	return w
}

// MatchAll liste les fenêtres, contrôlées ou non selon includeUncontrolled
func (s *WindowSet) MatchAll(_ context.Context, includeUncontrolled bool) ([]WindowClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WindowClient, 0, len(s.windows))
	for _, w := range s.windows {
		if w.Controlled || includeUncontrolled {
			out = append(out, w)
		}
	}
	return out, nil
}

// Focus donne le focus à la fenêtre id
func (s *WindowSet) Focus(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.windows {
		s.windows[i].Focused = s.windows[i].ID == id
		found = found || s.windows[i].Focused
	}
	if !found {
		return fmt.Errorf("fenêtre %s introuvable", id)
	}
	return nil
}

// OpenWindow ouvre une fenêtre sur url et lui donne le focus
func (s *WindowSet) OpenWindow(_ context.Context, url string) (WindowClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.windows {
		s.windows[i].Focused = false
	}
	w := WindowClient{ID: uuid.NewString(), URL: resolveURL(s.origin, url), Focused: true, Controlled: true}
	s.windows = append(s.windows, w)
	return w, nil
}

// Claim place toutes les fenêtres sous le contrôle du worker
func (s *WindowSet) Claim(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.windows {
		s.windows[i].Controlled = true
	}
	return nil
}

// Windows retourne une copie des fenêtres ouvertes
func (s *WindowSet) Windows() []WindowClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WindowClient(nil), s.windows...)
}
