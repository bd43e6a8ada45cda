package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// SlackService envoie les alertes critiques sur un webhook Slack
type SlackService struct {
	webhookURL string
	client     *http.Client
}

// SlackMessage représente un message Slack
type SlackMessage struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment représente une pièce jointe Slack
type Attachment struct {
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
	Footer    string  `json:"footer,omitempty"`
}

// Field représente un champ dans une pièce jointe Slack
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// CriticalError décrit une réponse 5xx à signaler
type CriticalError struct {
	Method    string
	Path      string
	Status    int
	RequestID string
	UserAgent string
}

// NewSlackService crée une nouvelle instance de SlackService.
// Sans URL de webhook le service est désactivé.
func NewSlackService(webhookURL string) *SlackService {
	if webhookURL == "" {
		log.Warn().Msg("⚠️ Slack webhook URL non configuré - alertes Slack désactivées")
	}
	return &SlackService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Enabled indique si les alertes sont actives
func (s *SlackService) Enabled() bool {
	return s != nil && s.webhookURL != ""
}

// SendCriticalError signale une erreur serveur
func (s *SlackService) SendCriticalError(ctx context.Context, e CriticalError) error {
	if !s.Enabled() {
		return nil
	}

	fields := []Field{
		{Title: "Méthode", Value: e.Method, Short: true},
		{Title: "Status Code", Value: strconv.Itoa(e.Status), Short: true},
		{Title: "Chemin", Value: e.Path},
	}
	if e.RequestID != "" {
		fields = append(fields, Field{Title: "Request ID", Value: e.RequestID, Short: true})
	}
	if e.UserAgent != "" {
		fields = append(fields, Field{Title: "User-Agent", Value: e.UserAgent})
	}

	return s.post(ctx, SlackMessage{
		Attachments: []Attachment{{
			Color:     "danger",
			Title:     fmt.Sprintf("🚨 Erreur serveur: %s", http.StatusText(e.Status)),
			Fields:    fields,
			Timestamp: time.Now().Unix(),
			Footer:    "Keijiban - Notifications",
		}},
	})
}

func (s *SlackService) post(ctx context.Context, msg SlackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("erreur lors de la sérialisation du message Slack: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("erreur lors de la création de la requête Slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("erreur lors de l'envoi à Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("réponse Slack inattendue: %d", resp.StatusCode)
	}
	return nil
}
