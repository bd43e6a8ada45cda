// Package client appelle l'API de notifications du serveur avec un token de session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"keijiban-backend/constants"
	"keijiban-backend/models"
)

// ErrUnauthorized correspond à une réponse 401 (session absente ou expirée)
var ErrUnauthorized = errors.New("session invalide ou absente")

// APIError est une réponse d'erreur du serveur
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("erreur API %d: %s", e.StatusCode, e.Message)
}

// Is permet errors.Is(err, ErrUnauthorized) pour un 401
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client est un client de l'API keijiban
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New crée un client. httpClient peut être nil.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// VAPIDPublicKey retourne la clé publique de signature du serveur
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	var out struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications/vapid-public-key", nil, &out); err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", errors.New("clé publique VAPID vide")
	}
	return out.PublicKey, nil
}

// Register enregistre l'abonnement de l'utilisateur de la session
func (c *Client) Register(ctx context.Context, sub models.SubscriptionInfo) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/subscribe", models.SubscribeRequest{Subscription: sub}, nil)
}

// Unregister supprime l'abonnement de l'utilisateur pour endpoint
func (c *Client) Unregister(ctx context.Context, endpoint string) error {
	return c.do(ctx, http.MethodDelete, "/api/notifications/subscribe", models.UnsubscribeRequest{Endpoint: endpoint}, nil)
}

// Broadcast diffuse une notification à tous les abonnés
func (c *Client) Broadcast(ctx context.Context, req models.NotificationRequest) (models.BroadcastResult, error) {
	var result models.BroadcastResult
	err := c.do(ctx, http.MethodPost, "/api/notifications/send", req, &result)
	return result, err
}

// CreatePost publie un post
func (c *Client) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("erreur lors de la sérialisation de la requête: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("erreur lors de la création de la requête: %w", err)
	}
	if in != nil {
		req.Header.Set(constants.HeaderContentType, constants.HeaderApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(constants.HeaderAuthorization, "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erreur lors de l'appel %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr models.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("réponse illisible pour %s %s: %w", method, path, err)
	}
	return nil
}
