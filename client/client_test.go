package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"keijiban-backend/models"
	"keijiban-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Requetes(t *testing.T) {
	var got struct {
		method, path, auth string
		body               map[string]interface{}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method, got.path, got.auth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		got.body = nil
		_ = json.NewDecoder(r.Body).Decode(&got.body)

		switch r.URL.Path {
		case "/api/notifications/vapid-public-key":
			utils.RespondJSON(w, http.StatusOK, map[string]string{"publicKey": "BKEY"})
		case "/api/notifications/send":
			utils.RespondJSON(w, http.StatusOK, models.BroadcastResult{Sent: 3, Failed: 1})
		case "/api/posts":
			utils.RespondJSON(w, http.StatusCreated, models.Post{ID: "p1", Title: "t"})
		default:
			utils.RespondSuccess(w, "ok", nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "jeton", nil)
	ctx := context.Background()

	key, err := c.VAPIDPublicKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BKEY", key)
	assert.Equal(t, "Bearer jeton", got.auth)

	require.NoError(t, c.Register(ctx, models.SubscriptionInfo{Endpoint: "https://push.example.com/a", Keys: models.PushKeys{P256dh: "p", Auth: "a"}}))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/notifications/subscribe", got.path)
	assert.Contains(t, got.body, "subscription")

	require.NoError(t, c.Unregister(ctx, "https://push.example.com/a"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "https://push.example.com/a", got.body["endpoint"])

	result, err := c.Broadcast(ctx, models.NotificationRequest{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastResult{Sent: 3, Failed: 1}, result)

	post, err := c.CreatePost(ctx, models.CreatePostRequest{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
}

func TestClient_Erreurs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			utils.RespondError(w, http.StatusUnauthorized, "Token d'authentification manquant")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "Le titre est requis")
	}))
	defer srv.Close()
	ctx := context.Background()

	_, err := New(srv.URL, "", nil).Broadcast(ctx, models.NotificationRequest{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = New(srv.URL, "jeton", nil).Broadcast(ctx, models.NotificationRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Le titre est requis", apiErr.Message)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}
