package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"keijiban-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPosts struct {
	posts []*models.Post
	err   error
}

func (m *memoryPosts) Create(_ context.Context, post *models.Post) error {
	if m.err != nil {
		return m.err
	}
	post.ID = "post-1"
	m.posts = append(m.posts, post)
	return nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	requests []models.NotificationRequest
	err      error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, req models.NotificationRequest) (models.BroadcastResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return models.BroadcastResult{}, r.err
	}
	return models.BroadcastResult{Sent: 1}, nil
}

func TestPostService_CreateNotifie(t *testing.T) {
	posts := &memoryPosts{}
	b := &recordingBroadcaster{}
	svc := NewPostService(posts, b, 100)

	post, err := svc.Create(context.Background(), "alice", models.CreatePostRequest{
		Title: "  Maintenance  ",
		Body:  strings.Repeat("x", 150),
	})
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, "Maintenance", post.Title)
	assert.Equal(t, models.CategoryGeneral, post.Category)
	assert.Equal(t, models.PriorityNormal, post.Priority)
	assert.Len(t, post.Body, 150, "le post garde son corps complet")

	require.Len(t, b.requests, 1)
	assert.Equal(t, "Maintenance", b.requests[0].Title)
	assert.Len(t, b.requests[0].Body, 100)
	assert.Equal(t, "/posts/post-1", b.requests[0].URL)
}

func TestPostService_EchecDeDiffusionIgnore(t *testing.T) {
	b := &recordingBroadcaster{err: errors.New("store injoignable")}
	svc := NewPostService(&memoryPosts{}, b, 100)

	post, err := svc.Create(context.Background(), "alice", models.CreatePostRequest{Title: "Titre"})
	require.NoError(t, err)
	require.NotNil(t, post)
	svc.Wait()
	assert.Len(t, b.requests, 1)
}

func TestPostService_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  models.CreatePostRequest
		want error
	}{
		{"titre manquant", models.CreatePostRequest{Body: "x"}, ErrTitleRequired},
		{"catégorie inconnue", models.CreatePostRequest{Title: "t", Category: "sport"}, ErrInvalidCategory},
		{"priorité inconnue", models.CreatePostRequest{Title: "t", Priority: "max"}, ErrInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &recordingBroadcaster{}
			svc := NewPostService(&memoryPosts{}, b, 100)
			_, err := svc.Create(context.Background(), "alice", tt.req)
			assert.ErrorIs(t, err, tt.want)
			svc.Wait()
			assert.Empty(t, b.requests)
		})
	}
}

func TestPostService_ErreurDuMagasin(t *testing.T) {
	b := &recordingBroadcaster{}
	svc := NewPostService(&memoryPosts{err: errors.New("disque plein")}, b, 100)

	_, err := svc.Create(context.Background(), "alice", models.CreatePostRequest{Title: "Titre"})
	assert.Error(t, err)
	svc.Wait()
	assert.Empty(t, b.requests, "aucune diffusion sans post enregistré")
}
