package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"keijiban-backend/constants"
	"keijiban-backend/models"
	"keijiban-backend/utils"

	"github.com/rs/zerolog/log"
)

// Erreurs de validation d'un post
var (
	ErrInvalidCategory = errors.New("catégorie invalide")
	ErrInvalidPriority = errors.New("priorité invalide")
)

// PostCreator est le magasin des posts
type PostCreator interface {
	Create(ctx context.Context, post *models.Post) error
}

// Broadcaster diffuse une notification
type Broadcaster interface {
	Broadcast(ctx context.Context, req models.NotificationRequest) (models.BroadcastResult, error)
}

// PostService crée les posts et déclenche la notification associée
type PostService struct {
	posts       PostCreator
	broadcaster Broadcaster
	bodyMax     int
	timeout     time.Duration
	pending     sync.WaitGroup
}

// NewPostService crée un nouveau PostService
func NewPostService(posts PostCreator, broadcaster Broadcaster, bodyMax int) *PostService {
	if bodyMax < 1 {
		bodyMax = constants.NotificationBodyMax
	}
	return &PostService{
		posts:       posts,
		broadcaster: broadcaster,
		bodyMax:     bodyMax,
		timeout:     2 * time.Minute,
	}
}

// Create valide et enregistre un post puis lance sa diffusion en arrière-plan.
// Le résultat de la diffusion n'influence jamais celui de la création.
func (s *PostService) Create(ctx context.Context, authorID string, req models.CreatePostRequest) (*models.Post, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTitleRequired
	}
	category := req.Category
	if category == "" {
		category = models.CategoryGeneral
	}
	if !models.ValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	post := &models.Post{
		AuthorID:         authorID,
		Title:            strings.TrimSpace(req.Title),
		Body:             req.Body,
		Category:         category,
		Priority:         priority,
		TargetCompany:    req.TargetCompany,
		TargetDepartment: req.TargetDepartment,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.notify(*post)
	return post, nil
}

// Wait attend la fin des diffusions en cours
func (s *PostService) Wait() {
	s.pending.Wait()
}

// notify diffuse le post à tous les abonnés, sans tenir compte du ciblage
func (s *PostService) notify(post models.Post) {
	if s.broadcaster == nil {
		return
	}
	req := models.NotificationRequest{
		Title: post.Title,
		Body:  utils.Truncate(post.Body, s.bodyMax),
		URL:   constants.PostURL(post.ID),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		result, err := s.broadcaster.Broadcast(ctx, req)
		if err != nil {
			log.Warn().Err(err).Str("post_id", post.ID).Msg("⚠️ Notification du post impossible")
			return
		}
		log.Info().Str("post_id", post.ID).Int("sent", result.Sent).Int("failed", result.Failed).Msg("✓ Post notifié")
	}()
}
