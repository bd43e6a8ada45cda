package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"keijiban-backend/constants"
	"keijiban-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const postsCollection = "posts"

// PostRepository gère les posts dans MongoDB
type PostRepository struct {
	collection *mongo.Collection
}

// NewPostRepository crée une nouvelle instance de PostRepository
func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{collection: db.Collection(postsCollection)}
}

// Create insère un nouveau post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, post); err != nil {
		return fmt.Errorf(constants.ErrPostCreate, err)
	}
	return nil
}

// FindByID recherche un post par identifiant. Retourne nil, nil si absent.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la recherche du post: %w", err)
	}
	return &post, nil
}
