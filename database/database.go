package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore est le backend MongoDB
type MongoStore struct {
	client        *mongo.Client
	db            *mongo.Database
	subscriptions *SubscriptionRepository
	posts         *PostRepository
}

// Connect établit la connexion à la base de données MongoDB
func Connect(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la connexion à MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("erreur lors du ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	store := &MongoStore{
		client:        client,
		db:            db,
		subscriptions: NewSubscriptionRepository(db),
		posts:         NewPostRepository(db),
	}
	log.Info().Str("database", dbName).Msg("✓ Connexion à MongoDB établie")

	if err = store.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("erreur lors de la création des index: %w", err)
	}
	return store, nil
}

// Subscriptions retourne le magasin des abonnements
func (s *MongoStore) Subscriptions() SubscriptionStore { return s.subscriptions }

// Posts retourne le magasin des posts
func (s *MongoStore) Posts() PostStore { return s.posts }

// Name retourne le nom du backend
func (s *MongoStore) Name() string { return "MongoDB" }

// Ping vérifie que la connexion MongoDB est active
func (s *MongoStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("client MongoDB non initialisé")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Close ferme la connexion à la base de données
func (s *MongoStore) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// createIndexes crée les index nécessaires
func (s *MongoStore) createIndexes(ctx context.Context) error {
	// Un seul abonnement par couple (user_id, endpoint)
	_, err := s.db.Collection(subscriptionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "endpoint", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_endpoint_unique"),
	})
	if err != nil {
		return fmt.Errorf("erreur lors de la création de l'index user_id/endpoint: %w", err)
	}

	_, err = s.db.Collection(postsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("erreur lors de la création de l'index created_at: %w", err)
	}

	log.Info().Msg("✓ Index MongoDB créés")
	return nil
}
