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
	"go.mongodb.org/mongo-driver/mongo/options"
)

const subscriptionsCollection = "push_subscriptions"

// SubscriptionRepository gère les abonnements push dans MongoDB
type SubscriptionRepository struct {
	collection *mongo.Collection
}

// NewSubscriptionRepository crée une nouvelle instance de SubscriptionRepository
func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{
		collection: db.Collection(subscriptionsCollection),
	}
}

// Upsert enregistre l'abonnement, en remplaçant les clés si le couple existe déjà
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{"user_id": sub.UserID, "endpoint": sub.Endpoint}
	update := bson.M{
		"$set": bson.M{"keys": sub.Keys, "updated_at": now},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored models.PushSubscription
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	// Deux upserts concurrents peuvent insérer en même temps: le perdant retente et trouve la ligne
	if mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	}
	if err != nil {
		return fmt.Errorf(constants.ErrSubscriptionSave, err)
	}

	*sub = stored
	return nil
}

// FindByUserID recherche tous les abonnements d'un utilisateur
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

// FindAll retourne tous les abonnements
func (r *SubscriptionRepository) FindAll(ctx context.Context) ([]models.PushSubscription, error) {
	return r.find(ctx, bson.M{})
}

func (r *SubscriptionRepository) find(ctx context.Context, filter bson.M) ([]models.PushSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf(constants.ErrSubscriptionFindAll, err)
	}
	defer cursor.Close(ctx)

	subscriptions := []models.PushSubscription{}
	if err = cursor.All(ctx, &subscriptions); err != nil {
		return nil, fmt.Errorf("erreur lors du décodage des abonnements: %w", err)
	}
	return subscriptions, nil
}

// DeleteByUserAndEndpoint supprime l'abonnement d'un utilisateur pour un endpoint
func (r *SubscriptionRepository) DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) error {
	return r.deleteOne(ctx, bson.M{"user_id": userID, "endpoint": endpoint})
}

// DeleteByID supprime un abonnement par identifiant
func (r *SubscriptionRepository) DeleteByID(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("identifiant d'abonnement vide")
	}
	return r.deleteOne(ctx, bson.M{"_id": id})
}

func (r *SubscriptionRepository) deleteOne(ctx context.Context, filter bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf(constants.ErrSubscriptionDelete, err)
	}
	return nil
}
