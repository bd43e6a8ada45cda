package database

import (
	"context"
	"fmt"

	"keijiban-backend/config"
	"keijiban-backend/models"
)

// SubscriptionStore est le magasin des abonnements push.
// Les suppressions sont idempotentes: supprimer une ligne absente n'est pas une erreur.
type SubscriptionStore interface {
	// Upsert crée l'abonnement ou remplace les clés du couple (user_id, endpoint) existant
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) error
	FindByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error)

	// Accès administratif utilisé par la diffusion (tous utilisateurs confondus)
	FindAll(ctx context.Context) ([]models.PushSubscription, error)
	DeleteByID(ctx context.Context, id string) error
}

// PostStore stocke les champs minimaux des posts
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
}

// Store regroupe les magasins d'un backend de stockage
type Store interface {
	Subscriptions() SubscriptionStore
	Posts() PostStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Name() string
}

// Open ouvre le backend de stockage choisi par STORE_DRIVER
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.DriverPostgres:
		return OpenGorm(config.DriverPostgres, cfg.DatabaseURL)
	case config.DriverSQLite:
		return OpenGorm(config.DriverSQLite, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("pilote de stockage inconnu: %q", cfg.StoreDriver)
	}
}
