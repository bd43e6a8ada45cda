package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"keijiban-backend/constants"
	"keijiban-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore est le backend SQL (Postgres ou SQLite)
type GormStore struct {
	db            *gorm.DB
	driver        string
	subscriptions *GormSubscriptionRepository
	posts         *GormPostRepository
}

// OpenGorm ouvre une base SQL et applique les migrations
func OpenGorm(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		// Échouer tôt si le répertoire parent n'existe pas
		if dir := filepath.Dir(dsn); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("répertoire SQLite introuvable: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("pilote SQL inconnu: %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("erreur lors de l'ouverture de la base %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("erreur lors de l'accès au pool %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.Exec("PRAGMA journal_mode=WAL;")
		db.Exec("PRAGMA busy_timeout=5000;")
		// SQLite n'accepte qu'un écrivain à la fois
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.AutoMigrate(&models.PushSubscription{}, &models.Post{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("erreur lors de la migration: %w", err)
	}

	log.Info().Str("driver", driver).Msg("✓ Base SQL prête")
	return &GormStore{
		db:            db,
		driver:        driver,
		subscriptions: &GormSubscriptionRepository{db: db},
		posts:         &GormPostRepository{db: db},
	}, nil
}

// Subscriptions retourne le magasin des abonnements
func (s *GormStore) Subscriptions() SubscriptionStore { return s.subscriptions }

// Posts retourne le magasin des posts
func (s *GormStore) Posts() PostStore { return s.posts }

// Name retourne le nom du backend
func (s *GormStore) Name() string { return s.driver }

// Ping vérifie la connexion SQL
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close ferme le pool SQL
func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormSubscriptionRepository gère les abonnements push en SQL
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// Upsert enregistre l'abonnement avec ON CONFLICT (user_id, endpoint) DO UPDATE
func (r *GormSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now().UTC()
	row := models.PushSubscription{
		ID:        uuid.NewString(),
		UserID:    sub.UserID,
		Endpoint:  sub.Endpoint,
		Keys:      sub.Keys,
		CreatedAt: now,
		UpdatedAt: now,
	}

	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf(constants.ErrSubscriptionSave, err)
	}

	var stored models.PushSubscription
	if err := db.Where("user_id = ? AND endpoint = ?", sub.UserID, sub.Endpoint).First(&stored).Error; err != nil {
		return fmt.Errorf(constants.ErrSubscriptionSave, err)
	}
	*sub = stored
	return nil
}

// FindByUserID recherche tous les abonnements d'un utilisateur
func (r *GormSubscriptionRepository) FindByUserID(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	subs := []models.PushSubscription{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf(constants.ErrSubscriptionFindAll, err)
	}
	return subs, nil
}

// FindAll retourne tous les abonnements
func (r *GormSubscriptionRepository) FindAll(ctx context.Context) ([]models.PushSubscription, error) {
	subs := []models.PushSubscription{}
	if err := r.db.WithContext(ctx).Order("created_at").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf(constants.ErrSubscriptionFindAll, err)
	}
	return subs, nil
}

// DeleteByUserAndEndpoint supprime l'abonnement d'un utilisateur pour un endpoint
func (r *GormSubscriptionRepository) DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{}).Error
	if err != nil {
		return fmt.Errorf(constants.ErrSubscriptionDelete, err)
	}
	return nil
}

// DeleteByID supprime un abonnement par identifiant
func (r *GormSubscriptionRepository) DeleteByID(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("identifiant d'abonnement vide")
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PushSubscription{}).Error; err != nil {
		return fmt.Errorf(constants.ErrSubscriptionDelete, err)
	}
	return nil
}

// GormPostRepository gère les posts en SQL
type GormPostRepository struct {
	db *gorm.DB
}

// Create insère un nouveau post
func (r *GormPostRepository) Create(ctx context.Context, post *models.Post) error {
	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf(constants.ErrPostCreate, err)
	}
	return nil
}

// FindByID recherche un post par identifiant. Retourne nil, nil si absent.
func (r *GormPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la recherche du post: %w", err)
	}
	return &post, nil
}
