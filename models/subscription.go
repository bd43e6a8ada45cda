package models

import (
	"time"
)

// PushSubscription représente un abonnement push (un par couple utilisateur × endpoint)
type PushSubscription struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" bson:"user_id" gorm:"not null;uniqueIndex:idx_subscriptions_user_endpoint"`
	Endpoint  string    `json:"endpoint" bson:"endpoint" gorm:"not null;uniqueIndex:idx_subscriptions_user_endpoint"`
	Keys      PushKeys  `json:"keys" bson:"keys" gorm:"embedded"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// TableName fixe le nom de la table SQL
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

// PushKeys contient les clés de chiffrement (base64url) d'un endpoint
type PushKeys struct {
	P256dh string `json:"p256dh" bson:"p256dh" gorm:"column:p256dh;not null"`
	Auth   string `json:"auth" bson:"auth" gorm:"column:auth;not null"`
}

// SubscriptionInfo est la forme {endpoint, keys} produite par le navigateur
type SubscriptionInfo struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

// SubscribeRequest représente la requête d'enregistrement d'un abonnement
type SubscribeRequest struct {
	Subscription SubscriptionInfo `json:"subscription"`
}

// UnsubscribeRequest représente la requête de suppression d'un abonnement
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// SubscriptionSummary est la vue publique d'un abonnement
type SubscriptionSummary struct {
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"created_at"`
}
