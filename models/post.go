package models

import "time"

// Catégories de post
const (
	CategoryGeneral   = "general"
	CategoryImportant = "important"
	CategoryEvent     = "event"
	CategoryOther     = "other"
)

// Priorités de post
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Post représente les champs d'une annonce utiles au pipeline de notification
type Post struct {
	ID               string    `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	AuthorID         string    `json:"author_id" bson:"author_id" gorm:"not null;index"`
	Title            string    `json:"title" bson:"title" gorm:"not null"`
	Body             string    `json:"body" bson:"body"`
	Category         string    `json:"category" bson:"category" gorm:"not null"`
	Priority         string    `json:"priority" bson:"priority" gorm:"not null"`
	TargetCompany    *string   `json:"target_company" bson:"target_company,omitempty"`
	TargetDepartment *string   `json:"target_department" bson:"target_department,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// TableName fixe le nom de la table SQL
func (Post) TableName() string {
	return "posts"
}

// CreatePostRequest représente la requête de création d'un post
type CreatePostRequest struct {
	Title            string  `json:"title"`
	Body             string  `json:"body"`
	Category         string  `json:"category,omitempty"`
	Priority         string  `json:"priority,omitempty"`
	TargetCompany    *string `json:"target_company,omitempty"`
	TargetDepartment *string `json:"target_department,omitempty"`
}

// ValidCategory indique si la catégorie est connue
func ValidCategory(c string) bool {
	switch c {
	case CategoryGeneral, CategoryImportant, CategoryEvent, CategoryOther:
		return true
	}
	return false
}

// ValidPriority indique si la priorité est connue
func ValidPriority(p string) bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
