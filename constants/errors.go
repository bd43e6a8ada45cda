package constants

// Messages d'erreur HTTP courants
const (
	ErrMethodNotAllowed    = "Méthode non autorisée"
	ErrServerError         = "Erreur serveur"
	ErrNotAuthenticated    = "Non authentifié"
	ErrMissingToken        = "Token d'authentification manquant"
	ErrInvalidTokenFormat  = "Format du token invalide"
	ErrInvalidToken        = "Token invalide ou expiré"
	ErrInvalidJSONBody     = "Body JSON invalide"
	ErrTitleRequired       = "Le titre est requis"
	ErrEndpointRequired    = "L'endpoint est requis"
	ErrInvalidSubscription = "Abonnement invalide"
	ErrTooManyRequests     = "Trop de requêtes, réessayez plus tard"
	ErrInvalidCategory     = "Catégorie invalide"
	ErrInvalidPriority     = "Priorité invalide"
	ErrPostNotFound        = "Post non trouvé"
	ErrInvalidPostID       = "ID de post invalide"
	ErrSubscriptionSave    = "erreur lors de l'enregistrement de l'abonnement: %w"
	ErrSubscriptionDelete  = "erreur lors de la suppression de l'abonnement: %w"
	ErrSubscriptionFindAll = "erreur lors de la récupération des abonnements: %w"
	ErrPostCreate          = "erreur lors de la création du post: %w"
)

// En-têtes HTTP
const (
	HeaderContentType     = "Content-Type"
	HeaderApplicationJSON = "application/json"
	HeaderAuthorization   = "Authorization"
	HeaderRequestID       = "X-Request-ID"
	HeaderRetryAfter      = "Retry-After"
)

// Cookie de session lu par le middleware Auth
const SessionCookieName = "session_token"
