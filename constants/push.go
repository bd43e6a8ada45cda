package constants

// Valeurs par défaut des notifications push
const (
	NotificationTag          = "keijiban-notification"
	DefaultNotificationTitle = "新しいお知らせ"
	DefaultNotificationIcon  = "/icons/icon-192x192.png"
	DefaultNotificationBadge = "/icons/icon-192x192.png"
	DefaultNotificationURL   = "/"
	NotificationBodyMax      = 100
)

// Version du cache du worker. Doit changer à chaque modification de PrecacheList.
const CacheName = "keijiban-v3"

// PrecacheList contient la coquille applicative mise en cache à l'installation
var PrecacheList = []string{
	"/",
	"/manifest.json",
	"/icons/icon-192x192.png",
	"/icons/icon-512x512.png",
}

// ExternalAPIHosts sont les hôtes jamais interceptés par le worker
var ExternalAPIHosts = []string{"supabase.co"}

// PostURL retourne le lien profond d'un post
func PostURL(id string) string {
	return "/posts/" + id
}
