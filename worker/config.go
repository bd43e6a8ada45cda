package worker

import (
	"strings"

	"keijiban-backend/constants"
)

// Config décrit une version déployée du worker.
// CacheName doit changer dès que la liste Precache change.
type Config struct {
	CacheName   string
	Origin      string
	Precache    []string
	BypassHosts []string
	ShellPath   string

	NotificationTag string
	DefaultTitle    string
	DefaultIcon     string
	DefaultBadge    string
	DefaultURL      string
}

// DefaultConfig retourne la configuration de l'application pour origin (ex: https://keijiban.example.com)
func DefaultConfig(origin string) Config {
	return Config{
		CacheName:   constants.CacheName,
		Origin:      strings.TrimRight(origin, "/"),
		Precache:    append([]string(nil), constants.PrecacheList...),
		BypassHosts: append([]string(nil), constants.ExternalAPIHosts...),
		ShellPath:   "/",

		NotificationTag: constants.NotificationTag,
		DefaultTitle:    constants.DefaultNotificationTitle,
		DefaultIcon:     constants.DefaultNotificationIcon,
		DefaultBadge:    constants.DefaultNotificationBadge,
		DefaultURL:      constants.DefaultNotificationURL,
	}
}
