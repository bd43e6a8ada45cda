package models

// NotificationRequest représente la requête de diffusion d'une notification
type NotificationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	URL   string `json:"url,omitempty"`
}

// NotificationPayload est le message chiffré envoyé à chaque abonné.
// Construit une seule fois par diffusion.
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
}

// BroadcastResult est le bilan agrégé d'une diffusion
type BroadcastResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
