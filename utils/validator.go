package utils

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"keijiban-backend/models"
)

// ValidationError représente une erreur de validation
type ValidationError struct {
	Field   string
	Message string
}

// Error implémente l'interface error
func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidateRequired valide qu'un champ n'est pas vide
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: fmt.Sprintf("le champ %s est requis", field)}
	}
	return nil
}

// ValidateEndpoint vérifie qu'un endpoint push est une URL absolue http(s)
func ValidateEndpoint(endpoint string) error {
	if err := ValidateRequired("endpoint", endpoint); err != nil {
		return err
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return ValidationError{Field: "endpoint", Message: "l'endpoint doit être une URL http(s) absolue"}
	}
	return nil
}

// ValidateSubscription valide un abonnement {endpoint, keys:{p256dh, auth}}
func ValidateSubscription(sub models.SubscriptionInfo) error {
	if err := ValidateEndpoint(sub.Endpoint); err != nil {
		return err
	}
	if err := ValidateRequired("p256dh", sub.Keys.P256dh); err != nil {
		return err
	}
	if err := ValidateRequired("auth", sub.Keys.Auth); err != nil {
		return err
	}

	p256dh, err := DecodeBase64URL(sub.Keys.P256dh)
	if err != nil || len(p256dh) != 65 || p256dh[0] != 0x04 {
		return ValidationError{Field: "p256dh", Message: "clé publique P-256 non compressée attendue"}
	}
	auth, err := DecodeBase64URL(sub.Keys.Auth)
	if err != nil || len(auth) != 16 {
		return ValidationError{Field: "auth", Message: "secret d'authentification de 16 octets attendu"}
	}
	return nil
}

// Truncate coupe s à max caractères (runes, pas octets)
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
