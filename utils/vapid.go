package utils

import (
	"crypto/ecdh"
	"encoding/base64"
	"fmt"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// GenerateVAPIDKeys génère une paire de clés VAPID (publique et privée, base64url sans padding)
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("erreur lors de la génération des clés VAPID: %w", err)
	}
	return publicKey, privateKey, nil
}

// DecodeBase64URL décode une chaîne base64 URL-safe, avec ou sans padding.
// Les alphabets standard (+/) sont aussi acceptés.
func DecodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	s = strings.TrimRight(s, "=")
	return base64.RawURLEncoding.DecodeString(s)
}

// DecodeApplicationServerKey convertit la clé publique VAPID en octets bruts
// tels qu'attendus par PushManager.subscribe.
func DecodeApplicationServerKey(publicKey string) ([]byte, error) {
	raw, err := DecodeBase64URL(publicKey)
	if err != nil {
		return nil, fmt.Errorf("erreur lors du décodage de la clé publique VAPID: %w", err)
	}
	if _, err := ecdh.P256().NewPublicKey(raw); err != nil {
		return nil, fmt.Errorf("clé publique VAPID invalide: %w", err)
	}
	return raw, nil
}

// ValidateVAPIDKeys vérifie que la paire de clés VAPID est cohérente
func ValidateVAPIDKeys(publicKey, privateKey string) error {
	pub, err := DecodeApplicationServerKey(publicKey)
	if err != nil {
		return err
	}
	rawPriv, err := DecodeBase64URL(privateKey)
	if err != nil {
		return fmt.Errorf("erreur lors du décodage de la clé privée VAPID: %w", err)
	}
	priv, err := ecdh.P256().NewPrivateKey(rawPriv)
	if err != nil {
		return fmt.Errorf("clé privée VAPID invalide: %w", err)
	}
	if string(priv.PublicKey().Bytes()) != string(pub) {
		return fmt.Errorf("les clés VAPID publique et privée ne correspondent pas")
	}
	return nil
}
