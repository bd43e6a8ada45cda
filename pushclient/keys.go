// Package pushclient implémente le côté réception du protocole Web Push:
// génération des clés d'abonnement et déchiffrement aes128gcm (RFC 8291).
package pushclient

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"keijiban-backend/models"
)

// AuthSecretSize est la taille du secret d'authentification d'un abonnement
const AuthSecretSize = 16

// Keys est le matériel de clé d'un abonnement côté navigateur
type Keys struct {
	private *ecdh.PrivateKey
	auth    []byte
}

// GenerateKeys génère une paire P-256 et un secret d'authentification
func GenerateKeys() (*Keys, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la génération de la clé P-256: %w", err)
	}
	auth := make([]byte, AuthSecretSize)
	if _, err := rand.Read(auth); err != nil {
		return nil, fmt.Errorf("erreur lors de la génération du secret: %w", err)
	}
	return &Keys{private: priv, auth: auth}, nil
}

// PublicKey retourne la clé publique non compressée (65 octets)
func (k *Keys) PublicKey() []byte {
	return k.private.PublicKey().Bytes()
}

// PushKeys retourne les clés {p256dh, auth} à transmettre au serveur
func (k *Keys) PushKeys() models.PushKeys {
	return models.PushKeys{
		P256dh: base64.RawURLEncoding.EncodeToString(k.PublicKey()),
		Auth:   base64.RawURLEncoding.EncodeToString(k.auth),
	}
}
