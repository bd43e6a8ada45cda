package pushclient

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrInvalidPayload signale un corps aes128gcm mal formé ou indéchiffrable
var ErrInvalidPayload = errors.New("message push invalide")

const (
	saltSize   = 16
	headerSize = saltSize + 4 + 1
	tagSize    = 16
	nonceSize  = 12
	keySize    = 16
)

var (
	webPushInfo = []byte("WebPush: info\x00")
	cekInfo     = []byte("Content-Encoding: aes128gcm\x00")
	nonceInfo   = []byte("Content-Encoding: nonce\x00")
)

// Decrypt déchiffre un corps Content-Encoding: aes128gcm adressé à k.
//
// En-tête: salt(16) | rs(4) | idlen(1) | keyid(idlen), keyid étant la clé
// publique éphémère du serveur d'application. Suivent des enregistrements de
// rs octets au plus, chacun terminé par un délimiteur 0x01, ou 0x02 pour le dernier.
func Decrypt(k *Keys, body []byte) ([]byte, error) {
	if len(body) < headerSize {
		return nil, fmt.Errorf("%w: en-tête tronqué", ErrInvalidPayload)
	}
	salt := body[:saltSize]
	rs := int(binary.BigEndian.Uint32(body[saltSize : saltSize+4]))
	idlen := int(body[saltSize+4])
	if rs <= tagSize+1 || len(body) < headerSize+idlen {
		return nil, fmt.Errorf("%w: en-tête incohérent", ErrInvalidPayload)
	}
	keyID := body[headerSize : headerSize+idlen]
	ciphertext := body[headerSize+idlen:]
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: aucun enregistrement", ErrInvalidPayload)
	}

	serverKey, err := ecdh.P256().NewPublicKey(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: clé du serveur: %v", ErrInvalidPayload, err)
	}
	secret, err := k.private.ECDH(serverKey)
	if err != nil {
		return nil, fmt.Errorf("%w: ECDH: %v", ErrInvalidPayload, err)
	}

	info := make([]byte, 0, len(webPushInfo)+2*65)
	info = append(info, webPushInfo...)
	info = append(info, k.PublicKey()...)
	info = append(info, keyID...)
	ikm, err := derive(secret, k.auth, info, 32)
	if err != nil {
		return nil, err
	}
	cek, err := derive(ikm, salt, cekInfo, keySize)
	if err != nil {
		return nil, err
	}
	baseNonce, err := derive(ikm, salt, nonceInfo, nonceSize)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	var out []byte
	for seq := uint64(0); len(ciphertext) > 0; seq++ {
		n := min(rs, len(ciphertext))
		record := ciphertext[:n]
		ciphertext = ciphertext[n:]

		plain, err := gcm.Open(nil, recordNonce(baseNonce, seq), record, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: enregistrement %d: %v", ErrInvalidPayload, seq, err)
		}
		data, err := unpad(plain, len(ciphertext) == 0)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

func derive(secret, salt, info []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, fmt.Errorf("erreur HKDF: %w", err)
	}
	return out, nil
}

// recordNonce applique le numéro de séquence aux 8 derniers octets du nonce
func recordNonce(base []byte, seq uint64) []byte {
	nonce := make([]byte, len(base))
	copy(nonce, base)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-1-i] ^= byte(seq >> (8 * i))
	}
	return nonce
}

// unpad retire le bourrage (zéros) et le délimiteur d'un enregistrement
func unpad(plain []byte, last bool) ([]byte, error) {
	i := len(plain) - 1
	for i >= 0 && plain[i] == 0 {
		i--
	}
	if i < 0 {
		return nil, fmt.Errorf("%w: délimiteur absent", ErrInvalidPayload)
	}
	switch {
	case plain[i] == 2 && last, plain[i] == 1 && !last:
		return plain[:i], nil
	default:
		return nil, fmt.Errorf("%w: délimiteur %#x inattendu", ErrInvalidPayload, plain[i])
	}
}
