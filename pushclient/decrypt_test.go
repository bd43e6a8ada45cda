package pushclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encryptWithWebPush chiffre message pour keys via webpush-go et retourne le corps reçu
func encryptWithWebPush(t *testing.T, keys *Keys, message []byte) []byte {
	t.Helper()
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	pk := keys.PushKeys()
	resp, err := webpush.SendNotification(message, &webpush.Subscription{
		Endpoint: srv.URL + "/push/test",
		Keys:     webpush.Keys{P256dh: pk.P256dh, Auth: pk.Auth},
	}, &webpush.Options{
		HTTPClient:      srv.Client(),
		Subscriber:      "test@example.com",
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		TTL:             60,
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.NotEmpty(t, body)
	return body
}

func TestDecrypt_AllerRetourWebPush(t *testing.T) {
	keys, err := GenerateKeys()
	require.NoError(t, err)

	message := []byte(`{"title":"新しいお知らせ","body":"会議は15時から","url":"/posts/42"}`)
	body := encryptWithWebPush(t, keys, message)

	plain, err := Decrypt(keys, body)
	require.NoError(t, err)
	assert.Equal(t, message, plain)
}

func TestDecrypt_Erreurs(t *testing.T) {
	keys, err := GenerateKeys()
	require.NoError(t, err)
	other, err := GenerateKeys()
	require.NoError(t, err)

	body := encryptWithWebPush(t, keys, []byte("bonjour"))

	t.Run("mauvaises clés", func(t *testing.T) {
		_, err := Decrypt(other, body)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("corps altéré", func(t *testing.T) {
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-1] ^= 0xff
		_, err := Decrypt(keys, tampered)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("en-tête tronqué", func(t *testing.T) {
		_, err := Decrypt(keys, body[:10])
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("sans enregistrement", func(t *testing.T) {
		_, err := Decrypt(keys, body[:headerSize+65])
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestUnpad(t *testing.T) {
	tests := []struct {
		name    string
		plain   []byte
		last    bool
		want    string
		wantErr bool
	}{
		{"dernier enregistrement", []byte("abc\x02\x00\x00"), true, "abc", false},
		{"enregistrement intermédiaire", []byte("abc\x01"), false, "abc", false},
		{"délimiteur final attendu", []byte("abc\x01\x00"), true, "", true},
		{"que du bourrage", []byte{0, 0, 0}, true, "", true},
		{"délimiteur inconnu", []byte("abc\x03"), true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unpad(tt.plain, tt.last)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRecordNonce(t *testing.T) {
	base := make([]byte, nonceSize)
	assert.Equal(t, base, recordNonce(base, 0))

	n := recordNonce(base, 0x0102)
	assert.Equal(t, byte(0x02), n[11])
	assert.Equal(t, byte(0x01), n[10])
	assert.Equal(t, byte(0x00), base[11], "le nonce de base ne doit pas être modifié")
}

func TestPushKeys(t *testing.T) {
	keys, err := GenerateKeys()
	require.NoError(t, err)
	pk := keys.PushKeys()
	assert.Len(t, pk.P256dh, 87, "65 octets en base64url sans padding")
	assert.Len(t, pk.Auth, 22, "16 octets en base64url sans padding")
	assert.Len(t, keys.PublicKey(), 65)
}
