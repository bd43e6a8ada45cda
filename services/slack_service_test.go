package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSlackService_Desactive(t *testing.T) {
	svc := NewSlackService("")
	if svc.Enabled() {
		t.Error("le service sans webhook doit être désactivé")
	}
	if err := svc.SendCriticalError(context.Background(), CriticalError{Status: 500}); err != nil {
		t.Errorf("SendCriticalError() sur service désactivé: %v", err)
	}
}

func TestSlackService_SendCriticalError(t *testing.T) {
	var msg SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("décodage: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewSlackService(srv.URL)
	err := svc.SendCriticalError(context.Background(), CriticalError{
		Method:    http.MethodPost,
		Path:      "/api/notifications/send",
		Status:    http.StatusInternalServerError,
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("SendCriticalError() erreur = %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, attendu 1", len(msg.Attachments))
	}
	if got := msg.Attachments[0].Fields[1].Value; got != "500" {
		t.Errorf("Status Code = %v, attendu 500", got)
	}
}

func TestSlackService_ReponseInattendue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if err := NewSlackService(srv.URL).SendCriticalError(context.Background(), CriticalError{Status: 502}); err == nil {
		t.Error("SendCriticalError() devrait échouer sur une réponse 403")
	}
}
