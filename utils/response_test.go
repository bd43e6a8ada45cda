package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"keijiban-backend/models"
)

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusBadRequest, "Le titre est requis")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Code = %v, attendu %v", rr.Code, http.StatusBadRequest)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %v", ct)
	}
	var body models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("décodage: %v", err)
	}
	if body.Error != "Bad Request" || body.Message != "Le titre est requis" {
		t.Errorf("body = %+v", body)
	}
}

func TestRespondSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondSuccess(rr, "Abonnement enregistré", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("Code = %v, attendu 200", rr.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("décodage: %v", err)
	}
	if body["success"] != true {
		t.Errorf("success = %v, attendu true", body["success"])
	}
	if _, ok := body["data"]; ok {
		t.Error("data ne doit pas apparaître quand elle est nil")
	}
}

func TestRespondJSONStatutParDefaut(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondJSON(rr, 0, models.BroadcastResult{Sent: 2, Failed: 1})

	if rr.Code != http.StatusOK {
		t.Errorf("Code = %v, attendu 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"sent":2,"failed":1}` {
		t.Errorf("body = %s", got)
	}
}
