package handlers

import (
	"encoding/json"
	"net/http"

	"keijiban-backend/constants"
	"keijiban-backend/middleware"
	"keijiban-backend/utils"
)

// maxBodyBytes borne la taille des corps JSON acceptés
const maxBodyBytes = 64 << 10

// RequireMethod vérifie que la méthode HTTP est correcte. Retourne false et écrit l'erreur si non.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	utils.RespondError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
	return false
}

// decodeJSON lit le corps de la requête dans dst. Retourne false et écrit l'erreur si le corps est invalide.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidJSONBody)
		return false
	}
	return true
}

// currentUser retourne les revendications de la session (posées par middleware.Auth)
func currentUser(w http.ResponseWriter, r *http.Request) (*utils.Claims, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		utils.RespondError(w, http.StatusUnauthorized, constants.ErrNotAuthenticated)
		return nil, false
	}
	return claims, true
}
