package handlers

import (
	"errors"
	"net/http"
	"strings"

	"keijiban-backend/constants"
	"keijiban-backend/database"
	"keijiban-backend/models"
	"keijiban-backend/services"
	"keijiban-backend/utils"

	"github.com/rs/zerolog/log"
)

// NotificationHandler gère les requêtes de notifications push
type NotificationHandler struct {
	subscriptions  database.SubscriptionStore
	broadcaster    services.Broadcaster
	vapidPublicKey string
}

// NewNotificationHandler crée une nouvelle instance de NotificationHandler
func NewNotificationHandler(subscriptions database.SubscriptionStore, broadcaster services.Broadcaster, vapidPublicKey string) *NotificationHandler {
	return &NotificationHandler{
		subscriptions:  subscriptions,
		broadcaster:    broadcaster,
		vapidPublicKey: vapidPublicKey,
	}
}

// Subscribe enregistre (ou met à jour) l'abonnement push de l'utilisateur connecté
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Subscription.Endpoint = strings.TrimSpace(req.Subscription.Endpoint)
	if err := utils.ValidateSubscription(req.Subscription); err != nil {
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidSubscription+": "+err.Error())
		return
	}

	sub := &models.PushSubscription{
		UserID:   claims.UserID,
		Endpoint: req.Subscription.Endpoint,
		Keys:     req.Subscription.Keys,
	}
	if err := h.subscriptions.Upsert(r.Context(), sub); err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("❌ Erreur lors de l'enregistrement de l'abonnement")
		utils.RespondError(w, http.StatusInternalServerError, constants.ErrServerError)
		return
	}

	log.Info().Str("user_id", claims.UserID).Str("endpoint", sub.Endpoint).Msg("✓ Abonnement enregistré")
	utils.RespondSuccess(w, "Abonnement enregistré", nil)
}

// Unsubscribe supprime l'abonnement de l'utilisateur connecté pour un endpoint.
// Supprimer un abonnement absent n'est pas une erreur.
func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete, http.MethodPost) {
		return
	}
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UnsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" {
		utils.RespondError(w, http.StatusBadRequest, constants.ErrEndpointRequired)
		return
	}

	if err := h.subscriptions.DeleteByUserAndEndpoint(r.Context(), claims.UserID, endpoint); err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("❌ Erreur lors de la suppression de l'abonnement")
		utils.RespondError(w, http.StatusInternalServerError, constants.ErrServerError)
		return
	}

	log.Info().Str("user_id", claims.UserID).Str("endpoint", endpoint).Msg("✓ Abonnement supprimé")
	utils.RespondSuccess(w, "Désabonnement réussi", nil)
}

// ListSubscriptions retourne les endpoints abonnés de l'utilisateur connecté (sans les clés)
func (h *NotificationHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	subs, err := h.subscriptions.FindByUserID(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("❌ Erreur lors de la récupération des abonnements")
		utils.RespondError(w, http.StatusInternalServerError, constants.ErrServerError)
		return
	}

	out := make([]models.SubscriptionSummary, 0, len(subs))
	for _, sub := range subs {
		out = append(out, models.SubscriptionSummary{Endpoint: sub.Endpoint, CreatedAt: sub.CreatedAt})
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": out})
}

// Broadcast envoie une notification à tous les abonnés et retourne {sent, failed}
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.NotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.broadcaster.Broadcast(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrTitleRequired):
		utils.RespondError(w, http.StatusBadRequest, constants.ErrTitleRequired)
		return
	case err != nil:
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("❌ Erreur lors de la diffusion")
		utils.RespondError(w, http.StatusInternalServerError, constants.ErrServerError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// GetVAPIDPublicKey retourne la clé publique VAPID
func (h *NotificationHandler) GetVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"publicKey": h.vapidPublicKey,
	})
}
