package handlers

import (
	"errors"
	"net/http"

	"keijiban-backend/constants"
	"keijiban-backend/database"
	"keijiban-backend/models"
	"keijiban-backend/services"
	"keijiban-backend/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// PostHandler gère la création et la lecture des posts
type PostHandler struct {
	service *services.PostService
	posts   database.PostStore
}

// NewPostHandler crée une nouvelle instance de PostHandler
func NewPostHandler(service *services.PostService, posts database.PostStore) *PostHandler {
	return &PostHandler{service: service, posts: posts}
}

// Create publie un post; la notification part en arrière-plan
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.Create(r.Context(), claims.UserID, req)
	switch {
	case errors.Is(err, services.ErrTitleRequired):
		utils.RespondError(w, http.StatusBadRequest, constants.ErrTitleRequired)
		return
	case errors.Is(err, services.ErrInvalidCategory):
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidCategory)
		return
	case errors.Is(err, services.ErrInvalidPriority):
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidPriority)
		return
	case err != nil:
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("❌ Erreur lors de la création du post")
		utils.RespondError(w, http.StatusInternalServerError, constants.ErrServerError)
		return
	}

	log.Info().Str("post_id", post.ID).Str("user_id", claims.UserID).Msg("✓ Post créé")
	utils.RespondJSON(w, http.StatusCreated, post)
}

// Get retourne un post par son identifiant
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		utils.RespondError(w, http.StatusBadRequest, constants.ErrInvalidPostID)
		return
	}

	post, err := h.posts.FindByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("post_id", id).Msg("❌ Erreur lors de la récupération du post")
		utils.RespondError(w, http.StatusInternalServerError, constants.ErrServerError)
		return
	}
	if post == nil {
		utils.RespondError(w, http.StatusNotFound, constants.ErrPostNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, post)
}
