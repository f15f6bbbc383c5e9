package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// FavoriteServiceInterface defines the interface for favorites
type FavoriteServiceInterface interface {
	Add(ctx context.Context, userID string, in services.FavoriteInput) (*models.Favorite, error)
	List(ctx context.Context, userID string) ([]*services.FavoriteEntry, error)
	Remove(ctx context.Context, userID, favoriteID string) error
}

type FavoriteHandler struct {
	service FavoriteServiceInterface
	logger  *slog.Logger
}

func NewFavoriteHandler(service FavoriteServiceInterface, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{service: service, logger: logger}
}

// AddFavoriteRequest names the item to favorite. Item optionally carries a
// snapshot of a live trial or publication so it can be stored locally.
type AddFavoriteRequest struct {
	ItemType string          `json:"item_type" validate:"required,oneof=trial publication expert collaborator"`
	ItemID   string          `json:"item_id" validate:"required,max=200"`
	Item     json.RawMessage `json:"item"`
}

// AddFavoriteResponse reports the outcome of adding a favorite
type AddFavoriteResponse struct {
	Status     string `json:"status"`
	FavoriteID string `json:"favorite_id,omitempty"`
}

// Add favorites an item. A repeated add reports already_favorited.
// @Router /api/favorites [post]
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddFavoriteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := services.FavoriteInput{ItemType: req.ItemType, ItemID: req.ItemID}
	if len(req.Item) > 0 && string(req.Item) != "null" {
		var err error
		switch req.ItemType {
		case models.ItemTypeTrial:
			in.Trial = &models.ClinicalTrial{}
			err = json.Unmarshal(req.Item, in.Trial)
		case models.ItemTypePublication:
			in.Publication = &models.Publication{}
			err = json.Unmarshal(req.Item, in.Publication)
		}
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid item snapshot")
			return
		}
	}

	fav, err := h.service.Add(r.Context(), auth.GetUserFromContext(r).ID, in)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyFavorited) {
			pkghttp.WriteJSON(w, http.StatusOK, AddFavoriteResponse{Status: "already_favorited"})
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, AddFavoriteResponse{Status: "success", FavoriteID: fav.ID})
}

// List returns the caller's favorites with their items
// @Router /api/favorites [get]
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), auth.GetUserFromContext(r).ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(entries))
}

// Remove deletes one of the caller's favorites
// @Router /api/favorites/{id} [delete]
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), auth.GetUserFromContext(r).ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}
