package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/curalink/curalink/internal/auth"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
	pkghttp "github.com/curalink/curalink/pkg/http"
)

// ChatServiceInterface defines appointment chat rooms
type ChatServiceInterface interface {
	Rooms(ctx context.Context, user *models.User) ([]*services.ChatRoomView, error)
	Messages(ctx context.Context, user *models.User, roomID string) ([]*models.ChatMessage, error)
	Send(ctx context.Context, user *models.User, roomID string, in services.MessageInput) (*models.ChatMessage, error)
	Close(ctx context.Context, user *models.User, roomID string) error
}

type ChatHandler struct {
	service ChatServiceInterface
	logger  *slog.Logger
}

func NewChatHandler(service ChatServiceInterface, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// SendMessageRequest carries text, or an image as an https URL or data URI
type SendMessageRequest struct {
	MessageType string `json:"message_type" validate:"required,oneof=text image"`
	Content     string `json:"content" validate:"required,max=2000000"`
}

// ListRooms returns the user's active chat rooms
// @Router /api/chat-rooms [get]
func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.Rooms(r.Context(), auth.GetUserFromContext(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(rooms))
}

// ListMessages returns a room's messages, oldest first
// @Router /api/chat-rooms/{id}/messages [get]
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.Messages(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, nonNil(messages))
}

// SendMessage posts a message to an active room
// @Router /api/chat-rooms/{id}/messages [post]
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.service.Send(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id"), services.MessageInput{
		MessageType: req.MessageType,
		Content:     req.Content,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, msg)
}

// CloseRoom ends the conversation and completes its appointment
// @Router /api/chat-rooms/{id}/close [post]
func (h *ChatHandler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Close(r.Context(), auth.GetUserFromContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}
