package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/services"
)

func TestChatHandler_ListRooms(t *testing.T) {
	chat := &MockChatService{
		RoomsFunc: func(ctx context.Context, user *models.User) ([]*services.ChatRoomView, error) {
			return []*services.ChatRoomView{{
				ChatRoom:  &models.ChatRoom{ID: "room1", Status: models.ChatRoomActive},
				OtherUser: &services.ChatParticipant{ID: "researcher-1", Name: "Dr. Res"},
			}}, nil
		},
	}
	h := NewChatHandler(chat, testLogger())

	req := WithUser(httptest.NewRequest(http.MethodGet, "/api/chat-rooms", nil), testPatient())
	w := httptest.NewRecorder()
	h.ListRooms(w, req)

	var resp []map[string]any
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "room1", resp[0]["id"])
	assert.Equal(t, "Dr. Res", resp[0]["other_user"].(map[string]any)["name"])
}

func TestChatHandler_ListRooms_Empty(t *testing.T) {
	h := NewChatHandler(&MockChatService{}, testLogger())

	req := WithUser(httptest.NewRequest(http.MethodGet, "/api/chat-rooms", nil), testPatient())
	w := httptest.NewRecorder()
	h.ListRooms(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestChatHandler_SendMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       SendMessageRequest
		err        error
		wantStatus int
		wantCode   string
	}{
		{"text", SendMessageRequest{MessageType: "text", Content: "hello"}, nil, http.StatusCreated, ""},
		{"unknown type", SendMessageRequest{MessageType: "video", Content: "x"}, nil, http.StatusBadRequest, "validation_failed"},
		{"empty content", SendMessageRequest{MessageType: "text"}, nil, http.StatusBadRequest, "validation_failed"},
		{"closed room", SendMessageRequest{MessageType: "text", Content: "hi"}, models.ErrChatRoomClosed, http.StatusBadRequest, "bad_request"},
		{"not a participant", SendMessageRequest{MessageType: "text", Content: "hi"}, models.ErrForbidden, http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &MockChatService{
				SendFunc: func(ctx context.Context, user *models.User, roomID string, in services.MessageInput) (*models.ChatMessage, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.ChatMessage{ID: "m1", ChatRoomID: roomID, Content: in.Content, MessageType: in.MessageType}, nil
				},
			}
			h := NewChatHandler(chat, testLogger())

			req := WithURLParam(WithUser(NewTestRequest(t, http.MethodPost, "/", tt.body), testPatient()), "id", "room1")
			w := httptest.NewRecorder()
			h.SendMessage(w, req)

			if tt.wantCode != "" {
				AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
				return
			}
			var resp models.ChatMessage
			AssertJSONResponse(t, w, tt.wantStatus, &resp)
			assert.Equal(t, "room1", resp.ChatRoomID)
			assert.Equal(t, "hello", resp.Content)
		})
	}
}

func TestChatHandler_CloseRoom(t *testing.T) {
	var closedID string
	chat := &MockChatService{
		CloseFunc: func(ctx context.Context, user *models.User, roomID string) error {
			closedID = roomID
			return nil
		},
	}
	h := NewChatHandler(chat, testLogger())

	req := WithURLParam(WithUser(httptest.NewRequest(http.MethodPost, "/", nil), testResearcher()), "id", "room1")
	w := httptest.NewRecorder()
	h.CloseRoom(w, req)

	var resp StatusResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "room1", closedID)
}

func TestChatHandler_ListMessages_UnknownRoom(t *testing.T) {
	h := NewChatHandler(&MockChatService{}, testLogger())

	req := WithURLParam(WithUser(httptest.NewRequest(http.MethodGet, "/", nil), testPatient()), "id", "nope")
	w := httptest.NewRecorder()
	h.ListMessages(w, req)

	AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}
