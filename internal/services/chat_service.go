package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/textclean"
)

// ChatRepository defines chat room and message storage
type ChatRepository interface {
	CreateRoom(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error)
	GetRoom(ctx context.Context, id string) (*models.ChatRoom, error)
	ListActiveRooms(ctx context.Context, userID string) ([]*models.ChatRoom, error)
	ListMessages(ctx context.Context, roomID string, limit int) ([]*models.ChatMessage, error)
	CreateMessage(ctx context.Context, m *models.ChatMessage) error
	CloseRoom(ctx context.Context, roomID string) (*models.ChatRoom, error)
}

const messagesLimit = 100

type MessageInput struct {
	MessageType string
	Content     string
}

// ChatParticipant is the public view of the other side of a conversation
type ChatParticipant struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Picture *string `json:"picture,omitempty"`
}

// ChatRoomView is a room with its appointment and the other participant
type ChatRoomView struct {
	*models.ChatRoom
	Appointment *models.Appointment `json:"appointment,omitempty"`
	OtherUser   *ChatParticipant    `json:"other_user,omitempty"`
}

// ChatService runs the patient-researcher conversations opened by an
// accepted appointment. Only the two participants may read, write or close.
type ChatService struct {
	chats        ChatRepository
	appointments AppointmentRepository
	users        UserRepository
	logger       *slog.Logger
}

func NewChatService(chats ChatRepository, appointments AppointmentRepository, users UserRepository, logger *slog.Logger) *ChatService {
	return &ChatService{
		chats:        chats,
		appointments: appointments,
		users:        users,
		logger:       logger,
	}
}

// Rooms lists the user's active rooms. A room whose appointment or other
// participant can no longer be read is listed without that detail.
func (s *ChatService) Rooms(ctx context.Context, user *models.User) ([]*ChatRoomView, error) {
	rooms, err := s.chats.ListActiveRooms(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]*ChatRoomView, 0, len(rooms))
	for _, room := range rooms {
		view := &ChatRoomView{ChatRoom: room}

		appt, err := s.appointments.GetByID(ctx, room.AppointmentID)
		switch {
		case err == nil:
			view.Appointment = appt
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}

		other, err := s.users.GetByID(ctx, room.OtherParticipant(user.ID))
		switch {
		case err == nil:
			view.OtherUser = &ChatParticipant{ID: other.ID, Name: other.Name, Picture: other.Picture}
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}

		views = append(views, view)
	}
	return views, nil
}

func (s *ChatService) Messages(ctx context.Context, user *models.User, roomID string) ([]*models.ChatMessage, error) {
	if _, err := s.participantRoom(ctx, user, roomID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, roomID, messagesLimit)
}

// Send posts a message to an active room. Text is stripped of markup;
// images must be an https URL or an inline image data URI.
func (s *ChatService) Send(ctx context.Context, user *models.User, roomID string, in MessageInput) (*models.ChatMessage, error) {
	room, err := s.participantRoom(ctx, user, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.ChatRoomActive {
		return nil, models.ErrChatRoomClosed
	}

	msg := &models.ChatMessage{
		ChatRoomID:  room.ID,
		SenderID:    user.ID,
		SenderName:  user.Name,
		SenderRole:  senderRole(user, room),
		MessageType: in.MessageType,
	}

	switch in.MessageType {
	case models.MessageTypeText:
		msg.Content = textclean.StripMarkup(in.Content)
	case models.MessageTypeImage:
		content := strings.TrimSpace(in.Content)
		if strings.HasPrefix(content, "https://") || strings.HasPrefix(content, "data:image/") {
			msg.Content = content
		}
	default:
		return nil, fmt.Errorf("%w: unsupported message type", models.ErrBadRequest)
	}
	if msg.Content == "" {
		return nil, fmt.Errorf("%w: message is empty", models.ErrBadRequest)
	}

	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		if !errors.Is(err, models.ErrChatRoomClosed) {
			s.logger.Error("failed to store chat message",
				slog.String("chat_room_id", room.ID),
				slog.Any("error", err))
		}
		return nil, err
	}
	return msg, nil
}

// Close ends the conversation. The appointment is marked completed and the
// messages are discarded.
func (s *ChatService) Close(ctx context.Context, user *models.User, roomID string) error {
	room, err := s.participantRoom(ctx, user, roomID)
	if err != nil {
		return err
	}
	if room.Status != models.ChatRoomActive {
		return models.ErrChatRoomClosed
	}

	if _, err := s.chats.CloseRoom(ctx, roomID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrChatRoomClosed
		}
		return err
	}

	s.logger.Info("chat room closed",
		slog.String("chat_room_id", roomID),
		slog.String("appointment_id", room.AppointmentID),
		slog.String("closed_by", user.ID))
	return nil
}

func (s *ChatService) participantRoom(ctx context.Context, user *models.User, roomID string) (*models.ChatRoom, error) {
	room, err := s.chats.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(user.ID) {
		return nil, models.ErrForbidden
	}
	return room, nil
}

// senderRole labels the sender by their side of the room
func senderRole(user *models.User, room *models.ChatRoom) string {
	if room.ResearcherID == user.ID {
		return string(models.RoleResearcher)
	}
	return string(models.RolePatient)
}
