package models

import "time"

// Chat room statuses
const (
	ChatRoomActive = "active"
	ChatRoomClosed = "closed"
)

// Chat message types
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// ChatRoom is opened when a researcher accepts an appointment and lives
// until either participant closes it
type ChatRoom struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointment_id"`
	PatientID     string     `json:"patient_id"`
	ResearcherID  string     `json:"researcher_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

// HasParticipant reports whether userID is the room's patient or researcher
func (r *ChatRoom) HasParticipant(userID string) bool {
	return r.PatientID == userID || r.ResearcherID == userID
}

// OtherParticipant returns the id of the participant who is not userID
func (r *ChatRoom) OtherParticipant(userID string) string {
	if r.PatientID == userID {
		return r.ResearcherID
	}
	return r.PatientID
}

type ChatMessage struct {
	ID          string    `json:"id"`
	ChatRoomID  string    `json:"chat_room_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderRole  string    `json:"sender_role"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}
