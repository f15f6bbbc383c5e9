package models

import "time"

// Appointment statuses
const (
	AppointmentPending   = "pending"
	AppointmentAccepted  = "accepted"
	AppointmentRejected  = "rejected"
	AppointmentCompleted = "completed"
)

type Appointment struct {
	ID                string    `json:"id"`
	PatientID         string    `json:"patient_id"`
	PatientName       string    `json:"patient_name"`
	ResearcherID      string    `json:"researcher_id"`
	Condition         string    `json:"condition"`
	Location          string    `json:"location"`
	DurationSuffering string    `json:"duration_suffering"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// ChatRoomID names the active chat room opened on acceptance, if any
	ChatRoomID *string `json:"chat_room_id,omitempty"`
}

type Review struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"-"`
	ResearcherID  string    `json:"researcher_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

// Notification types
const (
	NotificationAppointmentRequest  = "appointment_request"
	NotificationAppointmentAccepted = "appointment_accepted"
	NotificationReviewReceived      = "review_received"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Link      *string   `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
