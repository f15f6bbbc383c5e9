package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ChatRepository struct {
	db *database.DB
}

func NewChatRepository(db *database.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

const chatRoomColumns = `id, appointment_id, patient_id, researcher_id, status, created_at, closed_at`

func scanChatRoomRow(scanner rowScanner) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := scanner.Scan(&room.ID, &room.AppointmentID, &room.PatientID, &room.ResearcherID, &room.Status, &room.CreatedAt, &room.ClosedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &room, nil
}

// CreateRoom opens the chat room of an appointment. An appointment has at
// most one room; accepting it again returns the existing room, reopened if
// it had been closed.
func (r *ChatRepository) CreateRoom(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error) {
	query := `
		INSERT INTO chat_rooms (id, appointment_id, patient_id, researcher_id, status, created_at)
		VALUES ($1, $2, $3, $4, 'active', NOW())
		ON CONFLICT (appointment_id) DO UPDATE
		SET status = 'active', closed_at = NULL
		RETURNING ` + chatRoomColumns

	stored, err := scanChatRoomRow(r.db.Pool.QueryRow(ctx, query,
		uuid.New().String(), room.AppointmentID, room.PatientID, room.ResearcherID))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat room: %w", err)
	}

	return stored, nil
}

func (r *ChatRepository) GetRoom(ctx context.Context, id string) (*models.ChatRoom, error) {
	return scanChatRoomRow(r.db.Pool.QueryRow(ctx, `SELECT `+chatRoomColumns+` FROM chat_rooms WHERE id = $1`, id))
}

// ListActiveRooms returns the active rooms userID takes part in, newest first
func (r *ChatRepository) ListActiveRooms(ctx context.Context, userID string) ([]*models.ChatRoom, error) {
	query := `
		SELECT ` + chatRoomColumns + `
		FROM chat_rooms
		WHERE (patient_id = $1 OR researcher_id = $1) AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]*models.ChatRoom, 0)
	for rows.Next() {
		room, err := scanChatRoomRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return rooms, nil
}

// ListMessages returns a room's messages, oldest first
func (r *ChatRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, chat_room_id, sender_id, sender_name, sender_role, message_type, content, created_at
		FROM chat_messages WHERE chat_room_id = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, roomID, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		err := rows.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.SenderName, &m.SenderRole, &m.MessageType, &m.Content, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return messages, nil
}

// CreateMessage stores a message in an active room. A room closed in the
// meantime is reported as models.ErrChatRoomClosed.
func (r *ChatRepository) CreateMessage(ctx context.Context, m *models.ChatMessage) error {
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO chat_messages (id, chat_room_id, sender_id, sender_name, sender_role, message_type, content, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE EXISTS (SELECT 1 FROM chat_rooms WHERE id = $2 AND status = 'active')
	`

	result, err := r.db.Pool.Exec(ctx, query,
		m.ID, m.ChatRoomID, m.SenderID, m.SenderName, m.SenderRole, m.MessageType, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", database.MapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return models.ErrChatRoomClosed
	}

	return nil
}

// CloseRoom closes an active room, completes its appointment and discards
// the conversation in one transaction
func (r *ChatRepository) CloseRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var closed *models.ChatRoom

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE chat_rooms SET status = 'closed', closed_at = NOW()
			WHERE id = $1 AND status = 'active'
			RETURNING ` + chatRoomColumns

		room, err := scanChatRoomRow(tx.QueryRow(ctx, query, roomID))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`,
			room.AppointmentID, models.AppointmentCompleted)
		if err != nil {
			return fmt.Errorf("failed to complete appointment: %w", database.MapPostgresError(err))
		}

		if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE chat_room_id = $1`, roomID); err != nil {
			return fmt.Errorf("failed to delete chat messages: %w", database.MapPostgresError(err))
		}

		closed = room
		return nil
	})
	if err != nil {
		return nil, err
	}

	return closed, nil
}
