package services

import (
	"context"
	"database/sql"

	"github.com/migchat/migchat-backend/internal/models"
	"github.com/migchat/migchat-backend/pkg/apperrors"
)

// MessageStore owns direct messages and their read state.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Send inserts a message from fromUserID to toUserID.
func (s *MessageStore) Send(ctx context.Context, fromUserID, toUserID int64, content string) (*models.Message, error) {
	msg := &models.Message{FromUserID: fromUserID, ToUserID: toUserID, Content: content}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (from_user_id, to_user_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		fromUserID, toUserID, content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, apperrors.InternalWrap("failed to send message", err)
	}
	return msg, nil
}

const messageSelect = `
	SELECT m.id, m.content, m.created_at,
	       from_user.username AS from_username,
	       to_user.username AS to_username
	FROM messages m
	JOIN users from_user ON m.from_user_id = from_user.id
	JOIN users to_user ON m.to_user_id = to_user.id`

// List returns every message the user sent or received, newest first.
func (s *MessageStore) List(ctx context.Context, userID int64) ([]models.MessageResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		messageSelect+`
		WHERE m.to_user_id = $1 OR m.from_user_id = $1
		ORDER BY m.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, apperrors.InternalWrap("failed to list messages", err)
	}
	return scanMessages(rows)
}

// ListWith returns the messages exchanged between userID and otherUserID,
// newest first.
func (s *MessageStore) ListWith(ctx context.Context, userID, otherUserID int64) ([]models.MessageResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		messageSelect+`
		WHERE (m.from_user_id = $1 AND m.to_user_id = $2)
		   OR (m.from_user_id = $2 AND m.to_user_id = $1)
		ORDER BY m.created_at DESC`,
		userID, otherUserID,
	)
	if err != nil {
		return nil, apperrors.InternalWrap("failed to list messages", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]models.MessageResponse, error) {
	defer rows.Close()

	messages := []models.MessageResponse{}
	for rows.Next() {
		var m models.MessageResponse
		if err := rows.Scan(&m.ID, &m.Content, &m.CreatedAt, &m.FromUsername, &m.ToUsername); err != nil {
			return nil, apperrors.InternalWrap("failed to scan message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.InternalWrap("failed to read messages", err)
	}
	return messages, nil
}

// Conversations aggregates the user's messages per peer: latest message,
// its timestamp and the count of unread inbound messages.
func (s *MessageStore) Conversations(ctx context.Context, userID int64) ([]models.ConversationResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (other_username)
		       other_username, content, created_at, unread_count
		FROM (
			SELECT CASE WHEN m.from_user_id = $1 THEN to_user.username
			            ELSE from_user.username END AS other_username,
			       m.content, m.created_at,
			       COUNT(*) FILTER (
			           WHERE m.to_user_id = $1 AND m.from_user_id <> $1 AND m.read_at IS NULL
			       ) OVER (PARTITION BY CASE WHEN m.from_user_id = $1 THEN m.to_user_id
			                                 ELSE m.from_user_id END) AS unread_count
			FROM messages m
			JOIN users from_user ON m.from_user_id = from_user.id
			JOIN users to_user ON m.to_user_id = to_user.id
			WHERE m.from_user_id = $1 OR m.to_user_id = $1
		) conv
		ORDER BY other_username, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, apperrors.InternalWrap("failed to list conversations", err)
	}
	defer rows.Close()

	conversations := []models.ConversationResponse{}
	for rows.Next() {
		var c models.ConversationResponse
		if err := rows.Scan(&c.Username, &c.LastMessage, &c.LastMessageTime, &c.UnreadCount); err != nil {
			return nil, apperrors.InternalWrap("failed to scan conversation", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.InternalWrap("failed to read conversations", err)
	}
	return conversations, nil
}

// MarkRead sets read_at on every unread message from otherUserID to
// userID and returns how many rows it touched.
func (s *MessageStore) MarkRead(ctx context.Context, userID, otherUserID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read_at = NOW()
		 WHERE from_user_id = $1 AND to_user_id = $2 AND read_at IS NULL`,
		otherUserID, userID,
	)
	if err != nil {
		return 0, apperrors.InternalWrap("failed to mark messages read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.InternalWrap("failed to read mark result", err)
	}
	return n, nil
}
