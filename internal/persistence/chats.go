package persistence

import (
	"context"
	"database/sql"
	"errors"
)

func (s *SQLiteStore) CreateChat(ctx context.Context, chat *Chat) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chats (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
		chat.ID, chat.UserID, chat.Title, chat.CreatedAt.UTC(),
	)
	return err
}

// GetChat returns the chat only when it belongs to userID.
func (s *SQLiteStore) GetChat(ctx context.Context, userID, chatID string) (*Chat, error) {
	var c Chat
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, title, created_at FROM chats WHERE id = ? AND user_id = ?`,
		chatID, userID,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChats returns one page of the user's chats, newest first, and the total count.
func (s *SQLiteStore) ListChats(ctx context.Context, userID string, limit, offset int) ([]Chat, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, title, created_at FROM chats
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ret := make([]Chat, 0)
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		ret = append(ret, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return ret, total, nil
}

// DeleteChat removes the chat and its messages when it belongs to userID.
func (s *SQLiteStore) DeleteChat(ctx context.Context, userID, chatID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM chats WHERE id = ? AND user_id = ?`, chatID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, chatID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) AddMessage(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, msg.Role, msg.Content, msg.CreatedAt.UTC(),
	)
	return err
}

// ListMessages returns the chat's messages in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, chat_id, role, content, created_at FROM messages
		 WHERE chat_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		ret = append(ret, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
