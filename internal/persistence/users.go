package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	var email any
	if user.Email != "" {
		email = strings.ToLower(user.Email)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, email, name, password_hash, is_anonymous, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, email, user.Name, nullIfEmpty(user.PasswordHash), user.IsAnonymous, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `WHERE email = ?`, strings.ToLower(email))
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	var email, hash sql.NullString
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, email, name, password_hash, is_anonymous, created_at, updated_at FROM users `+where,
		arg,
	).Scan(&u.ID, &email, &u.Name, &hash, &u.IsAnonymous, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.PasswordHash = hash.String
	return &u, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.Token, session.UserID, session.ExpiresAt.UTC(), session.CreatedAt.UTC(), session.IPAddress, session.UserAgent,
	)
	return err
}

// GetSession returns the session and its user when the token exists and has not expired.
func (s *SQLiteStore) GetSession(ctx context.Context, token string, now time.Time) (*Session, *User, error) {
	var sess Session
	err := s.db.QueryRowContext(
		ctx,
		`SELECT token, user_id, expires_at, created_at, ip_address, user_agent
		 FROM sessions WHERE token = ?`,
		token,
	).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt, &sess.IPAddress, &sess.UserAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if !sess.ExpiresAt.After(now) {
		return nil, nil, ErrNotFound
	}

	user, err := s.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	return &sess, user, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteExpiredSessions removes sessions that expired at or before now.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
