package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/store"
)

// sessionColumns must match the scan order in scanSession.
const sessionColumns = `id_hash, uid, email, display_name, photo_url, id_token, refresh_token,
	token_expires_at, expires_at, created_at, last_seen_at, user_agent, ip_address`

// scanSession scans a row into a domain.Session. The ID field holds the hashed key;
// callers that know the raw ID overwrite it.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*domain.Session, error) {
	var (
		s              domain.Session
		displayName    sql.NullString
		photoURL       sql.NullString
		tokenExpiresAt string
		expiresAt      string
		createdAt      string
		lastSeenAt     string
		userAgent      sql.NullString
		ipAddress      sql.NullString
	)

	err := scanner.Scan(
		&s.ID,
		&s.UID,
		&s.Email,
		&displayName,
		&photoURL,
		&s.IDToken,
		&s.RefreshToken,
		&tokenExpiresAt,
		&expiresAt,
		&createdAt,
		&lastSeenAt,
		&userAgent,
		&ipAddress,
	)
	if err != nil {
		return nil, err
	}

	for _, ts := range []struct {
		raw string
		dst *time.Time
	}{
		{tokenExpiresAt, &s.TokenExpiresAt},
		{expiresAt, &s.ExpiresAt},
		{createdAt, &s.CreatedAt},
		{lastSeenAt, &s.LastSeenAt},
	} {
		if *ts.dst, err = parseTime(ts.raw); err != nil {
			return nil, err
		}
	}

	s.DisplayName = displayName.String
	s.PhotoURL = photoURL.String
	s.UserAgent = userAgent.String
	s.IPAddress = ipAddress.String

	return &s, nil
}

// CreateSession inserts a new session.
// Returns store.ErrAlreadyExists if the session ID already exists.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hashID(session.ID),
		session.UID,
		session.Email,
		nullString(session.DisplayName),
		nullString(session.PhotoURL),
		session.IDToken,
		session.RefreshToken,
		formatTime(session.TokenExpiresAt),
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
		formatTime(session.LastSeenAt),
		nullString(session.UserAgent),
		nullString(session.IPAddress),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetSession retrieves a session by its raw ID.
// Returns store.ErrNotFound if the session does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id_hash = ?`, hashID(id))

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.ID = id
	return sess, nil
}

// UpdateSession rewrites the identity and token fields of an existing session.
// Returns store.ErrNotFound if the session does not exist.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			uid = ?,
			email = ?,
			display_name = ?,
			photo_url = ?,
			id_token = ?,
			refresh_token = ?,
			token_expires_at = ?,
			expires_at = ?,
			last_seen_at = ?
		WHERE id_hash = ?`,
		session.UID,
		session.Email,
		nullString(session.DisplayName),
		nullString(session.PhotoURL),
		session.IDToken,
		session.RefreshToken,
		formatTime(session.TokenExpiresAt),
		formatTime(session.ExpiresAt),
		formatTime(session.LastSeenAt),
		hashID(session.ID),
	)
	return rowsAffected(result, err)
}

// TouchSession records activity on a session.
func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id_hash = ?`, formatTime(at), hashID(id))
	return rowsAffected(result, err)
}

// DeleteSession performs a hard delete of a session by ID.
// Returns store.ErrNotFound if the session does not exist.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id_hash = ?`, hashID(id))
	return rowsAffected(result, err)
}

// DeleteSessionsByEmail signs an account out everywhere.
func (s *Store) DeleteSessionsByEmail(ctx context.Context, email string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE email = ?`, email)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// ListSessions returns all sessions, oldest first. IDs are the hashed keys.
func (s *Store) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// DeleteExpiredSessions deletes all sessions that ended before now.
// Returns the number of sessions deleted.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func rowsAffected(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
