// File: internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

const summaryRunes = 60

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store provides a PostgreSQL implementation of the Repository interface.
// Message content, metadata and artifact bodies are encrypted at rest.
type Store struct {
	pool   DBPool
	crypto *Encryptor
	log    *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, crypto *Encryptor, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		crypto: crypto,
		log:    logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables if they do not exist yet. Called once at
// startup so a fresh database needs no separate migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
            id         TEXT PRIMARY KEY,
            title      TEXT NOT NULL DEFAULT '',
            domain     TEXT NOT NULL DEFAULT 'general',
            language   TEXT NOT NULL DEFAULT '中文',
            status     TEXT NOT NULL DEFAULT 'active',
            summary    TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id         BIGSERIAL PRIMARY KEY,
            session_id TEXT NOT NULL REFERENCES sessions(id),
            role       TEXT NOT NULL,
            content    TEXT NOT NULL,
            metadata   TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS artifacts (
            id           TEXT PRIMARY KEY,
            session_id   TEXT NOT NULL REFERENCES sessions(id),
            title        TEXT NOT NULL,
            language     TEXT NOT NULL,
            code         TEXT NOT NULL,
            explanation  TEXT NOT NULL DEFAULT '',
            dependencies TEXT NOT NULL DEFAULT '',
            created_at   TIMESTAMPTZ NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, created_at);`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// CreateSession inserts a new active session and returns its id.
func (s *Store) CreateSession(ctx context.Context, title string, domain schemas.Domain, language string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	query := `
        INSERT INTO sessions (id, title, domain, language, status, summary, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, '', $6, $6);
    `
	if _, err := s.pool.Exec(ctx, query, id, title, string(schemas.NormalizeDomain(string(domain))), language, schemas.SessionActive, now); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Debug("Session created", zap.String("session_id", id), zap.String("domain", string(domain)))
	return id, nil
}

// GetSession fetches a single session by id, including soft-deleted ones.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*schemas.Session, error) {
	query := `
        SELECT id, title, domain, language, status, summary, created_at, updated_at
        FROM sessions
        WHERE id = $1;
    `
	var sess schemas.Session
	var domainStr string
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&sess.ID, &sess.Title, &domainStr, &sess.Language,
		&sess.Status, &sess.Summary, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s not found", sessionID)
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	sess.Domain = schemas.Domain(domainStr)
	return &sess, nil
}

// ListSessions returns sessions most recently updated first. Empty domain or
// status match everything.
func (s *Store) ListSessions(ctx context.Context, domain schemas.Domain, status string) ([]schemas.Session, error) {
	query := `
        SELECT id, title, domain, language, status, summary, created_at, updated_at
        FROM sessions
        WHERE ($1 = '' OR domain = $1)
          AND ($2 = '' OR status = $2)
        ORDER BY updated_at DESC;
    `
	rows, err := s.pool.Query(ctx, query, string(domain), status)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []schemas.Session
	for rows.Next() {
		var sess schemas.Session
		var domainStr string
		err := rows.Scan(
			&sess.ID, &sess.Title, &domainStr, &sess.Language,
			&sess.Status, &sess.Summary, &sess.CreatedAt, &sess.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sess.Domain = schemas.Domain(domainStr)
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return sessions, nil
}

// DeleteSession marks a session deleted. Rows are never physically removed so
// a conversation can be recovered by an operator.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	query := `
        UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3;
    `
	tag, err := s.pool.Exec(ctx, query, schemas.SessionDeleted, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}

	s.log.Info("Session soft-deleted", zap.String("session_id", sessionID))
	return nil
}

// AppendMessage inserts one encrypted message and keeps the parent session's
// updated_at current, in a single transaction. The first user message of a
// session also becomes its summary.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string, metadata map[string]string) error {
	encContent, err := s.crypto.Encrypt(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt message content: %w", err)
	}

	metaJSON := "{}"
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
		metaJSON = string(raw)
	}
	encMeta, err := s.crypto.Encrypt(metaJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt message metadata: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	now := time.Now().UTC()

	insertSQL := `
        INSERT INTO messages (session_id, role, content, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5);
    `
	if _, err := tx.Exec(ctx, insertSQL, sessionID, role, encContent, encMeta, now); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	touchSQL := `
        UPDATE sessions SET updated_at = $1 WHERE id = $2;
    `
	if _, err := tx.Exec(ctx, touchSQL, now, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if role == "user" {
		summarySQL := `
            UPDATE sessions SET summary = $1 WHERE id = $2 AND summary = '';
        `
		if _, err := tx.Exec(ctx, summarySQL, summarize(content), sessionID); err != nil {
			return fmt.Errorf("failed to update session summary: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetMessages returns the most recent messages of a session in chronological
// order, decrypted, up to limit (0 means no limit).
func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]schemas.Message, error) {
	query := `
        SELECT id, session_id, role, content, metadata, created_at
        FROM (
            SELECT id, session_id, role, content, metadata, created_at
            FROM messages
            WHERE session_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC, id ASC;
    `
	limitArg := any(limit)
	if limit <= 0 {
		limitArg = nil
	}

	rows, err := s.pool.Query(ctx, query, sessionID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []schemas.Message
	for rows.Next() {
		var m schemas.Message
		var encContent, encMeta string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &encContent, &encMeta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		m.Content = s.crypto.Decrypt(encContent)
		metaJSON := s.crypto.Decrypt(encMeta)
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &m.Metadata); err != nil {
				s.log.Warn("Unreadable message metadata", zap.Int64("message_id", m.ID), zap.Error(err))
			}
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return messages, nil
}

// SaveArtifact persists one generated code artifact with encrypted body.
func (s *Store) SaveArtifact(ctx context.Context, sessionID string, artifact schemas.CodeArtifact) error {
	encCode, err := s.crypto.Encrypt(artifact.Code)
	if err != nil {
		return fmt.Errorf("failed to encrypt artifact code: %w", err)
	}
	encExplanation, err := s.crypto.Encrypt(artifact.Explanation)
	if err != nil {
		return fmt.Errorf("failed to encrypt artifact explanation: %w", err)
	}

	query := `
        INSERT INTO artifacts (id, session_id, title, language, code, explanation, dependencies, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	deps := strings.Join(artifact.Dependencies, "\n")
	_, err = s.pool.Exec(ctx, query,
		uuid.NewString(), sessionID, artifact.Title, artifact.Language,
		encCode, encExplanation, deps, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

// summarize trims a first user message into a session summary.
func summarize(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= summaryRunes {
		return string(runes)
	}
	return string(runes[:summaryRunes]) + "..."
}
