// File: internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/sage-cli/api/schemas"
)

// Memory is an in-process Repository used when no database is configured.
// Nothing survives the process; it exists so the pipeline never needs a nil
// check around persistence.
type Memory struct {
	mu        sync.Mutex
	sessions  map[string]*schemas.Session
	messages  map[string][]schemas.Message
	artifacts map[string][]schemas.CodeArtifact
	nextMsgID int64
}

// NewMemory creates an empty in-process repository.
func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[string]*schemas.Session),
		messages:  make(map[string][]schemas.Message),
		artifacts: make(map[string][]schemas.CodeArtifact),
	}
}

func (m *Memory) CreateSession(_ context.Context, title string, domain schemas.Domain, language string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	id := uuid.NewString()
	m.sessions[id] = &schemas.Session{
		ID:        id,
		Title:     title,
		Domain:    schemas.NormalizeDomain(string(domain)),
		Language:  language,
		Status:    schemas.SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (m *Memory) GetSession(_ context.Context, sessionID string) (*schemas.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	copied := *sess
	return &copied, nil
}

func (m *Memory) ListSessions(_ context.Context, domain schemas.Domain, status string) ([]schemas.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []schemas.Session
	for _, sess := range m.sessions {
		if domain != "" && sess.Domain != domain {
			continue
		}
		if status != "" && sess.Status != status {
			continue
		}
		out = append(out, *sess)
	}
	// Most recently updated first, matching the SQL store.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UpdatedAt.After(out[i].UpdatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *Memory) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	sess.Status = schemas.SessionDeleted
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) AppendMessage(_ context.Context, sessionID, role, content string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMsgID++
	now := time.Now().UTC()
	m.messages[sessionID] = append(m.messages[sessionID], schemas.Message{
		ID:        m.nextMsgID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
	})

	if sess, ok := m.sessions[sessionID]; ok {
		sess.UpdatedAt = now
		if role == "user" && sess.Summary == "" {
			sess.Summary = summarize(content)
		}
	}
	return nil
}

func (m *Memory) GetMessages(_ context.Context, sessionID string, limit int) ([]schemas.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]schemas.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) SaveArtifact(_ context.Context, sessionID string, artifact schemas.CodeArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.artifacts[sessionID] = append(m.artifacts[sessionID], artifact)
	return nil
}
