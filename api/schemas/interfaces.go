package schemas

import (
	"context"
	"errors"
	"time"
)

// -- LLM Client Schemas & Interface --

// ModelTier selects which configured model serves a request. The analysis tier
// handles understanding, analysis and reflection; the coder tier handles code
// generation.
type ModelTier string

const (
	TierAnalysis ModelTier = "analysis" // General reasoning and classification.
	TierCoder    ModelTier = "coder"    // Code-specialized generation.
)

// GenerationOptions controls the text generation process.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, forces the model to output valid JSON.
}

// GenerationRequest encapsulates a complete request to the LLM: the system
// and user prompts, the desired model tier, and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// ErrContentBlocked is returned by an LLMClient when the provider rejected
// the request under its content-safety policy. Stages distinguish this from
// generic failures to produce a distinct user-facing message.
var ErrContentBlocked = errors.New("llm: content blocked by safety policy")

// LLMClient is the abstract text-generation collaborator. Implementations
// must return ErrContentBlocked (possibly wrapped) on safety rejections.
type LLMClient interface {
	// Generate produces a complete text response for the request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// GenerateStream produces the response incrementally, invoking onChunk
	// for each text fragment in generation order, and returns the full
	// concatenated text. The stream is finite and not restartable.
	GenerateStream(ctx context.Context, req GenerationRequest, onChunk func(string)) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// -- Search Collaborator --

// ErrSearchNotConfigured distinguishes "the operator never supplied an API
// key" from a transport or provider failure. Callers degrade gracefully in
// both cases but report them differently.
var ErrSearchNotConfigured = errors.New("search: provider not configured")

// SearchClient is the abstract web-search collaborator.
type SearchClient interface {
	// Search returns up to maxResults ranked hits for the query.
	Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error)
	// Configured reports whether the provider has credentials.
	Configured() bool
}

// -- Storage Collaborator --

// Session is one persisted conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Domain    Domain    `json:"domain"`
	Language  string    `json:"language"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one persisted conversation turn. Content and metadata are stored
// encrypted at rest.
type Message struct {
	ID        int64             `json:"id"`
	SessionID string            `json:"session_id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Session status values. Deletion is logical only; rows are never erased.
const (
	SessionActive  = "active"
	SessionDeleted = "deleted"
)

// Repository is the persistence collaborator for sessions, messages and
// artifacts. Implementations must keep updated_at and message appends
// consistent under concurrent runs.
type Repository interface {
	CreateSession(ctx context.Context, title string, domain Domain, language string) (string, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ListSessions(ctx context.Context, domain Domain, status string) ([]Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	AppendMessage(ctx context.Context, sessionID, role, content string, metadata map[string]string) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
	SaveArtifact(ctx context.Context, sessionID string, artifact CodeArtifact) error
}
