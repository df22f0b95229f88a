package schemas

// Core data model of the analysis pipeline: the domain and mode enums, the
// per-stage result records, and the PipelineState threaded through the
// workflow graph.

// Domain classifies a query. Unknown values coerce to DomainGeneral.
type Domain string

const (
	DomainGeneral Domain = "general"
	DomainArchDev Domain = "Arch/DEV"
	DomainMedical Domain = "medical"
	DomainLegal   Domain = "legal"
)

// NormalizeDomain coerces arbitrary model output to a valid domain.
func NormalizeDomain(raw string) Domain {
	switch Domain(raw) {
	case DomainGeneral, DomainArchDev, DomainMedical, DomainLegal:
		return Domain(raw)
	default:
		return DomainGeneral
	}
}

// IsRegulated reports whether answers in this domain must be grounded with a
// web search and closed with a disclaimer.
func (d Domain) IsRegulated() bool {
	return d == DomainMedical || d == DomainLegal
}

// ProcessingMode selects the pipeline's depth for one run.
type ProcessingMode string

const (
	ModeBasic        ProcessingMode = "basic"
	ModeDeepThinking ProcessingMode = "deep_thinking"
	ModeWebSearch    ProcessingMode = "web_search"
)

// ResolveMode maps the two request flags to a mode. Deep thinking wins over
// web search when both are set.
func ResolveMode(deepThinking, webSearch bool) ProcessingMode {
	switch {
	case deepThinking:
		return ModeDeepThinking
	case webSearch:
		return ModeWebSearch
	default:
		return ModeBasic
	}
}

// UnderstandingResult is the structured classification of the query produced
// by the first stage.
type UnderstandingResult struct {
	Intent            string   `json:"intent"`
	Domain            Domain   `json:"domain"`
	RequiresWebSearch bool     `json:"requires_web_search"`
	RequiresCode      bool     `json:"requires_code"`
	KeyConcepts       []string `json:"key_concepts"`
	Summary           string   `json:"summary"`
}

// SearchHit is one ranked result from the search provider.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// WebSearchResult records the grounding pass: the query, the raw hits, and a
// numbered human-readable summary.
type WebSearchResult struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
	Summary string      `json:"summary"`
}

// ReflectionResult is the structured self-critique produced in deep-thinking
// mode. RefinedAnswer supersedes the initial analysis for presentation.
type ReflectionResult struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Improvements  []string `json:"improvements"`
	RefinedAnswer string   `json:"refined_answer"`
}

// AnalysisResult is the structured technical breakdown produced by the
// detailed analysis stage for code-bearing queries.
type AnalysisResult struct {
	Requirements        []string `json:"requirements"`
	Architecture        string   `json:"architecture"`
	TechStack           []string `json:"tech_stack"`
	Clarifications      []string `json:"clarifications"`
	NeedsCode           bool     `json:"needs_code"`
	DetailedExplanation string   `json:"detailed_explanation"`
}

// CodeArtifact is one generated code unit.
type CodeArtifact struct {
	Title        string   `json:"title"`
	Language     string   `json:"language"`
	Code         string   `json:"code"`
	Explanation  string   `json:"explanation"`
	Dependencies []string `json:"dependencies"`
}

// PipelineState is the single mutable record threaded through a run. Each
// stage reads what it needs and writes its own slot; Err marks a fatal stage
// failure that routes the run straight to synthesis.
type PipelineState struct {
	SessionID           string               `json:"session_id"`
	Domain              Domain               `json:"domain"`
	Language            string               `json:"language"`
	Query               string               `json:"query"`
	ConversationHistory string               `json:"conversation_history"`
	ProcessingMode      ProcessingMode       `json:"processing_mode"`
	Understanding       *UnderstandingResult `json:"understanding,omitempty"`
	WebSearchResults    *WebSearchResult     `json:"web_search_results,omitempty"`
	InitialAnalysis     string               `json:"initial_analysis,omitempty"`
	Reflection          *ReflectionResult    `json:"reflection,omitempty"`
	FinalAnalysis       *AnalysisResult      `json:"final_analysis,omitempty"`
	Artifacts           []CodeArtifact       `json:"artifacts,omitempty"`
	FinalAnswer         string               `json:"final_answer,omitempty"`
	Err                 string               `json:"error,omitempty"`
}

// NewPipelineState builds the initial state for one run.
func NewPipelineState(sessionID, query string, mode ProcessingMode) *PipelineState {
	return &PipelineState{
		SessionID:      sessionID,
		Domain:         DomainGeneral,
		Query:          query,
		ProcessingMode: mode,
	}
}

// WithLanguage sets the response language and returns the state for chaining.
func (s *PipelineState) WithLanguage(language string) *PipelineState {
	s.Language = language
	return s
}

// WithHistory sets the prior-conversation snapshot and returns the state.
func (s *PipelineState) WithHistory(history string) *PipelineState {
	s.ConversationHistory = history
	return s
}

// Failed reports whether a fatal stage error was recorded.
func (s *PipelineState) Failed() bool {
	return s.Err != ""
}
