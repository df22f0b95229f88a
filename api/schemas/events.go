package schemas

// Streaming event protocol emitted by the pipeline façade. Events arrive in
// generation order on a channel; exactly one terminal event (final or error)
// closes each run.

// EventType discriminates the events on a streaming run.
type EventType string

const (
	EventStatus  EventType = "status"  // Progress narration for the UI.
	EventContent EventType = "content" // One analysis text fragment.
	EventFinal   EventType = "final"   // Terminal: the composed answer.
	EventError   EventType = "error"   // Terminal: run failed; no final follows.
)

// Step identifiers carried on status events.
const (
	StepUnderstanding      = "understanding"
	StepUnderstandingDone  = "understanding_complete"
	StepSearching          = "searching"
	StepSearchDone         = "search_complete"
	StepAnalyzing          = "analyzing"
	StepReflecting         = "reflecting"
	StepReflectionDone     = "reflection_complete"
	StepCoding             = "coding"
	StepCodeDone           = "code_complete"
	StepSynthesizing       = "synthesizing"
)

// RunMetadata accompanies the final event of a streaming run.
type RunMetadata struct {
	TraceID       string               `json:"trace_id"`
	Elapsed       float64              `json:"elapsed"`
	Understanding *UnderstandingResult `json:"understanding,omitempty"`
	Artifacts     []CodeArtifact       `json:"artifacts,omitempty"`
}

// StreamEvent is one event on a streaming run.
type StreamEvent struct {
	Type     EventType    `json:"type"`
	Content  string       `json:"content"`
	Step     string       `json:"step,omitempty"`
	Metadata *RunMetadata `json:"metadata,omitempty"`
}

// RunResult is the return value of a synchronous run.
type RunResult struct {
	TraceID          string               `json:"trace_id"`
	Answer           string               `json:"answer"`
	Understanding    *UnderstandingResult `json:"understanding,omitempty"`
	WebSearchResults *WebSearchResult     `json:"web_search_results,omitempty"`
	Reflection       *ReflectionResult    `json:"reflection,omitempty"`
	FinalAnalysis    *AnalysisResult      `json:"final_analysis,omitempty"`
	Artifacts        []CodeArtifact       `json:"artifacts"`
	Elapsed          float64              `json:"elapsed"`
	ProcessingMode   ProcessingMode       `json:"processing_mode"`
	Err              string               `json:"error,omitempty"`
}
