package domain

import "encoding/json"

// AnalysisInput is the request handed to the allergen analysis engine.
// AllergensProfile is free text context (comma-separated), not a typed structure.
type AnalysisInput struct {
	ProductName        string `json:"productName" validate:"required,notblank"`
	Ingredients        string `json:"ingredients" validate:"required,notblank"`
	ProductDescription string `json:"productDescription,omitempty"`
	AllergensProfile   string `json:"allergensProfile"`
	Barcode            string `json:"barcode,omitempty"`
}

// AnalysisResult is the engine verdict. The three verdict fields are always
// derived from AllergensList, never set independently.
type AnalysisResult struct {
	AnalysisID        string   `json:"analysisId"`
	ContainsAllergens bool     `json:"containsAllergens"`
	SafeToConsume     bool     `json:"safeToConsume"`
	AllergensList     []string `json:"allergensList"`
	Reasoning         string   `json:"reasoning"`
	Repaired          bool     `json:"repaired,omitempty"` // backend flags disagreed with its list
	ToolRounds        int      `json:"toolRounds"`
}

// Analysis statuses reported in a ScanReport
const (
	AnalysisStatusCompleted          = "completed"
	AnalysisStatusSkippedIngredients = "skipped_ingredients_missing"
	AnalysisStatusFailed             = "failed"
)

// ScanReport is the full barcode -> verdict pipeline output
type ScanReport struct {
	Product        *ProductRecord        `json:"product"`
	Warning        string                `json:"warning,omitempty"`
	AnalysisStatus string                `json:"analysisStatus"`
	Analysis       *AnalysisResult       `json:"analysis,omitempty"`
	AnalysisError  string                `json:"analysisError,omitempty"`
	Highlights     []HighlightedAllergen `json:"highlights,omitempty"`
	Profile        []string              `json:"profile"`
}

// Reasoning backend exchange types. They are provider-neutral; the
// infrastructure layer maps them onto a concrete API.

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool the reasoning backend may call
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolCall is a tool invocation requested by the backend
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult answers a ToolCall
type ToolResult struct {
	CallID  string `json:"callId"`
	Content string `json:"content"`
	IsError bool   `json:"isError,omitempty"`
}

// ReasoningMessage is one conversation turn
type ReasoningMessage struct {
	Role        string
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ReasoningRequest is a single round-trip to the reasoning backend
type ReasoningRequest struct {
	System   string
	Messages []ReasoningMessage
	Tools    []ToolSpec
	// DisableTools forbids further tool calls while keeping tool definitions
	// available for the tool blocks already present in the conversation.
	DisableTools bool
}

// ReasoningReply is the backend answer for one round-trip
type ReasoningReply struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}
