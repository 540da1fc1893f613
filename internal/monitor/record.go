// Package monitor implements the in-memory recording and aggregation engine
// behind MCP Pulse. It owns the raw event logs, the error log, and the
// derived-statistics computation; everything else in the repository is an
// adapter over this package.
package monitor

import "time"

// Status is the outcome of a recorded capability invocation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorType classifies an entry in the error log.
type ErrorType string

const (
	ErrorTypeTool     ErrorType = "tool"
	ErrorTypeResource ErrorType = "resource"
	ErrorTypePrompt   ErrorType = "prompt"
	// ErrorTypeServer covers errors reported by collaborators (transport
	// failures and the like) that have no matching tool/resource/prompt
	// record. They enter the log through RecordServerError.
	ErrorTypeServer ErrorType = "server"
)

// ResourceOp is the kind of access performed against a resource.
type ResourceOp string

const (
	ResourceOpRead  ResourceOp = "read"
	ResourceOpWrite ResourceOp = "write"
	ResourceOpList  ResourceOp = "list"
)

// ToolCallRecord is a stored tool invocation. Records are immutable once
// appended; the engine assigns ID and Timestamp at ingestion.
type ToolCallRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ToolName   string    `json:"toolName"`
	Params     any       `json:"params,omitempty"`
	Result     any       `json:"result,omitempty"`
	Status     Status    `json:"status"`
	DurationMs *float64  `json:"durationMs,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// ResourceAccessRecord is a stored resource access.
type ResourceAccessRecord struct {
	ID               string     `json:"id"`
	Timestamp        time.Time  `json:"timestamp"`
	URI              string     `json:"uri"`
	Operation        ResourceOp `json:"operation"`
	BytesTransferred int64      `json:"bytesTransferred"`
	Status           Status     `json:"status"`
	DurationMs       *float64   `json:"durationMs,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// PromptCallRecord is a stored prompt evaluation.
type PromptCallRecord struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	PromptName      string    `json:"promptName"`
	Args            any       `json:"args,omitempty"`
	TokensGenerated int64     `json:"tokensGenerated"`
	Status          Status    `json:"status"`
	DurationMs      *float64  `json:"durationMs,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// ErrorRecord is derived 1:1 from any error-status event at ingestion and is
// evicted by the same retention sweep as its source.
type ErrorRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      ErrorType `json:"type"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}

// ToolCall carries the caller-supplied fields of a tool invocation. The
// engine assigns id and timestamp itself.
type ToolCall struct {
	ToolName   string
	Params     any
	Result     any
	Status     Status
	DurationMs *float64
	Error      string
}

// ResourceAccess carries the caller-supplied fields of a resource access.
type ResourceAccess struct {
	URI              string
	Operation        ResourceOp
	BytesTransferred int64
	Status           Status
	DurationMs       *float64
	Error            string
}

// PromptCall carries the caller-supplied fields of a prompt evaluation.
type PromptCall struct {
	PromptName      string
	Args            any
	TokensGenerated int64
	Status          Status
	DurationMs      *float64
	Error           string
}

// Millis returns a pointer to v, for populating the optional duration field.
func Millis(v float64) *float64 {
	return &v
}
