// Package events contains the event contracts broadcast to dashboard clients
// over WebSocket while exports run.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeExportStatus carries an ExportEvent
	MessageTypeExportStatus MessageType = "export:status"

	// MessageTypeConnect greets a newly registered client
	MessageTypeConnect MessageType = "connect"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// Level of an export event
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ExportEvent reports the progress or outcome of one export
type ExportEvent struct {
	ExportID string `json:"export_id"`
	Format   string `json:"format"`
	Scope    string `json:"scope"`
	State    string `json:"state"` // idle|preparing|dispatched
	Level    Level  `json:"level"`
	Message  string `json:"message,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Records  int    `json:"records,omitempty"`
}
