// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Live class events (client -> server)
	EventTypeLiveClassStatusRequest EventType = "liveclass:status_request"
	EventTypeLiveClassWatch         EventType = "liveclass:watch"
	EventTypeLiveClassUnwatch       EventType = "liveclass:unwatch"

	// Live class events (server -> client)
	EventTypeLiveClassStatus EventType = "liveclass:status"

	// Installment events (server -> client)
	EventTypeInstallmentUpdated EventType = "installment:updated"

	// System events
	EventTypeSystemAlert EventType = "system:alert"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelLiveClasses  ChannelType = "live_classes"
	ChannelInstallments ChannelType = "installments"
	ChannelSystem       ChannelType = "system"
)

type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// LiveClassRequest names the class a client message refers to.
type LiveClassRequest struct {
	ClassID string `json:"class_id"`
}

// LiveClassStatusData is pushed whenever a watched class's snapshot changes.
type LiveClassStatusData struct {
	ClassID   string      `json:"class_id"`
	CourseIDs []string    `json:"course_ids,omitempty"`
	Snapshot  interface{} `json:"snapshot"`
}

// InstallmentUpdatedData tells dashboards to refresh a course's plans.
type InstallmentUpdatedData struct {
	CourseID  string `json:"course_id"`
	SessionID string `json:"session_id"`
	Saved     int    `json:"saved"`
}

// SystemAlertData for system-wide alerts
type SystemAlertData struct {
	Severity string `json:"severity"` // info, warning, critical
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// NewMessage builds a message stamped with a sortable id.
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
