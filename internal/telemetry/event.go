// Package telemetry defines attendance domain events and the emitters that ship them.
package telemetry

import (
	"encoding/json"
	"time"
)

// Event types emitted by the attendance service.
const (
	EventClockIn  = "clock_in"
	EventClockOut = "clock_out"
	EventRequest  = "http_request"
)

// Event is one attendance event. Its JSON form is the Kafka message value consumed by the worker.
type Event struct {
	UserID    string          `json:"userId,omitempty"`
	StoreID   string          `json:"storeId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
