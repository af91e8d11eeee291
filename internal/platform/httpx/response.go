// Package httpx holds the JSON envelope, request decoding and validation shared by HTTP handlers.
package httpx

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
)

// InternalErrorMessage is the only message clients see for unexpected failures.
const InternalErrorMessage = "Internal Server Error"

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id from ctx, or "".
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Envelope{Status: status, Message: message, Data: data})
}

// Error writes an error envelope whose message and error fields both carry message.
// The request id is attached as data so clients can quote it.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	var data any
	if id := RequestID(r.Context()); id != "" {
		data = map[string]string{"requestId": id}
	}
	write(w, Envelope{Status: status, Message: message, Error: message, Data: data})
}

// Internal logs err with the request id and writes an opaque 500.
func Internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.Printf("http: %s %s: %s: request_id=%s: %v", r.Method, r.URL.Path, op, RequestID(r.Context()), err)
	Error(w, r, http.StatusInternalServerError, InternalErrorMessage)
}

func write(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}
