package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func capturingServer(t *testing.T, status int) (*httptest.Server, *PushRequest) {
	t.Helper()
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewClient_EmptyURL(t *testing.T) {
	if _, err := NewClient("  ", nil); err == nil {
		t.Fatal("NewClient should reject empty base URL")
	}
}

func TestPushEventJSON_LabelsAndTimestamp(t *testing.T) {
	srv, got := capturingServer(t, http.StatusNoContent)
	c, err := NewClient(srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	raw := []byte(`{"eventType":"clock_in","storeId":"store 1","source":"attendance","createdAt":"` + at.Format(time.RFC3339Nano) + `"}`)

	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	s := got.Streams[0]
	want := map[string]string{"job": "attendance", "event_type": "clock_in", "store_id": "store_1", "source": "attendance"}
	for k, v := range want {
		if s.Stream[k] != v {
			t.Errorf("label %s = %q, want %q", k, s.Stream[k], v)
		}
	}
	if len(s.Values) != 1 || s.Values[0][0] != strconv.FormatInt(at.UnixNano(), 10) || s.Values[0][1] != string(raw) {
		t.Errorf("values = %v", s.Values)
	}
}

func TestPushEventJSON_UnparseableLine(t *testing.T) {
	srv, got := capturingServer(t, http.StatusNoContent)
	c, _ := NewClient(srv.URL, srv.Client())
	if err := c.PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if len(got.Streams[0].Stream) != 1 {
		t.Errorf("labels = %v, want only job", got.Streams[0].Stream)
	}
}

func TestPushEvent_Non2xx(t *testing.T) {
	srv, _ := capturingServer(t, http.StatusBadRequest)
	c, _ := NewClient(srv.URL, srv.Client())
	if err := c.PushEvent(context.Background(), time.Now(), "line", nil); err == nil {
		t.Fatal("PushEvent should fail on 400")
	}
}
