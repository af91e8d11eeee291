package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type loginBody struct {
	Email string `json:"email" validate:"required,email"`
	PIN   string `json:"pin" validate:"required,len=4,numeric"`
}

func TestDecodeJSON(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@b.co","pin":"1234"}`, false},
		{"empty body", ``, true},
		{"malformed", `{"email":`, true},
		{"unknown field", `{"email":"a@b.co","pin":"1234","x":1}`, true},
		{"short pin", `{"email":"a@b.co","pin":"123"}`, true},
		{"non-numeric pin", `{"email":"a@b.co","pin":"12a4"}`, true},
		{"bad email", `{"email":"nope","pin":"1234"}`, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var got loginBody
			err := DecodeJSON(r, &got)
			if tc.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Fatalf("err = %v, want ErrBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
		})
	}
}

func TestError_IncludesRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithRequestID(r.Context(), "req-1"))
	w := httptest.NewRecorder()

	Error(w, r, http.StatusConflict, "User already clocked in")

	if w.Code != http.StatusConflict {
		t.Fatalf("code = %d, want 409", w.Code)
	}
	var env struct {
		Status  int               `json:"status"`
		Message string            `json:"message"`
		Error   string            `json:"error"`
		Data    map[string]string `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != 409 || env.Message != "User already clocked in" || env.Error != env.Message {
		t.Errorf("envelope = %+v", env)
	}
	if env.Data["requestId"] != "req-1" {
		t.Errorf("requestId = %q, want req-1", env.Data["requestId"])
	}
}

func TestInternal_IsOpaque(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	Internal(w, r, "load", errors.New("pq: connection refused to 10.0.0.3"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "10.0.0.3") {
		t.Error("internal error details leaked to client")
	}
	if !strings.Contains(w.Body.String(), InternalErrorMessage) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, "ok", map[string]int{"n": 1})
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"data":{"n":1}`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
