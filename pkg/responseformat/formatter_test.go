package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestRequested(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"", FormatJSON},
		{"?format=json", FormatJSON},
		{"?format=msgpack", FormatMsgPack},
		{"?format=geojson", FormatGeoJSON},
		{"?format=png", FormatPNG},
		{"?format=xml", FormatJSON},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
		if got := Requested(req); got != tt.expected {
			t.Errorf("Requested(%q) = %q, expected %q", tt.query, got, tt.expected)
		}
	}
}

func TestWriteResponseJSON(t *testing.T) {
	f := NewFormatter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	if err := f.WriteResponse(rec, req, payload{Name: "depth", Value: 1.5}, map[string]string{"Cache-Control": "no-cache"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if rec.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("extra headers should be applied")
	}

	var got payload
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got.Name != "depth" || got.Value != 1.5 {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestWriteResponseMsgPack(t *testing.T) {
	f := NewFormatter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x?format=msgpack", nil)

	if err := f.WriteResponseStatus(rec, req, http.StatusCreated, payload{Name: "velocity", Value: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("expected msgpack content type, got %q", ct)
	}

	var got map[string]any
	if err := msgpack.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got["name"] != "velocity" {
		t.Errorf("msgpack keys should follow json tags, got %v", got)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	NewFormatter().WriteError(rec, http.StatusNotFound, "dataset not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["error"] != "dataset not found" {
		t.Errorf("unexpected error body %v", body)
	}
}
