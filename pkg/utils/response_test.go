package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteSuccessResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteSuccessResponse(rr, map[string]string{"hello": "world"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp APIResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Error != nil {
		t.Errorf("response = %+v", resp)
	}
	if resp.Data.(map[string]interface{})["hello"] != "world" {
		t.Errorf("data = %v", resp.Data)
	}
}

func TestWriteServiceUnavailableResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceUnavailableResponse(rr, "ACCESS_RESOLUTION_FAILED", "try again shortly")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	var resp APIResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Errorf("success = true on an error response")
	}
	if resp.Error == nil || resp.Error.Code != "ACCESS_RESOLUTION_FAILED" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestParseJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Acme"}`))
	var body struct {
		Name string `json:"name"`
	}
	if err := ParseJSONBody(req, &body); err != nil {
		t.Fatalf("ParseJSONBody: %v", err)
	}
	if body.Name != "Acme" {
		t.Errorf("name = %q", body.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad json`))
	if err := ParseJSONBody(req, &body); err == nil {
		t.Errorf("ParseJSONBody accepted malformed JSON")
	}
}
