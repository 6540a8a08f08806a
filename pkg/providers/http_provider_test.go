package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProvider_Chat(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"content": "CODING"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"total_tokens": 12},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("test-key", server.URL, 5*time.Second)
	resp, err := p.Chat(context.Background(), []Message{
		{Role: "system", Content: "classify"},
		{Role: "user", Content: "hello"},
	}, "test-model", map[string]interface{}{"temperature": 0.0, "max_tokens": 100})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Content != "CODING" {
		t.Errorf("Expected content CODING, got %q", resp.Content)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("Expected model test-model, got %v", gotBody["model"])
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 12 {
		t.Errorf("Expected usage with 12 total tokens, got %+v", resp.Usage)
	}
}

func TestHTTPProvider_Chat_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewHTTPProvider("", server.URL, 5*time.Second)
	_, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "m", nil)
	if err == nil {
		t.Error("Expected error for non-OK status")
	}
}

func TestHTTPProvider_Chat_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("", server.URL, 5*time.Second)
	resp, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, "m", nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "" {
		t.Errorf("Expected empty content, got %q", resp.Content)
	}
}

func TestHTTPProvider_Chat_NoAPIBase(t *testing.T) {
	p := NewHTTPProvider("key", "", 5*time.Second)
	_, err := p.Chat(context.Background(), nil, "m", nil)
	if err == nil {
		t.Error("Expected error when API base is not configured")
	}
}
