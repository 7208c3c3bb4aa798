package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("test-token", "12345").WithBaseURL(srv.URL)
	if err := c.SendMessage(context.Background(), "<b>hello</b>"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if !strings.Contains(gotPath, "bottest-token/sendMessage") {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody.ChatID != "12345" || gotBody.Text != "<b>hello</b>" || gotBody.ParseMode != "HTML" {
		t.Errorf("unexpected payload %+v", gotBody)
	}
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"bot was blocked"}`))
	}))
	defer srv.Close()

	c := NewClient("test-token", "12345").WithBaseURL(srv.URL)
	err := c.SendMessage(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "bot was blocked") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestSendMessage_DisabledClient(t *testing.T) {
	c := NewClient("", "")
	if c.Enabled() {
		t.Error("unconfigured client should be disabled")
	}
	if err := c.SendMessage(context.Background(), "dropped"); err != nil {
		t.Errorf("disabled client should no-op, got %v", err)
	}
}
