package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSendMessageSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	client := NewClient("token", "chat", srv.URL, time.Second, testLogger())
	if err := client.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("SendMessage 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if received["text"] != "hello" {
		t.Fatalf("text 不正确: %#v", received)
	}
}

func TestSendMessageNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	client := NewClient("token", "chat", srv.URL, time.Second, testLogger())
	if err := client.SendMessage(context.Background(), "hello"); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestGetUpdatesOffsetForwarded(t *testing.T) {
	var gotOffset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOffset = r.URL.Query().Get("offset")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{"update_id": 7, "message": map[string]string{"text": "hi"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("token", "chat", srv.URL, time.Second, testLogger())

	updates, err := client.GetUpdates(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if gotOffset != "" {
		t.Fatalf("nil offset should omit the parameter, got %q", gotOffset)
	}
	if len(updates) != 1 || updates[0].UpdateID != 7 {
		t.Fatalf("unexpected updates: %#v", updates)
	}
	if updates[0].Message == nil || updates[0].Message.Text != "hi" {
		t.Fatalf("message not decoded: %#v", updates[0])
	}

	offset := int64(8)
	if _, err := client.GetUpdates(context.Background(), &offset); err != nil {
		t.Fatalf("GetUpdates with offset failed: %v", err)
	}
	if gotOffset != "8" {
		t.Fatalf("expected offset 8, got %q", gotOffset)
	}
}

func TestGetUpdatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("token", "chat", srv.URL, time.Second, testLogger())
	if _, err := client.GetUpdates(context.Background(), nil); err == nil {
		t.Fatal("HTTP 502 应报错")
	}
}
