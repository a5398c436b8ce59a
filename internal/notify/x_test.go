package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("短い投稿"); got != "短い投稿" {
		t.Errorf("short text changed: %q", got)
	}

	exact := strings.Repeat("あ", 280)
	if got := Truncate(exact); got != exact {
		t.Errorf("280-rune text must pass unchanged")
	}

	long := strings.Repeat("あ", 300)
	got := Truncate(long)
	if utf8.RuneCountInString(got) != 280 {
		t.Errorf("rune count = %d, want 280", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated text must end with ellipsis: %q", got[len(got)-12:])
	}
	if !strings.HasPrefix(got, strings.Repeat("あ", 277)) {
		t.Error("truncated text must keep the first 277 runes")
	}
}

func TestXPost(t *testing.T) {
	var gotText, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotText = body.Text
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1234567890","text":"echoed"}}`))
	}))
	defer srv.Close()

	n := NewXNotifier("token-abc", "TeamMirai")
	n.endpoint = srv.URL

	res := n.Post(context.Background(), "教育政策の更新\n\n数値目標を追加しました。")
	if !res.Success {
		t.Fatalf("post failed: %s", res.Message)
	}
	if res.URL != "https://x.com/TeamMirai/status/1234567890" {
		t.Errorf("url = %q", res.URL)
	}
	if gotText != "教育政策の更新\n\n数値目標を追加しました。" {
		t.Errorf("posted text = %q", gotText)
	}
	if gotAuth != "Bearer token-abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestXPostTruncatesLongText(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotText = body.Text
		w.Write([]byte(`{"data":{"id":"1","text":""}}`))
	}))
	defer srv.Close()

	n := NewXNotifier("token", "TeamMirai")
	n.endpoint = srv.URL

	n.Post(context.Background(), strings.Repeat("政", 400))
	if utf8.RuneCountInString(gotText) != 280 {
		t.Errorf("posted rune count = %d, want 280", utf8.RuneCountInString(gotText))
	}
}

func TestXPostAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewXNotifier("token", "TeamMirai")
	n.endpoint = srv.URL

	res := n.Post(context.Background(), "text")
	if res.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(res.Message, "403") {
		t.Errorf("message = %q, want the status code mentioned", res.Message)
	}
	if res.URL != "" {
		t.Errorf("url = %q, want empty on failure", res.URL)
	}
}

func TestXPostTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	n := NewXNotifier("token", "TeamMirai")
	n.endpoint = srv.URL

	res := n.Post(context.Background(), "text")
	if res.Success {
		t.Fatal("expected failure result")
	}
	if !strings.HasPrefix(res.Message, "Failed to post to X:") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestLocalNotifier(t *testing.T) {
	n := NewLocalNotifier("TeamMirai")
	if n.Platform() != "x" {
		t.Errorf("platform = %q", n.Platform())
	}
	res := n.Post(context.Background(), "anything")
	if !res.Success {
		t.Fatal("local notifier must always succeed")
	}
	if res.URL != "https://x.com/TeamMirai/status/1942491313124851933" {
		t.Errorf("url = %q", res.URL)
	}
}
