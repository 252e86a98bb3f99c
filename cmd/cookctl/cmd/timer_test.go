package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cookplane/pkg/api"

	"github.com/spf13/viper"
)

func TestTimerStartCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/sessions/sess-123/timers") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var reqBody map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if reqBody["name"] != "Simmer" {
			t.Errorf("expected name=Simmer, got %v", reqBody["name"])
		}
		if reqBody["duration_seconds"] != float64(600) {
			t.Errorf("expected duration_seconds=600, got %v", reqBody["duration_seconds"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.TimerResponse{
			ID:               "timer-123",
			SessionID:        "sess-123",
			Name:             "Simmer",
			DurationSeconds:  600,
			RemainingSeconds: 600,
			Status:           "running",
			CreatedAt:        time.Now(),
		})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"timer", "start", "sess-123", "--name", "Simmer", "--duration", "600"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "timer-123") {
		t.Errorf("expected timer ID in output, got: %s", stdout.String())
	}
}

func TestTimerPauseCommand_QueuesWhenServerUnreachable(t *testing.T) {
	resetViper()

	viper.Set("url", "http://127.0.0.1:1")
	viper.Set("token", "test-token")
	queuePath := filepath.Join(t.TempDir(), "queue.db")
	viper.Set("queue", queuePath)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"timer", "pause", "timer-123"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "saved locally") {
		t.Errorf("expected offline queue message, got: %s", stdout.String())
	}

	q, err := openQueue(NewCookClient("http://127.0.0.1:1", "test-token"))
	if err != nil {
		t.Fatalf("failed to open queue: %v", err)
	}
	defer q.Close()

	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatalf("failed to count queue: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 queued operation, got %d", n)
	}
}

func TestTimerPauseThenResumeOffline_ReplayInOrder(t *testing.T) {
	resetViper()

	// Both transitions happen offline; on drain the pause must reach the
	// server before the resume.
	viper.Set("url", "http://127.0.0.1:1")
	viper.Set("token", "test-token")
	queuePath := filepath.Join(t.TempDir(), "queue.db")
	viper.Set("queue", queuePath)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"timer", "pause", "timer-123"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rootCmd.SetArgs([]string{"timer", "resume", "timer-123"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	stdout.Reset()
	rootCmd.SetArgs([]string{"sync", "drain"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "2 applied") {
		t.Errorf("expected 2 applied, got: %s", stdout.String())
	}

	want := []string{
		"POST /timers/timer-123/pause",
		"POST /timers/timer-123/resume",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("expected %d requests, got %d: %v", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("request %d: got %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestTimerCancelCommand_InvalidState(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "timer is already completed", Code: api.CodeInvalidState})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"timer", "cancel", "timer-123"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Error (409)") {
		t.Errorf("expected 409 error, got: %s", output)
	}
	if !strings.Contains(output, "already completed") {
		t.Errorf("expected server message, got: %s", output)
	}
}
