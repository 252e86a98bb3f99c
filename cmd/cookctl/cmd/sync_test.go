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

	"cookplane/pkg/api"

	"github.com/spf13/viper"
)

func enqueueForTest(t *testing.T, queuePath, kind, entityType, entityID, method, path string, body any) {
	t.Helper()

	viper.Set("queue", queuePath)
	q, err := openQueue(NewCookClient("http://unused", "test-token"))
	if err != nil {
		t.Fatalf("failed to open queue: %v", err)
	}
	defer q.Close()

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	payload, err := json.Marshal(queuedRequest{Method: method, Path: path, Body: bodyBytes})
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	if err := q.Enqueue(context.Background(), kind, entityType, entityID, payload); err != nil {
		t.Fatalf("failed to enqueue: %v", err)
	}
}

func TestSyncDrainCommand_ReplaysInEnqueueOrder(t *testing.T) {
	resetViper()

	var mu sync.Mutex
	var seen []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("expected Bearer token, got: %s", r.Header.Get("Authorization"))
		}
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	queuePath := filepath.Join(t.TempDir(), "queue.db")
	viper.Set("url", server.URL)
	viper.Set("token", "test-token")
	viper.Set("queue", queuePath)

	text := "Dice the onion"
	enqueueForTest(t, queuePath, "upsert", "step", "sess-1", "PUT", "/sessions/sess-1/steps/1",
		api.CompleteStepRequest{StepText: text})
	enqueueForTest(t, queuePath, "upsert", "step", "sess-1", "PUT", "/sessions/sess-1/steps/2",
		api.CompleteStepRequest{StepText: "Toast the spices", Skipped: true})
	enqueueForTest(t, queuePath, "update", "room", "room-1", "PUT", "/rooms/room-1/activity",
		api.UpdateActivityRequest{CurrentStep: &text})

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"sync", "drain"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "3 applied") {
		t.Errorf("expected 3 applied, got: %s", stdout.String())
	}

	want := []string{
		"PUT /sessions/sess-1/steps/1",
		"PUT /sessions/sess-1/steps/2",
		"PUT /rooms/room-1/activity",
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

	q, err := openQueue(NewCookClient(server.URL, "test-token"))
	if err != nil {
		t.Fatalf("failed to reopen queue: %v", err)
	}
	defer q.Close()
	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatalf("failed to count queue: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty queue after drain, got %d", n)
	}
}

func TestSyncDrainCommand_PermanentRejectionSurfaced(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "step index out of range", Code: api.CodeValidation})
	}))
	defer server.Close()

	queuePath := filepath.Join(t.TempDir(), "queue.db")
	viper.Set("url", server.URL)
	viper.Set("token", "test-token")
	viper.Set("queue", queuePath)

	enqueueForTest(t, queuePath, "upsert", "step", "sess-1", "PUT", "/sessions/sess-1/steps/99",
		api.CompleteStepRequest{StepText: "bad step"})

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"sync", "drain"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "0 applied") {
		t.Errorf("expected 0 applied, got: %s", output)
	}
	if !strings.Contains(output, "Rejected by the server") {
		t.Errorf("expected rejection in output, got: %s", output)
	}

	// Rejection removed the operation; it must not retry forever.
	q, err := openQueue(NewCookClient(server.URL, "test-token"))
	if err != nil {
		t.Fatalf("failed to reopen queue: %v", err)
	}
	defer q.Close()
	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatalf("failed to count queue: %v", err)
	}
	if n != 0 {
		t.Errorf("expected rejected operation removed, got %d pending", n)
	}
}

func TestSyncStatusCommand_Empty(t *testing.T) {
	resetViper()

	viper.Set("url", "http://localhost:6161")
	viper.Set("token", "test-token")
	viper.Set("queue", filepath.Join(t.TempDir(), "queue.db"))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"sync", "status"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Sync queue is empty") {
		t.Errorf("expected empty queue message, got: %s", stdout.String())
	}
}

func TestSyncStatusCommand_ListsPending(t *testing.T) {
	resetViper()

	queuePath := filepath.Join(t.TempDir(), "queue.db")
	viper.Set("url", "http://localhost:6161")
	viper.Set("token", "test-token")
	viper.Set("queue", queuePath)

	enqueueForTest(t, queuePath, "upsert", "step", "sess-1", "PUT", "/sessions/sess-1/steps/1",
		api.CompleteStepRequest{StepText: "Dice the onion"})

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"sync", "status"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "1 operation(s) waiting") {
		t.Errorf("expected pending count, got: %s", output)
	}
	if !strings.Contains(output, "upsert step sess-1") {
		t.Errorf("expected operation line, got: %s", output)
	}
}
