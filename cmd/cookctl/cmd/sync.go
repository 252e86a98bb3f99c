package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cookplane/internal/syncqueue"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// queuedRequest is the payload stored for an offline mutation: enough
// to replay the exact HTTP call later.
type queuedRequest struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// remoteApplier replays queued requests through the API client.
type remoteApplier struct {
	client *CookClient
}

func (a *remoteApplier) Apply(ctx context.Context, op *syncqueue.Operation) error {
	var req queuedRequest
	if err := json.Unmarshal(op.Payload, &req); err != nil {
		return syncqueue.Permanent(fmt.Errorf("malformed queued payload: %w", err))
	}

	var body any
	if len(req.Body) > 0 {
		body = req.Body
	}
	err := a.client.do(ctx, req.Method, req.Path, body, nil)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Permanent() {
		return syncqueue.Permanent(err)
	}
	return err
}

// queueLogger keeps queue chatter off stdout; only warnings such as a
// dropped operation reach the terminal.
func queueLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func openQueue(client *CookClient) (*syncqueue.Queue, error) {
	return syncqueue.Open(viper.GetString("queue"), &remoteApplier{client: client}, queueLogger())
}

// queueOnTransportFailure stores a mutation locally when the server was
// unreachable. API rejections are not queued; retrying those would just
// fail again. Returns true when the operation was queued.
func queueOnTransportFailure(cmd *cobra.Command, err error, kind, entityType, entityID, method, path string, body any) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}

	client, ok := clientFromConfig(cmd)
	if !ok {
		return false
	}

	var bodyBytes []byte
	if body != nil {
		var marshalErr error
		bodyBytes, marshalErr = json.Marshal(body)
		if marshalErr != nil {
			return false
		}
	}
	payload, marshalErr := json.Marshal(queuedRequest{Method: method, Path: path, Body: bodyBytes})
	if marshalErr != nil {
		return false
	}

	q, openErr := openQueue(client)
	if openErr != nil {
		cmd.Printf("Error: server unreachable and the sync queue could not be opened: %v\n", openErr)
		return false
	}
	defer q.Close()

	if enqErr := q.Enqueue(cmd.Context(), kind, entityType, entityID, payload); enqErr != nil {
		cmd.Printf("Error: server unreachable and the operation could not be queued: %v\n", enqErr)
		return false
	}

	cmd.Println("⚠ Server unreachable; operation saved locally. Run 'cookctl sync drain' once you are back online.")
	return true
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage the offline sync queue",
	Long: `Mutations made while the server was unreachable are stored in a local
queue. 'sync status' shows what is waiting and 'sync drain' replays the
queue in order once connectivity returns.`,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show operations waiting to sync",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		q, err := openQueue(client)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		defer q.Close()

		ops, err := q.Pending(cmd.Context())
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		if len(ops) == 0 {
			cmd.Println("Sync queue is empty")
			return
		}
		cmd.Printf("%d operation(s) waiting:\n", len(ops))
		for _, op := range ops {
			retries := ""
			if op.RetryCount > 0 {
				retries = fmt.Sprintf("  (%d failed attempts)", op.RetryCount)
			}
			cmd.Printf("  %s %s %s  queued %s%s\n",
				op.Kind, op.EntityType, op.EntityID,
				op.EnqueuedAt.Format("Mon, 02 Jan 15:04:05"), retries)
		}
	},
}

var syncDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Replay queued operations against the server",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := clientFromConfig(cmd)
		if !ok {
			return
		}

		q, err := openQueue(client)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		defer q.Close()

		stats, err := q.Drain(cmd.Context())
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		cmd.Printf("✓ Sync finished: %d applied, %d kept for retry, %d dropped\n",
			stats.Applied, stats.Retried, stats.Dropped)
		for _, surfaced := range stats.Surfaced {
			cmd.Printf("✗ Rejected by the server: %v\n", surfaced)
		}
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncDrainCmd)

	rootCmd.AddCommand(syncCmd)
}
