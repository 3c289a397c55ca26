package stage

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/OptForgeAI/optforge-mvp/pkg/natsutil"
)

// ProgressEvent is published after every completed item when progress
// events are enabled. Count-only: no record content leaves the
// process.
type ProgressEvent struct {
	Stage     string `json:"stage"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// ProgressSubject is the NATS subject prefix for progress events; the
// stage name is appended.
const ProgressSubject = "optforge.progress."

// NATSProgress returns a progress callback that publishes a
// ProgressEvent per completed item. Publish failures are logged and
// dropped; observability never fails a batch.
func NATSProgress(nc *nats.Conn, stageName string) func(completed, total int) {
	subject := ProgressSubject + stageName
	return func(completed, total int) {
		evt := ProgressEvent{Stage: stageName, Completed: completed, Total: total}
		if err := natsutil.Publish(context.Background(), nc, subject, evt); err != nil {
			slog.Warn("progress publish failed", "subject", subject, "error", err)
		}
	}
}

// LogProgress returns a progress callback that logs roughly every
// tenth completion, plus the last one.
func LogProgress(stageName string) func(completed, total int) {
	return func(completed, total int) {
		if total <= 0 {
			return
		}
		step := total / 10
		if step == 0 {
			step = 1
		}
		if completed%step == 0 || completed == total {
			slog.Info("progress", "stage", stageName, "completed", completed, "total", total)
		}
	}
}

// CombineProgress fans a completion out to several callbacks.
func CombineProgress(callbacks ...func(completed, total int)) func(completed, total int) {
	return func(completed, total int) {
		for _, cb := range callbacks {
			if cb != nil {
				cb(completed, total)
			}
		}
	}
}
