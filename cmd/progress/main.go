// Command progress follows the progress events the stage binaries
// publish when run with -nats, logging one line per update. Useful for
// watching a long batch from another terminal or host.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nats-io/nats.go"

	"github.com/OptForgeAI/optforge-mvp/engine/stage"
	"github.com/OptForgeAI/optforge-mvp/pkg/natsutil"
)

func main() {
	natsURL := flag.String("nats", nats.DefaultURL, "NATS URL the stages publish to")
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Error("nats connect failed", "url", *natsURL, "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	sub, err := natsutil.Subscribe(nc, stage.ProgressSubject+"*", func(_ context.Context, evt stage.ProgressEvent) {
		log.Info("progress", "stage", evt.Stage, "completed", evt.Completed, "total", evt.Total)
	})
	if err != nil {
		log.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	log.Info("watching progress events", "url", *natsURL)
	<-ctx.Done()
}
