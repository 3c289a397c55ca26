// Command analyze runs the knowledge-generation stage: every record's
// source/target pair is sent to the chat service for optimization
// analysis, and the answer lands in the record's analysis field. The
// output file doubles as the knowledge-base corpus for the match
// stage.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/engine/stage"
	"github.com/OptForgeAI/optforge-mvp/pkg/jsonl"
	"github.com/OptForgeAI/optforge-mvp/pkg/llm"
	"github.com/OptForgeAI/optforge-mvp/pkg/metrics"
	"github.com/OptForgeAI/optforge-mvp/pkg/resilience"
)

var met = metrics.New()

func main() {
	var (
		in          = flag.String("in", "val.jsonl", "input JSONL")
		out         = flag.String("out", "feature.jsonl", "output JSONL")
		tmplPath    = flag.String("template", "featureprompt.txt", "prompt template with $src_code and $tgt_code")
		endpoint    = flag.String("endpoint", "http://localhost:4141", "chat service base URL")
		apiKey      = flag.String("api-key", os.Getenv("OPENAI_API_KEY"), "chat service credential")
		model       = flag.String("model", "gpt-4.1", "model identifier")
		concurrency = flag.Int("concurrency", 100, "max in-flight calls")
		retries     = flag.Int("retries", 100, "max attempts per record")
		baseDelay   = flag.Duration("base-delay", time.Second, "backoff base delay")
		pace        = flag.Duration("pace", 0, "min interval between calls (0 = unpaced)")
		breakAfter  = flag.Int("break-after", 0, "open circuit after N consecutive failures (0 = off)")
		limit       = flag.Int("limit", 0, "process only the first N records (0 = all)")
		natsURL     = flag.String("nats", "", "NATS URL for progress events (empty = off)")
		metricsPort = flag.Int("metrics-port", 0, "serve /metrics on this port (0 = off)")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *metricsPort > 0 {
		met.ServeAsync(*metricsPort)
	}

	tmpl, err := stage.LoadTemplate(*tmplPath)
	if err != nil {
		log.Error("template load failed", "error", err)
		os.Exit(1)
	}

	records, err := jsonl.ReadLimit[domain.Record](*in, *limit)
	if err != nil {
		log.Error("input read failed", "error", err)
		os.Exit(1)
	}
	log.Info("loaded input", "path", *in, "records", len(records))

	progress := stage.LogProgress("analyze")
	if *natsURL != "" {
		nc, err := nats.Connect(*natsURL)
		if err != nil {
			log.Error("nats connect failed", "url", *natsURL, "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		progress = stage.CombineProgress(progress, stage.NATSProgress(nc, "analyze"))
	}

	var chat llm.Client = llm.New(*endpoint, *apiKey, *pace)
	if *breakAfter > 0 {
		chat = llm.WithBreaker(chat, resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: *breakAfter}))
	}

	cfg := stage.Config{
		Chat:        chat,
		Model:       *model,
		Concurrency: *concurrency,
		MaxAttempts: *retries,
		BaseDelay:   *baseDelay,
		Progress:    progress,
		Metrics:     met,
	}

	result := cfg.Analyze(ctx, records, tmpl)

	if err := jsonl.Write(*out, result); err != nil {
		log.Error("output write failed", "error", err)
		os.Exit(1)
	}
	log.Info("done", "path", *out, "records", len(result))
}
