// Command optimize is the final stage: it combines each record's
// matched strategies with its summary and asks the chat service for
// an optimized version of the code. Inputs must be line-aligned; a
// length mismatch aborts before any call is made.
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
		in          = flag.String("in", "match.jsonl", "input JSONL with matched strategies")
		sumPath     = flag.String("summaries", "sum.jsonl", "summaries JSONL, line-aligned with the input")
		out         = flag.String("out", "optm.jsonl", "output JSONL")
		tmplPath    = flag.String("template", "", "prompt template override (empty = built-in)")
		endpoint    = flag.String("endpoint", "http://localhost:4141", "chat service base URL")
		apiKey      = flag.String("api-key", os.Getenv("OPENAI_API_KEY"), "chat service credential")
		model       = flag.String("model", "gpt-4o-mini", "model identifier")
		concurrency = flag.Int("concurrency", 5, "max in-flight calls")
		retries     = flag.Int("retries", 100, "max attempts per record")
		baseDelay   = flag.Duration("base-delay", time.Second, "backoff base delay")
		pace        = flag.Duration("pace", 0, "min interval between calls (0 = unpaced)")
		breakAfter  = flag.Int("break-after", 0, "open circuit after N consecutive failures (0 = off)")
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

	tmpl := stage.NewTemplate(stage.DefaultOptimizeTemplate)
	if *tmplPath != "" {
		var err error
		tmpl, err = stage.LoadTemplate(*tmplPath)
		if err != nil {
			log.Error("template load failed", "error", err)
			os.Exit(1)
		}
	}

	records, err := jsonl.Read[domain.Record](*in)
	if err != nil {
		log.Error("input read failed", "error", err)
		os.Exit(1)
	}
	summaries, err := jsonl.Read[domain.Record](*sumPath)
	if err != nil {
		log.Error("summaries read failed", "error", err)
		os.Exit(1)
	}
	log.Info("loaded input", "records", len(records), "summaries", len(summaries))

	progress := stage.LogProgress("optimize")
	if *natsURL != "" {
		nc, err := nats.Connect(*natsURL)
		if err != nil {
			log.Error("nats connect failed", "url", *natsURL, "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		progress = stage.CombineProgress(progress, stage.NATSProgress(nc, "optimize"))
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

	result, err := cfg.Optimize(ctx, records, summaries, tmpl)
	if err != nil {
		log.Error("optimize failed", "error", err)
		os.Exit(1)
	}

	if err := jsonl.Write(*out, result); err != nil {
		log.Error("output write failed", "error", err)
		os.Exit(1)
	}
	log.Info("done", "path", *out, "records", len(result))
}
