// Command match annotates each test record with the knowledge-base
// strategies nearest to its extracted features. No generative calls
// happen here; the only external services are the local embedding
// endpoint and, optionally, Qdrant.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/OptForgeAI/optforge-mvp/engine/domain"
	"github.com/OptForgeAI/optforge-mvp/engine/knowledge"
	"github.com/OptForgeAI/optforge-mvp/engine/retrieve"
	"github.com/OptForgeAI/optforge-mvp/engine/semantic"
	"github.com/OptForgeAI/optforge-mvp/engine/stage"
	"github.com/OptForgeAI/optforge-mvp/pkg/jsonl"
	"github.com/OptForgeAI/optforge-mvp/pkg/ollama"
	"github.com/OptForgeAI/optforge-mvp/pkg/resilience"
)

func main() {
	var (
		in         = flag.String("in", "extract_feature.jsonl", "input JSONL with extracted features")
		kbPath     = flag.String("kb", "feature.jsonl", "knowledge-base JSONL from the analyze stage")
		out        = flag.String("out", "match.jsonl", "output JSONL")
		topK       = flag.Int("top-k", 1, "strategies to attach per feature")
		ollamaURL  = flag.String("ollama", "http://localhost:11434", "embedding service base URL")
		embedModel = flag.String("embed-model", "nomic-embed-text", "embedding model")
		embedRate  = flag.Float64("embed-rate", 0, "embedding calls per second (0 = unpaced)")
		indexKind  = flag.String("index", "memory", "index backend: memory or qdrant")
		qdrantAddr = flag.String("qdrant", "localhost:6334", "qdrant gRPC address")
		collection = flag.String("collection", "optforge-features", "qdrant collection name")
		limit      = flag.Int("limit", 0, "process only the first N records (0 = all)")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	records, err := jsonl.ReadLimit[domain.Record](*in, *limit)
	if err != nil {
		log.Error("input read failed", "error", err)
		os.Exit(1)
	}
	entries, err := knowledge.Load(*kbPath)
	if err != nil {
		log.Error("knowledge base load failed", "error", err)
		os.Exit(1)
	}
	log.Info("loaded input", "records", len(records), "kb_entries", len(entries))

	var index semantic.Index
	switch *indexKind {
	case "memory":
		index = semantic.NewMemory()
	case "qdrant":
		q, err := semantic.NewQdrant(*qdrantAddr, *collection)
		if err != nil {
			log.Error("qdrant connect failed", "addr", *qdrantAddr, "error", err)
			os.Exit(1)
		}
		defer q.Close()
		index = q
	default:
		log.Error("unknown index backend", "index", *indexKind)
		os.Exit(1)
	}

	var limiter *resilience.Limiter
	if *embedRate > 0 {
		limiter = resilience.NewLimiter(resilience.LimiterOpts{Rate: *embedRate, Burst: 1})
	}
	embed := ollama.NewEmbedClient(*ollamaURL, *embedModel, limiter)

	r := retrieve.New(embed, index)
	if err := r.BuildIndex(ctx, entries); err != nil {
		log.Error("index build failed", "error", err)
		os.Exit(1)
	}

	result, err := stage.Match(ctx, r, records, *topK)
	if err != nil {
		log.Error("match failed", "error", err)
		os.Exit(1)
	}

	if err := jsonl.Write(*out, result); err != nil {
		log.Error("output write failed", "error", err)
		os.Exit(1)
	}
	log.Info("done", "path", *out, "records", len(result))
}
