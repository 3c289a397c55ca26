// Package metrics is a small Prometheus-text metrics registry. Labels
// are baked into the metric name via WithLabels, so every label
// combination is its own series and the registry stays a flat map.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OptForgeAI/optforge-mvp/pkg/mid"
)

// DefaultBuckets cover call latencies from milliseconds to the minute
// range, in seconds.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Counter only goes up.
type Counter struct{ v atomic.Int64 }

func (c *Counter) Inc()         { c.v.Add(1) }
func (c *Counter) Add(n int64)  { c.v.Add(n) }
func (c *Counter) Value() int64 { return c.v.Load() }

// Gauge goes both ways.
type Gauge struct{ v atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.v.Store(n) }
func (g *Gauge) Inc()         { g.v.Add(1) }
func (g *Gauge) Dec()         { g.v.Add(-1) }
func (g *Gauge) Value() int64 { return g.v.Load() }

// Histogram records a value distribution over fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	bounds  []float64
	counts  []uint64
	sum     float64
	total   uint64
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	h.sum += v
	h.total++
	for i, b := range h.bounds {
		if v <= b {
			h.counts[i]++
			break
		}
	}
	h.mu.Unlock()
}

// Since observes the seconds elapsed from t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

type family struct {
	kind string
	help string
}

// Registry holds named metrics and renders them in the Prometheus text
// exposition format.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	hists    map[string]*Histogram
	families map[string]family
	order    []string
}

func New() *Registry {
	return &Registry{
		counters: map[string]*Counter{},
		gauges:   map[string]*Gauge{},
		hists:    map[string]*Histogram{},
		families: map[string]family{},
	}
}

// WithLabels bakes label pairs into a metric name, so
// WithLabels("x", "stage", "analyze") yields `x{stage="analyze"}`.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	pairs := make([]string, 0, len(kvs)/2)
	for i := 0; i < len(kvs); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%s=%q", kvs[i], kvs[i+1]))
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func splitName(name string) (base, labels string) {
	if i := strings.IndexByte(name, '{'); i != -1 {
		return name[:i], name[i+1 : len(name)-1]
	}
	return name, ""
}

func (r *Registry) register(name, kind, help string) {
	base, _ := splitName(name)
	if _, ok := r.families[base]; !ok {
		r.order = append(r.order, base)
		r.families[base] = family{kind: kind, help: help}
	}
}

// Counter returns the counter for name, creating it on first use.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	r.register(name, "counter", help)
	return c
}

// Gauge returns the gauge for name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{}
	r.gauges[name] = g
	r.register(name, "gauge", help)
	return g
}

// Histogram returns the histogram for name, creating it on first use.
// A nil buckets slice means DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hists[name]; ok {
		return h
	}
	if buckets == nil {
		buckets = DefaultBuckets
	}
	bounds := make([]float64, len(buckets))
	copy(bounds, buckets)
	sort.Float64s(bounds)
	h := &Histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
	r.hists[name] = h
	r.register(name, "histogram", help)
	return h
}

// Render produces the full exposition text. Families appear in
// registration order, series within a family in sorted order.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, base := range r.order {
		fam := r.families[base]
		if fam.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, fam.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, fam.kind)

		switch fam.kind {
		case "counter":
			for _, name := range seriesOf(r.counters, base) {
				fmt.Fprintf(&b, "%s %d\n", name, r.counters[name].Value())
			}
		case "gauge":
			for _, name := range seriesOf(r.gauges, base) {
				fmt.Fprintf(&b, "%s %d\n", name, r.gauges[name].Value())
			}
		case "histogram":
			for _, name := range seriesOf(r.hists, base) {
				r.hists[name].render(&b, base, name)
			}
		}
	}
	return b.String()
}

func seriesOf[M any](m map[string]M, base string) []string {
	var names []string
	for name := range m {
		if b, _ := splitName(name); b == base {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (h *Histogram) render(b *strings.Builder, base, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, labels := splitName(name)
	bucketLabels := func(le string) string {
		if labels == "" {
			return fmt.Sprintf(`{le=%q}`, le)
		}
		return fmt.Sprintf(`{le=%q,%s}`, le, labels)
	}
	suffix := ""
	if labels != "" {
		suffix = "{" + labels + "}"
	}

	cum := uint64(0)
	for i, bound := range h.bounds {
		cum += h.counts[i]
		fmt.Fprintf(b, "%s_bucket%s %d\n", base, bucketLabels(fmt.Sprintf("%g", bound)), cum)
	}
	fmt.Fprintf(b, "%s_bucket%s %d\n", base, bucketLabels("+Inf"), h.total)
	fmt.Fprintf(b, "%s_sum%s %g\n", base, suffix, h.sum)
	fmt.Fprintf(b, "%s_count%s %d\n", base, suffix, h.total)
}

// Handler serves the exposition text.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}

// Serve blocks serving /metrics (plus a bare liveness root) on port.
func (r *Registry) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	h := mid.Chain(mux,
		mid.Recover(slog.Default()),
		mid.OTel("metrics"),
		mid.Logger(slog.Default()),
	)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), h)
}

// ServeAsync runs Serve in a goroutine; a scrape endpoint failing must
// not take the pipeline down with it.
func (r *Registry) ServeAsync(port int) {
	go func() {
		if err := r.Serve(port); err != nil {
			slog.Error("metrics server stopped", "port", port, "error", err)
		}
	}()
}
