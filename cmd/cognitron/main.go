// Command cognitron runs the turn endpoint described in spec.md §6: env
// vars assemble the generator configuration, a Lifecycle Manager brings
// the components up in dependency order, and an HTTP server exposes
// httpapi.Handler on /turn, /health and /stats. This is not a full CLI framework;
// it exists to show the wiring and the exit codes, not to be a
// production server.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cognitron/cognitron/agent"
	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/conceptgraph"
	"github.com/cognitron/cognitron/generator"
	"github.com/cognitron/cognitron/httpapi"
	"github.com/cognitron/cognitron/ingest"
	"github.com/cognitron/cognitron/lifecycle"
	"github.com/cognitron/cognitron/log"
	"github.com/cognitron/cognitron/memory"
	"github.com/cognitron/cognitron/orchestrator"
	"github.com/cognitron/cognitron/pattern"
	"github.com/cognitron/cognitron/quality"
	"github.com/cognitron/cognitron/retrieval"
	"github.com/cognitron/cognitron/segment"
	"github.com/cognitron/cognitron/telemetry"
)

const (
	exitSuccess           = 0
	exitConfigError       = 2
	exitUpstreamError     = 3
	exitResourceExhausted = 4
	exitPersistenceError  = 5
)

var (
	statusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("config error: "+err.Error()))
		return exitConfigError
	}

	logger := log.NewDefaultLogger(log.LogLevelInfo)

	seg := segment.New(segment.DefaultConfig(), logger)
	if cfg.IngestRef != "" {
		if err := trainFromSource(context.Background(), seg, ingest.NewGitHubSource(), cfg.IngestRef); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("ingestion failed: "+err.Error()))
			return exitCodeFor(err)
		}
	}
	graph := conceptgraph.New()
	tiers := memory.New(memory.DefaultConfig())
	detector := pattern.New(2)
	planner := retrieval.New(seg, graph, tiers, detector, logger)

	provider := buildProvider(cfg)
	gen := generator.New(provider, generator.Config{
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		HistoryWindow: generator.DefaultConfig().HistoryWindow,
	})
	validator := quality.New(quality.Lexicon{})
	metrics := telemetry.NewMetricsCollector()
	orch := orchestrator.New(planner, gen, validator, tiers, metrics, logger, orchestrator.DefaultConfig())

	agents := agent.New(logger)
	dataPrivacy := agent.NewDataPrivacyAgent()
	if err := agents.Register(dataPrivacy); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("agent registration failed: "+err.Error()))
		return exitConfigError
	}
	if err := agents.Register(agent.NewPrivacyComplianceAgent(agents)); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("agent registration failed: "+err.Error()))
		return exitConfigError
	}

	manager := lifecycle.New(logger)
	manager.Register(&segmentComponent{engine: seg, path: cfg.VocabPath})
	manager.Register(&memoryComponent{tiers: tiers})
	manager.Register(&conceptGraphComponent{graph: graph})
	manager.Register(generatorComponent{})

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.StartAll(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("startup failed: "+err.Error()))
		return exitCodeFor(err)
	}

	backendCtx, backendCancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := buildSnapshotBackend(backendCtx, cfg)
	backendCancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("snapshot backend unavailable: "+err.Error()))
		return exitCodeFor(err)
	}

	snapshots := newSnapshotter(backend, graph, tiers)
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = snapshots.Restore(restoreCtx)
	restoreCancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("snapshot restore failed: "+err.Error()))
		return exitPersistenceError
	}

	handler := httpapi.NewHandler(orch, retrieval.DefaultConfig())
	handler.Lifecycle = manager
	handler.Metrics = metrics

	mux := http.NewServeMux()
	mux.HandleFunc("/turn", turnEndpoint(handler))
	mux.HandleFunc("/health", healthEndpoint(handler))
	mux.HandleFunc("/stats", statsEndpoint(handler))
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	fmt.Println(statusStyle.Render(fmt.Sprintf("cognitron listening on %s (model=%s)", cfg.ListenAddr, cfg.Model)))

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintln(os.Stderr, errorStyle.Render("server error: "+err.Error()))
			return exitUpstreamError
		}
	case <-sigCh:
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		server.Shutdown(stopCtx)
		if err := snapshots.Save(stopCtx); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("snapshot save failed: "+err.Error()))
		}
		manager.StopAll(stopCtx)
	}
	return exitSuccess
}

func turnEndpoint(h *httpapi.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := h.HandleTurn(r.Context(), body)
		if err != nil {
			status := http.StatusInternalServerError
			if cerr.Is(err, cerr.Input) {
				status = http.StatusBadRequest
			} else if cerr.Is(err, cerr.ResourceExhausted) {
				status = http.StatusTooManyRequests
			} else if cerr.Is(err, cerr.Timeout) {
				status = http.StatusGatewayTimeout
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}
}

func healthEndpoint(h *httpapi.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.HandleHealth(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}
}

func statsEndpoint(h *httpapi.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.HandleStats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp)
	}
}

func exitCodeFor(err error) int {
	switch {
	case cerr.Is(err, cerr.ResourceExhausted):
		return exitResourceExhausted
	case cerr.Is(err, cerr.Persistence):
		return exitPersistenceError
	case cerr.Is(err, cerr.Upstream):
		return exitUpstreamError
	default:
		return exitConfigError
	}
}

type config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	APIKey      string
	VocabPath   string
	ListenAddr  string
	SnapshotDir string
	IngestRef   string

	// SnapshotBackend selects the store.SnapshotStore implementation:
	// "file" (default), "memory", "redis", "postgres", or "sqlite".
	SnapshotBackend    string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	PostgresConnString string
	SQLitePath         string
}

func loadConfig() (config, error) {
	cfg := config{
		Model:              envOr("GENERATOR_MODEL", "gpt-4o-mini"),
		MaxTokens:          1024,
		Temperature:        0.7,
		APIKey:             os.Getenv("GENERATOR_API_KEY"),
		VocabPath:          os.Getenv("VOCAB_PATH"),
		ListenAddr:         envOr("LISTEN_ADDR", ":8080"),
		SnapshotDir:        envOr("SNAPSHOT_DIR", "./data/snapshots"),
		IngestRef:          os.Getenv("INGEST_SOURCE_REF"),
		SnapshotBackend:    envOr("SNAPSHOT_BACKEND", "file"),
		RedisAddr:          envOr("SNAPSHOT_REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("SNAPSHOT_REDIS_PASSWORD"),
		PostgresConnString: os.Getenv("SNAPSHOT_POSTGRES_DSN"),
		SQLitePath:         envOr("SNAPSHOT_SQLITE_PATH", "./data/snapshots.db"),
	}

	if raw := os.Getenv("SNAPSHOT_REDIS_DB"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return config{}, fmt.Errorf("SNAPSHOT_REDIS_DB must be an integer: %w", err)
		}
		cfg.RedisDB = n
	}

	if raw := os.Getenv("MAX_TOKENS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return config{}, fmt.Errorf("MAX_TOKENS must be an integer: %w", err)
		}
		cfg.MaxTokens = n
	}

	if raw := os.Getenv("TEMPERATURE"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return config{}, fmt.Errorf("TEMPERATURE must be a float: %w", err)
		}
		cfg.Temperature = f
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// trainFromSource fetches a text corpus and runs the segment engine's
// merge training over it, so a fresh process isn't left with a bare
// character-level vocabulary when a corpus source is configured.
func trainFromSource(ctx context.Context, seg *segment.Engine, source ingest.Source, ref string) error {
	text, err := source.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	seg.Initialize(text)
	return seg.Train()
}

func buildProvider(cfg config) generator.Provider {
	if cfg.APIKey == "" {
		return noopProvider{}
	}
	return generator.NewOpenAIProvider(cfg.APIKey, cfg.Model)
}

// noopProvider is used when no GENERATOR_API_KEY is configured, so the
// process still starts (and its health/HTTP wiring is reachable) without
// a real upstream credential.
type noopProvider struct{}

func (noopProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return "", cerr.New("generator", cerr.NotReady, "no GENERATOR_API_KEY configured")
}
