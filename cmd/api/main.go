// Package main implements the RegPulse API server: the answer endpoint and
// the scored update stream.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/RegPulseAI/regpulse/engine/answer"
	"github.com/RegPulseAI/regpulse/engine/dedup"
	"github.com/RegPulseAI/regpulse/engine/domain"
	"github.com/RegPulseAI/regpulse/engine/index"
	"github.com/RegPulseAI/regpulse/pkg/config"
	"github.com/RegPulseAI/regpulse/pkg/metrics"
	"github.com/RegPulseAI/regpulse/pkg/mid"
	"github.com/RegPulseAI/regpulse/pkg/provider"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newCompleter(cfg *config.Config) (provider.Completer, error) {
	switch cfg.Providers.Completion.Provider {
	case "openai":
		return provider.NewOpenAICompleter(os.Getenv("OPENAI_API_KEY"), cfg.Providers.Completion.Model), nil
	case "anthropic":
		return provider.NewAnthropicCompleter(os.Getenv("ANTHROPIC_API_KEY"), cfg.Providers.Completion.Model), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Providers.Completion.Provider)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Providers ---
	embedder := provider.NewCachedEmbedder(
		provider.NewOllamaEmbedder(cfg.Providers.Embed.OllamaURL, cfg.Providers.Embed.Model),
		cfg.Providers.Embed.CacheSize,
	)
	completer, err := newCompleter(cfg)
	if err != nil {
		return err
	}
	var searcher provider.LiveSearcher
	if cfg.Providers.Search.Enabled {
		searcher = provider.NewTavilySearcher(cfg.Providers.Search.BaseURL, cfg.Providers.Search.APIKey)
	}

	// --- Vector index ---
	vectorIdx, err := index.NewQdrantIndex(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorIdx.Close()

	// --- Answer engine ---
	engine := answer.New(embedder, vectorIdx, completer, searcher, answer.Options{
		TopK:                cfg.Retrieval.TopK,
		ContextBudget:       cfg.Retrieval.ContextBudget,
		ConfidenceThreshold: cfg.Retrieval.ConfidenceThreshold,
		JurisdictionBoost:   cfg.Retrieval.JurisdictionBoost,
	}, logger)

	// --- Update store (read side) ---
	store, err := dedup.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer store.Close()

	defaultProfile := domain.BusinessProfile{
		Industry:             cfg.Profile.Industry,
		Jurisdictions:        cfg.Profile.Jurisdictions,
		BusinessSize:         cfg.Profile.BusinessSize,
		RegisteredActivities: cfg.Profile.RegisteredActivities,
	}

	// --- Metrics ---
	reg := metrics.New()
	reg.ServeAsync(cfg.Server.MetricsPort)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/answer", handleAnswer(engine, reg, logger))
	mux.HandleFunc("GET /api/updates", handleUpdates(store, defaultProfile, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.Trace("regpulse-api"),
		mid.CORS(cfg.Server.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleAnswer(engine *answer.Engine, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	requests := reg.Counter("answer_requests_total", "Answer requests served")
	failures := reg.Counter("answer_failures_total", "Answer requests that errored")
	latency := reg.Histogram("answer_seconds", "Answer latency", nil)

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requests.Inc()

		var req domain.AnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Mode == "" {
			req.Mode = domain.ModeConcise
		}

		res, err := engine.Answer(r.Context(), req)
		latency.Since(start)
		if err != nil {
			failures.Inc()
			switch {
			case errors.Is(err, domain.ErrEmptyContext):
				writeError(w, http.StatusNotFound, "no_relevant_information")
			case errors.Is(err, domain.ErrProviderUnavailable):
				writeError(w, http.StatusServiceUnavailable, "provider_unavailable")
			case errors.Is(err, domain.ErrParse):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				logger.Error("answer failed", "err", err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleUpdates(store *dedup.Store, defaultProfile domain.BusinessProfile, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		fingerprint := q.Get("fingerprint")
		if fingerprint == "" {
			fingerprint = defaultProfile.Fingerprint()
		}
		minScore, _ := strconv.ParseFloat(q.Get("min_score"), 64)
		limit, _ := strconv.Atoi(q.Get("limit"))

		scored, err := store.ListScored(r.Context(), fingerprint, minScore, limit)
		if err != nil {
			logger.Error("listing updates failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"updates": scored,
			"count":   len(scored),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
