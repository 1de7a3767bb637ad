// Package main builds the compliance document index: it chunks, embeds, and
// upserts a directory of documents into Qdrant.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/RegPulseAI/regpulse/engine/index"
	"github.com/RegPulseAI/regpulse/pkg/config"
	"github.com/RegPulseAI/regpulse/pkg/provider"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to YAML config file")
	docsDir := flag.String("docs", "", "directory of documents to index (.txt, .md)")
	jurisdiction := flag.String("jurisdiction", "", "jurisdiction tag applied to all documents")
	chunkSize := flag.Int("chunk-size", index.DefaultChunkSize, "target tokens per chunk")
	overlap := flag.Int("overlap", index.DefaultOverlap, "overlapping tokens between chunks")
	flag.Parse()

	if *docsDir == "" {
		fmt.Fprintln(os.Stderr, "usage: index -docs <dir> [-config <file>] [-jurisdiction <tag>]")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("config load failed", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := run(cfg, *docsDir, *jurisdiction, *chunkSize, *overlap, logger); err != nil {
		logger.Error("index build failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, docsDir, jurisdiction string, chunkSize, overlap int, logger *slog.Logger) error {
	ctx := context.Background()

	docs, err := loadDocuments(docsDir, jurisdiction)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no indexable documents under %s", docsDir)
	}
	logger.Info("documents loaded", "count", len(docs))

	vectorIdx, err := index.NewQdrantIndex(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorIdx.Close()

	if err := vectorIdx.EnsureCollection(ctx, cfg.Qdrant.VectorSize); err != nil {
		return err
	}

	embedder := provider.NewCachedEmbedder(
		provider.NewOllamaEmbedder(cfg.Providers.Embed.OllamaURL, cfg.Providers.Embed.Model),
		cfg.Providers.Embed.CacheSize,
	)

	builder := index.NewBuilder(
		index.NewChunker(chunkSize, overlap),
		embedder, vectorIdx, cfg.Monitor.FetchLimit, logger,
	)

	n, err := builder.Build(ctx, docs)
	if err != nil {
		return err
	}

	hits, misses := embedder.Stats()
	logger.Info("index build complete",
		"documents", len(docs), "chunks", n,
		"embed_cache_hits", hits, "embed_cache_misses", misses)
	return nil
}

// loadDocuments walks dir and reads each .txt/.md file as one document. The
// relative path becomes the document ID; the first line becomes the title.
func loadDocuments(dir, jurisdiction string) ([]index.Document, error) {
	var docs []index.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}

		docs = append(docs, index.Document{
			ID:           rel,
			Title:        documentTitle(rel, text),
			Jurisdiction: jurisdiction,
			Text:         text,
		})
		return nil
	})
	return docs, err
}

// documentTitle uses the first markdown heading or line, falling back to the
// file name.
func documentTitle(rel, text string) string {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(strings.TrimLeft(first, "# "))
	if first != "" && len(first) <= 120 {
		return first
	}
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
