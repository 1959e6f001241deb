package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	mid "github.com/pinewilt/kgcurate/backend/internal/server/middleware"
	"github.com/pinewilt/kgcurate/backend/internal/storage"
	"github.com/pinewilt/kgcurate/backend/pkg/ai"
	oai "github.com/pinewilt/kgcurate/backend/pkg/ai/ollama"
	gai "github.com/pinewilt/kgcurate/backend/pkg/ai/openai"
	"github.com/pinewilt/kgcurate/backend/pkg/embedding"
	"github.com/pinewilt/kgcurate/backend/pkg/growth"
	"github.com/pinewilt/kgcurate/backend/pkg/inference"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/metrics"
	"github.com/pinewilt/kgcurate/backend/pkg/similarity"
	"github.com/pinewilt/kgcurate/backend/pkg/store"
	"github.com/pinewilt/kgcurate/backend/pkg/store/memory"
	pgstore "github.com/pinewilt/kgcurate/backend/pkg/store/pgx"
	"github.com/pinewilt/kgcurate/backend/pkg/store/sqlite"
	"github.com/pinewilt/kgcurate/backend/pkg/vision"
)

// OpenStore opens the backend named by cfg.StoreAdapter together with the
// vector tier it can host, which may be nil. Postgres schemas are migrated
// first.
func OpenStore(ctx context.Context, cfg Config) (store.GraphStorage, embedding.Space, error) {
	switch cfg.StoreAdapter {
	case StoreAdapterMemory:
		return memory.New(), nil, nil

	case StoreAdapterSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.NewVecSpace("sqlite-vec"), nil

	case StoreAdapterPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		if err := pgstore.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		s, pool, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.PGVectorTable == "" {
			return s, nil, nil
		}
		return s, embedding.NewPGVectorSpace("pgvector", pool, cfg.PGVectorTable), nil
	}

	return nil, nil, fmt.Errorf("unknown STORE_ADAPTER %q", cfg.StoreAdapter)
}

// similaritySpaces loads the configured tiers in fallback order. A model that
// fails to load is logged and skipped.
func similaritySpaces(cfg Config, vector embedding.Space) []embedding.Space {
	var spaces []embedding.Space
	load := func(name, path string) {
		if path == "" {
			return
		}
		kv, err := embedding.LoadWord2VecFile(name, path)
		if err != nil {
			logger.Warn("[Server] embedding model unavailable", "tier", name, "path", path, "err", err)
			return
		}
		logger.Info("[Server] embedding model loaded", "tier", name, "words", kv.Len(), "dim", kv.Dim())
		spaces = append(spaces, kv)
	}

	load("word2vec", cfg.Word2VecPath)
	load("word2vec-fallback", cfg.FallbackWord2VecPath)
	if vector != nil {
		spaces = append(spaces, vector)
	}
	return spaces
}

// completionClient returns nil when no language model is configured.
func completionClient(cfg Config) ai.CompletionClient {
	switch cfg.AIAdapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:             cfg.ChatModel,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			MaxConcurrentRequests: int64(cfg.Parallelism),
		})
		if err != nil {
			logger.Warn("[Server] ollama client unavailable, using rules", "err", err)
			return nil
		}
		return client
	default:
		client := gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel: cfg.ChatModel,
			ChatURL:   cfg.ChatURL,
			ChatKey:   cfg.ChatKey,
		})
		if !client.HasChat() {
			logger.Warn("[Server] no chat key configured, using rules")
			return nil
		}
		return client
	}
}

// visionClient returns nil when no vision model is configured.
func visionClient(cfg Config) ai.VisionClient {
	switch vision.ParseVariant(cfg.VisionAdapter) {
	case vision.VariantLocal:
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ImageModel:            cfg.ImageModel,
			BaseURL:               cfg.ImageURL,
			ApiKey:                cfg.ImageKey,
			MaxConcurrentRequests: 1,
		})
		if err != nil {
			logger.Warn("[Server] local vision model unavailable", "err", err)
			return nil
		}
		return client
	default:
		client := gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ImageModel: cfg.ImageModel,
			ImageURL:   cfg.ImageURL,
			ImageKey:   cfg.ImageKey,
		})
		if !client.HasImage() {
			return nil
		}
		return client
	}
}

func eventPublisher() (queue.Publisher, func()) {
	conn, err := queue.Init()
	if err != nil {
		logger.Warn("[Server] event publishing disabled", "err", err)
		return queue.Nop{}, func() {}
	}
	if conn == nil {
		return queue.Nop{}, func() {}
	}
	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("[Server] event publishing disabled", "err", err)
		_ = conn.Close()
		return queue.Nop{}, func() {}
	}
	p, err := queue.NewPublisher(ch)
	if err != nil {
		logger.Warn("[Server] event publishing disabled", "err", err)
		_ = conn.Close()
		return queue.Nop{}, func() {}
	}
	return p, func() { _ = conn.Close() }
}

// Build wires every collaborator from cfg. The returned cleanup releases
// connections.
func Build(ctx context.Context, cfg Config) (*mid.App, func(), error) {
	if cfg.MetricsAddr != "" {
		metrics.ListenAndServe(cfg.MetricsAddr)
		logger.Info("[Server] metrics listening", "addr", cfg.MetricsAddr)
	}

	backend, vector, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	graph := store.Instrumented(backend)

	if cfg.SeedOnStart {
		res, err := store.Seed(ctx, graph, store.DefaultRelations, store.SampleTriples)
		if err != nil {
			_ = graph.Close()
			return nil, nil, fmt.Errorf("failed to seed graph: %w", err)
		}
		logger.Info("[Server] graph seeded", "relations", res.Relations, "triples", res.Triples)
	}

	usage := map[string]ai.UsageReporter{}
	chat := completionClient(cfg)
	if r, ok := chat.(ai.UsageReporter); ok {
		usage["chat"] = r
	}
	vis := visionClient(cfg)
	if r, ok := vis.(ai.UsageReporter); ok {
		usage["vision"] = r
	}

	sim := similarity.New(similaritySpaces(cfg, vector)...)
	inf := inference.NewOracle(inference.NewOracleParams{
		Client:  chat,
		Model:   cfg.ChatModel,
		Timeout: cfg.AITimeout,
	})
	logger.Info("[Server] oracles ready", "similarity_tiers", sim.Tiers(), "llm", inf.HasClient())

	variant := vision.ParseVariant(cfg.VisionAdapter)
	recognizer := vision.NewModelRecognizer(variant, vis, cfg.ImageModel)

	events, closeEvents := eventPublisher()

	app := &mid.App{
		Store: graph,
		Growth: growth.New(growth.Services{
			Store:       graph,
			Similarity:  sim,
			Inference:   inf,
			Parallelism: cfg.Parallelism,
		}),
		Recognizer: recognizer,
		Archive:    storage.NewImageArchive(storage.NewS3Client(ctx)),
		Events:     events,
		Tiers:      sim.Tiers(),
		Usage:      usage,
	}

	cleanup := func() {
		closeEvents()
		if err := graph.Close(); err != nil {
			logger.Error("[Server] failed to close store", "err", err)
		}
	}
	return app, cleanup, nil
}
