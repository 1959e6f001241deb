package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pinewilt/kgcurate/backend/internal/server"
	"github.com/pinewilt/kgcurate/backend/internal/util"
	"github.com/pinewilt/kgcurate/backend/pkg/embedding"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/logger/console"
	"github.com/pinewilt/kgcurate/backend/pkg/store"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := server.LoadConfig()
	graph, vector, err := server.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open store", "adapter", cfg.StoreAdapter, "err", err)
	}
	defer graph.Close()

	res, err := store.Seed(ctx, graph, store.DefaultRelations, store.SampleTriples)
	if err != nil {
		logger.Fatal("Failed to seed graph", "err", err)
	}
	count, err := graph.CountTriples(ctx)
	if err != nil {
		logger.Fatal("Failed to count triples", "err", err)
	}
	logger.Info("Graph seeded", "relations", res.Relations, "inserted", res.Triples, "triples", count)

	importPath := util.GetEnv("EMBED_IMPORT_PATH")
	if importPath == "" {
		return
	}
	importVectors(ctx, importPath, vector)
}

// importVectors loads a word2vec file and writes it into the store's vector
// table so the server can use it as a similarity tier.
func importVectors(ctx context.Context, path string, vector embedding.Space) {
	writer, ok := vector.(embedding.VectorWriter)
	if vector == nil || !ok {
		logger.Fatal("Store has no vector table; set EMBED_PGVECTOR_TABLE or use the sqlite store")
	}

	kv, err := embedding.LoadWord2VecFile("import", path)
	if err != nil {
		logger.Fatal("Failed to load embedding model", "path", path, "err", err)
	}

	if pg, ok := vector.(*embedding.PGVectorSpace); ok {
		if err := pg.EnsureTable(ctx, kv.Dim()); err != nil {
			logger.Fatal("Failed to prepare vector table", "err", err)
		}
	}

	n, err := embedding.Import(ctx, kv, writer, 0, func(done, total int) {
		logger.Debug("Importing vectors", "done", done, "total", total)
	})
	if err != nil {
		logger.Fatal("Failed to import vectors", "written", n, "err", err)
	}
	logger.Info("Vectors imported", "tier", vector.Name(), "words", n, "dim", kv.Dim())
}
