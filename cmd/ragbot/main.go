package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ragbot/internal/bot"
	"ragbot/internal/chunker"
	"ragbot/internal/config"
	"ragbot/internal/embedding"
	"ragbot/internal/health"
	"ragbot/internal/httpapi"
	"ragbot/internal/ingest"
	"ragbot/internal/llm"
	"ragbot/internal/models"
	"ragbot/internal/rag"
	"ragbot/internal/retry"
	"ragbot/internal/search"
	"ragbot/internal/store"
)

const defaultConfigPath = "./configs/config.yaml"

// docStore bundles the catalog view and delete for the HTTP API.
type docStore struct{ st *store.Store }

func (d docStore) List() []models.DocumentSummary { return d.st.Catalog().List() }
func (d docStore) Delete(id string) error         { return d.st.Delete(id) }

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rcfg := retry.Config{
		Attempts:  cfg.Retry.Attempts,
		BaseDelay: cfg.Retry.BaseDelay(),
		MaxDelay:  cfg.Retry.MaxDelay(),
	}

	cache := embedding.NewCache(cfg.Embedding.CacheCapacity, cfg.Embedding.EvictFraction)
	embedder, err := embedding.New(cfg.Embedding, rcfg, cache)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	completer, err := llm.New(cfg.Chat, rcfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}

	st, err := store.New(cfg.Storage.DocumentsDir, cfg.RAG.SimilarityFloor)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing document store")
	}
	if err := st.Rebuild(); err != nil {
		log.Warn().Err(err).Msg("Error rebuilding catalog from disk")
	}

	remote := search.New(cfg.Search, rcfg)

	pipeline := ingest.New(embedder, st, chunker.Options{
		Size:    cfg.RAG.ChunkSize,
		Overlap: cfg.RAG.ChunkOverlap,
		MinLen:  cfg.RAG.MinChunkSize,
	}, cfg.Embedding.BatchSize)

	retriever := rag.NewRetriever(embedder, st, remote, cfg.RAG.RemoteBonus)
	chat := rag.NewChat(retriever, completer, rag.NewHistory(), cfg.RAG.TopK, cfg.Chat.HistoryWindow)

	monitor := health.NewMonitor(cfg.Health.CheckInterval(), cfg.Health.StabilizationDelay())
	monitor.Register("embedding", func(ctx context.Context) error {
		_, err := embedder.Embed(ctx, "ping")
		return err
	})
	monitor.Register("search", remote.Ping)
	monitor.Register("index", func(ctx context.Context) error {
		return remote.EnsureIndex(ctx, cfg.Embedding.Dimensions)
	})

	report := monitor.WarmUp(ctx)
	log.Info().Interface("readiness", report).Msg("warm-up finished")
	if !monitor.Healthy() {
		go monitor.Run(ctx)
	}

	go cache.Run(ctx, cfg.Embedding.SweepInterval())

	api := httpapi.New(cfg.HTTP.Addr, chat, docStore{st: st}, monitor)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http api listening")
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http api stopped")
		}
	}()

	tg := bot.New(cfg.Telegram.BotToken, cfg.Telegram.PollTimeout, chat, pipeline, st.Catalog())
	tg.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http api shutdown")
	}
	log.Info().Msg("shutdown complete")
}
