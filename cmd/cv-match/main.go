package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"cv-match-go/internal/api/handler"
	"cv-match-go/internal/api/router"
	"cv-match-go/internal/config"
	"cv-match-go/internal/logger"
	"cv-match-go/internal/matching"
	"cv-match-go/internal/parser"
	"cv-match-go/internal/processor"
	"cv-match-go/internal/scoring"
	"cv-match-go/internal/storage"
	"cv-match-go/internal/tracing"
	"cv-match-go/internal/worker"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer storageManager.Close()
	logger.Info().Msg("storage initialized")

	embedder, err := parser.NewOpenAIEmbedder(cfg.Embedding)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedder")
	}

	candidateProcessor, err := processor.NewCandidateProcessor(embedder, scoringOptions(cfg.Scoring)...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize candidate processor")
	}

	jobHandler := handler.NewJobHandler(cfg, storageManager, candidateProcessor)
	candidateHandler := handler.NewCandidateHandler(cfg, storageManager)

	// The extraction worker turns queued uploads into analyzable text.
	if storageManager.RabbitMQ != nil && cfg.Tika.ServerURL != "" {
		extractor := parser.NewTikaTextExtractor(
			cfg.Tika.ServerURL,
			parser.WithTikaTimeout(time.Duration(cfg.Tika.Timeout)*time.Second),
		)
		extractionWorker := worker.NewExtractionWorker(cfg, storageManager, extractor)
		go func() {
			if err := extractionWorker.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("extraction worker stopped")
			}
		}()
	} else {
		logger.Warn().Msg("extraction worker disabled: rabbitmq or tika not configured")
	}

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		hlog.CtxInfof(c, "%s %s -> %d (%s)",
			string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode(), time.Since(start))
	})
	router.RegisterRoutes(h, cfg, jobHandler, candidateHandler)

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("http server starting")
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}

// scoringOptions maps the config's scoring overrides onto the processor's
// policy structs. Zero values keep the built-in defaults.
func scoringOptions(cfg config.ScoringConfig) []processor.Option {
	matchPolicy := matching.DefaultMatchPolicy()
	if cfg.MustHavePenaltyThreshold > 0 {
		matchPolicy.MustHavePenaltyThreshold = cfg.MustHavePenaltyThreshold
	}
	if cfg.MustHavePenalty > 0 {
		matchPolicy.MustHavePenalty = cfg.MustHavePenalty
	}

	aggPolicy := matching.DefaultAggregatePolicy()
	if cfg.MissingThreshold > 0 {
		aggPolicy.MissingThreshold = cfg.MissingThreshold
	}
	if cfg.ImproveMinSimilarity > 0 {
		aggPolicy.ImproveMinSimilarity = cfg.ImproveMinSimilarity
	}
	if cfg.ImproveMaxScore10 > 0 {
		aggPolicy.ImproveMaxScore10 = cfg.ImproveMaxScore10
	}

	scoringPolicy := scoring.DefaultScoringPolicy()
	if cfg.GatePercent > 0 {
		scoringPolicy.GatePercent = cfg.GatePercent
	}
	if cfg.RecommendThreshold > 0 {
		scoringPolicy.RecommendThreshold = cfg.RecommendThreshold
	}
	if cfg.ExcludeThreshold > 0 {
		scoringPolicy.ExcludeThreshold = cfg.ExcludeThreshold
	}

	return []processor.Option{
		processor.WithMatchPolicy(matchPolicy),
		processor.WithAggregatePolicy(aggPolicy),
		processor.WithScoringPolicy(scoringPolicy),
	}
}
