// mathsolverd is the long-running solving service: it accepts uploaded
// problem files over HTTP, runs them through the pipeline on a worker pool,
// and serves status and export endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/anhducmata/myath/internal/async"
	"github.com/anhducmata/myath/internal/common"
	"github.com/anhducmata/myath/internal/export"
	"github.com/anhducmata/myath/internal/extraction"
	"github.com/anhducmata/myath/internal/filestore"
	"github.com/anhducmata/myath/internal/parser"
	"github.com/anhducmata/myath/internal/pipeline"
	"github.com/anhducmata/myath/internal/server"
	"github.com/anhducmata/myath/internal/solver"
	"github.com/anhducmata/myath/internal/store"
	"github.com/anhducmata/myath/internal/verifier"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer repo.Close()

	files, err := filestore.NewLocalStore(cfg.Files.Dir)
	if err != nil {
		return err
	}

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		return err
	}
	proc := pipeline.NewProcessor(
		repo,
		files,
		extraction.NewOrchestrator(extraction.Config{
			AcceptConfidence: cfg.Extraction.AcceptConfidence,
			ProviderTimeout:  cfg.Extraction.ProviderTimeout,
		}, providers, logger),
		parser.New(parser.NewOpenAIStructurer(parser.OpenAIConfig{
			APIKey:      cfg.Parser.APIKey,
			BaseURL:     cfg.Parser.BaseURL,
			Model:       cfg.Parser.Model,
			Temperature: cfg.Parser.Temperature,
			Timeout:     cfg.Parser.Timeout,
		}, logger), logger),
		solver.NewRouter(logger),
		verifier.New(logger),
		logger,
	)

	queue := async.NewProcessorQueue(proc.Process, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout))
	queue.Start()
	defer queue.Stop()

	svc := server.NewService(repo, files, queue, logger)
	handler := server.NewHandler(svc, export.NewService(repo, logger), logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg common.StoreConfig) (store.ProblemRepository, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryRepository(), nil
	case "sqlite":
		return store.NewSQLiteRepository(ctx, cfg.DSN)
	case "postgres":
		return store.NewPostgresRepository(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func buildProviders(cfg *common.Config, logger *slog.Logger) ([]extraction.Provider, error) {
	var providers []extraction.Provider
	for _, name := range cfg.Extraction.Order {
		switch name {
		case "mistral":
			providers = append(providers, extraction.NewMistralProvider(extraction.MistralConfig{
				APIKey:  cfg.Extraction.Mistral.APIKey,
				BaseURL: cfg.Extraction.Mistral.BaseURL,
				Model:   cfg.Extraction.Mistral.Model,
			}, nil, logger))
		case "tesseract":
			providers = append(providers, extraction.NewTesseractProvider(extraction.TesseractConfig{
				Tesseract: cfg.Extraction.Tesseract.Tesseract,
				Pdftotext: cfg.Extraction.Tesseract.Pdftotext,
				Lang:      cfg.Extraction.Tesseract.Lang,
				WorkDir:   cfg.Extraction.Tesseract.WorkDir,
			}, logger))
		default:
			return nil, fmt.Errorf("unknown extraction provider %q", name)
		}
	}
	return providers, nil
}
