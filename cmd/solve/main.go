// solve runs a single problem file through the full pipeline locally and
// prints the resulting record as JSON. Useful for trying out a scan without
// standing up the service.
//
// Usage: solve [-json] <file.(png|jpg|pdf)>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/anhducmata/myath/internal/common"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/extraction"
	"github.com/anhducmata/myath/internal/filestore"
	"github.com/anhducmata/myath/internal/parser"
	"github.com/anhducmata/myath/internal/pipeline"
	"github.com/anhducmata/myath/internal/solver"
	"github.com/anhducmata/myath/internal/store"
	"github.com/anhducmata/myath/internal/verifier"
)

func main() {
	jsonOut := flag.Bool("json", false, "print the full problem record as JSON")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: solve [-json] <file.(png|jpg|pdf)>")
		os.Exit(2)
	}
	if err := run(flag.Arg(0), *jsonOut); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(path string, jsonOut bool) error {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	files, err := filestore.NewLocalStore(os.TempDir())
	if err != nil {
		return err
	}
	ref, err := files.Put(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}

	repo := store.NewMemoryRepository()
	prob, err := repo.Create(ctx, ref)
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

	if err := proc.Process(ctx, prob.ID); err != nil {
		return err
	}
	final, err := repo.Get(ctx, prob.ID)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	}
	printSummary(final)
	return nil
}

func printSummary(p *entity.Problem) {
	fmt.Println("status:", p.Status)
	if p.Parsed != nil {
		fmt.Println("type:  ", p.Parsed.Type)
		fmt.Println("given: ", p.Parsed.Statement)
	}
	if p.Error != nil {
		fmt.Printf("failed: [%s/%s] %s\n", p.Error.Stage, p.Error.Kind, p.Error.Message)
		return
	}
	if p.Solution == nil {
		return
	}
	fmt.Println()
	for _, step := range p.Solution.Steps {
		fmt.Printf("%d. %s\n   %s\n", step.Number, step.Description, step.SymbolicForm)
	}
	fmt.Println()
	for _, r := range p.Solution.Results {
		fmt.Println("result:", r)
	}
	if p.Solution.Verified != nil {
		if *p.Solution.Verified {
			fmt.Println("verified: yes")
		} else {
			fmt.Println("verified: NO (numeric check failed)")
		}
	}
	fmt.Printf("confidence: %.2f (%s)\n", p.Solution.Confidence, p.Solution.Method)
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
