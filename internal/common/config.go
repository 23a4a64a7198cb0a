package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is constructed once at
// process start and passed explicitly into component constructors; stage
// logic never reads the environment.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Files      FilesConfig
	Extraction ExtractionConfig
	Parser     ParserConfig
	Queue      QueueConfig
}

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	HTTPAddr string
}

// StoreConfig selects and configures the problem document store.
type StoreConfig struct {
	// Driver is one of "memory", "sqlite", "postgres".
	Driver string
	// DSN is the sqlite file path or postgres connection URL.
	DSN string
}

// FilesConfig configures the uploaded-bytes store.
type FilesConfig struct {
	Dir string
}

// ExtractionConfig configures the tiered extraction orchestrator.
type ExtractionConfig struct {
	// Order is the provider priority list, e.g. ["mistral", "tesseract"].
	Order []string
	// AcceptConfidence is the acceptance threshold for non-final providers.
	AcceptConfidence float64
	// ProviderTimeout bounds each single provider attempt.
	ProviderTimeout time.Duration

	Mistral   MistralConfig
	Tesseract TesseractConfig
}

// MistralConfig configures the vision OCR provider.
type MistralConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// TesseractConfig configures the local OCR fallback.
type TesseractConfig struct {
	Tesseract string // binary name or absolute path
	Pdftotext string // binary name or absolute path
	Lang      string
	WorkDir   string
}

// ParserConfig configures the structuring LLM used by the parsing stage.
type ParserConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// QueueConfig configures the in-process worker queue.
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "sqlite"),
			DSN:    getEnv("STORE_DSN", "./myath.db"),
		},
		Files: FilesConfig{
			Dir: getEnv("FILES_DIR", "./uploads"),
		},
		Extraction: ExtractionConfig{
			Order:            getEnvAsList("EXTRACTION_ORDER", []string{"mistral", "tesseract"}),
			AcceptConfidence: getEnvAsFloat("EXTRACTION_ACCEPT_CONFIDENCE", 0.7),
			ProviderTimeout:  getEnvAsDuration("EXTRACTION_PROVIDER_TIMEOUT", 60*time.Second),
			Mistral: MistralConfig{
				APIKey:  getEnv("MISTRAL_API_KEY", ""),
				BaseURL: getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
				Model:   getEnv("MISTRAL_MODEL", "pixtral-large-latest"),
			},
			Tesseract: TesseractConfig{
				Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
				Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
				Lang:      getEnv("TESSERACT_LANG", "eng"),
				WorkDir:   getEnv("TESSERACT_WORK_DIR", os.TempDir()),
			},
		},
		Parser: ParserConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 4),
			Size:           getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 3*time.Minute),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be memory, sqlite or postgres", ErrInvalidInput)
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		return NewAppError("CONFIG_ERROR", "STORE_DSN is required", ErrInvalidInput)
	}
	if len(c.Extraction.Order) == 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_ORDER must list at least one provider", ErrInvalidInput)
	}
	for _, name := range c.Extraction.Order {
		if name == "mistral" && c.Extraction.Mistral.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "MISTRAL_API_KEY is required when mistral is configured", ErrInvalidInput)
		}
	}
	if c.Parser.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
