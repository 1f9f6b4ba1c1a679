package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iamshnoo/soc-bias/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	PersistentDir string           `yaml:"persistent_dir" validate:"required"`
	LogLevel      string           `yaml:"log_level" validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE"`
	Run           RunConfig        `yaml:"run"`
	Embeddings    EmbeddingsConfig `yaml:"embeddings"`
	Output        OutputConfig     `yaml:"output"`
	Database      DatabaseConfig   `yaml:"database"`
	Server        ServerConfig     `yaml:"server"`
}

// RunConfig holds the parameters of a benchmark run
type RunConfig struct {
	Suite           string   `yaml:"suite" validate:"required,oneof=seat weat"`
	Language        string   `yaml:"language" validate:"required"`
	Mode            string   `yaml:"mode" validate:"required,oneof=lang_spec trans"`
	Tests           []string `yaml:"tests"`
	NSamples        int      `yaml:"n_samples" validate:"gte=1"`
	Parametric      bool     `yaml:"parametric"`
	Seed            int64    `yaml:"seed"`
	EmbeddingModels []string `yaml:"embedding_models" validate:"min=1,dive,required"`
	ExperimentName  string   `yaml:"experiment_name"`
	BiasType        string   `yaml:"bias_type"`
	SeedInID        bool     `yaml:"seed_in_id"`
	Concurrency     int      `yaml:"concurrency" validate:"gte=1,lte=16"`
}

// EmbeddingsConfig locates the embedding models
type EmbeddingsConfig struct {
	GloVePath    string     `yaml:"glove_path"`
	MaxWords     int        `yaml:"max_words" validate:"gte=1"`
	FastTextPath string     `yaml:"fasttext_path"`
	ELMo         ELMoConfig `yaml:"elmo"`
}

// ELMoConfig configures the contextual encoding service
type ELMoConfig struct {
	Endpoint    string        `yaml:"endpoint" validate:"omitempty,url"`
	VectorsPath string        `yaml:"vectors_path"`
	Layer       int           `yaml:"layer" validate:"gte=0,lte=2"`
	Dimension   int           `yaml:"dimension" validate:"gte=0"`
	Token       string        `yaml:"-"`
	Timeout     time.Duration `yaml:"timeout"`
}

// OutputConfig controls where and how results are written
type OutputConfig struct {
	ResultsDir string   `yaml:"results_dir"`
	Formats    []string `yaml:"formats" validate:"min=1,dive,oneof=json xlsx markdown html"`
}

// DatabaseConfig holds database connection settings. Results are stored in
// the database only when URL is set.
type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections" validate:"gte=1"`
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		PersistentDir: ".",
		Run: RunConfig{
			Suite:           "seat",
			Language:        "hi",
			Mode:            "lang_spec",
			NSamples:        1000,
			Seed:            0,
			EmbeddingModels: []string{"glove"},
			Concurrency:     1,
		},
		Embeddings: EmbeddingsConfig{
			MaxWords: 500000,
			ELMo: ELMoConfig{
				VectorsPath: "vectors",
				Timeout:     60 * time.Second,
			},
		},
		Output: OutputConfig{
			Formats: []string{"json"},
		},
		Database: DatabaseConfig{
			MaxConnections: 4,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, a .env file in the working directory and SEAT_* environment
// variables, in that order, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse %s: %w", path, err))
		}
	}

	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.PersistentDir = getEnvOrDefault("SEAT_PERSISTENT_DIR", cfg.PersistentDir)
	cfg.LogLevel = strings.ToUpper(getEnvOrDefault("LOG_LEVEL", cfg.LogLevel))

	cfg.Run.Suite = getEnvOrDefault("SEAT_SUITE", cfg.Run.Suite)
	cfg.Run.Language = getEnvOrDefault("SEAT_LANGUAGE", cfg.Run.Language)
	cfg.Run.Mode = getEnvOrDefault("SEAT_MODE", cfg.Run.Mode)
	cfg.Run.Tests = getEnvListOrDefault("SEAT_TESTS", cfg.Run.Tests)
	cfg.Run.NSamples = getEnvIntOrDefault("SEAT_N_SAMPLES", cfg.Run.NSamples)
	cfg.Run.Parametric = getEnvBoolOrDefault("SEAT_PARAMETRIC", cfg.Run.Parametric)
	cfg.Run.Seed = int64(getEnvIntOrDefault("SEAT_SEED", int(cfg.Run.Seed)))
	cfg.Run.EmbeddingModels = getEnvListOrDefault("SEAT_EMBEDDING_MODEL", cfg.Run.EmbeddingModels)
	cfg.Run.Concurrency = getEnvIntOrDefault("SEAT_CONCURRENCY", cfg.Run.Concurrency)

	cfg.Embeddings.GloVePath = getEnvOrDefault("SEAT_GLOVE_PATH", cfg.Embeddings.GloVePath)
	cfg.Embeddings.MaxWords = getEnvIntOrDefault("SEAT_GLOVE_MAX_WORDS", cfg.Embeddings.MaxWords)
	cfg.Embeddings.FastTextPath = getEnvOrDefault("SEAT_FASTTEXT_PATH", cfg.Embeddings.FastTextPath)
	cfg.Embeddings.ELMo.Endpoint = getEnvOrDefault("SEAT_ELMO_ENDPOINT", cfg.Embeddings.ELMo.Endpoint)
	cfg.Embeddings.ELMo.Token = getEnvOrDefault("SEAT_ELMO_TOKEN", cfg.Embeddings.ELMo.Token)
	cfg.Embeddings.ELMo.Timeout = getEnvDurationOrDefault("SEAT_ELMO_TIMEOUT", cfg.Embeddings.ELMo.Timeout)

	cfg.Output.ResultsDir = getEnvOrDefault("SEAT_RESULTS_DIR", cfg.Output.ResultsDir)
	cfg.Output.Formats = getEnvListOrDefault("SEAT_OUTPUT_FORMATS", cfg.Output.Formats)

	cfg.Database.URL = getEnvOrDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Server.Addr = getEnvOrDefault("SEAT_ADDR", cfg.Server.Addr)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.ConfigInvalid(strings.Join(msgs, "; "))
		}
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// DataDir is where the run's test files live
func (c *Config) DataDir() string {
	return filepath.Join(c.PersistentDir, "data", c.Run.Suite, c.Run.Language, c.Run.Mode)
}

// WordDataDir is where word-level tests are read from when generating
// sentence-level ones
func (c *Config) WordDataDir() string {
	return filepath.Join(c.PersistentDir, "data", "weat", c.Run.Language, c.Run.Mode)
}

// TemplatesPath is the sentence templates file
func (c *Config) TemplatesPath() string {
	return filepath.Join(c.PersistentDir, "data", "seat", c.Run.Language, "templates.jsonl")
}

// ResultsDir is where result files are written
func (c *Config) ResultsDir() string {
	if c.Output.ResultsDir != "" {
		return c.Output.ResultsDir
	}
	return filepath.Join(c.PersistentDir, "results", c.Run.Suite, c.Run.Language, c.Run.Mode)
}

// GloVePath returns the configured vectors file or the conventional location
func (c *Config) GloVePath() string {
	if c.Embeddings.GloVePath != "" {
		return c.Embeddings.GloVePath
	}
	return filepath.Join(c.PersistentDir, "glove_models", c.Run.Language, "300", "glove",
		fmt.Sprintf("%s-d300-glove.txt", c.Run.Language))
}

// FastTextPath returns the configured model file or the conventional location
func (c *Config) FastTextPath() string {
	if c.Embeddings.FastTextPath != "" {
		return c.Embeddings.FastTextPath
	}
	return filepath.Join(c.PersistentDir, fmt.Sprintf("cc.%s.300.bin", c.Run.Language))
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma separated value
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
