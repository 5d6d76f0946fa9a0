package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"

	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"

	defaultOpenAIModel    = "gpt-4o"
	defaultGroqModel      = "llama-3.3-70b-versatile"
	defaultVisionModel    = "gpt-4o"
	defaultMaxAttempts    = 10
	defaultServiceBackoff = time.Second
	defaultOutputDir      = "./output"
	defaultDebugLog       = "debug.log"
	defaultCompletionDB   = "./completions.db"
	defaultGCSPrefix      = "scenes"
)

// ErrMissingCredential is returned by Load when the selected provider has no API key.
var ErrMissingCredential = errors.New("missing API credential")

type Config struct {
	OpenAIAPIKey string `yaml:"-"`
	GroqAPIKey   string `yaml:"-"`
	Debug        bool   `yaml:"-"`

	Provider    string           `yaml:"provider"` // "openai" or "groq"
	PromptsPath string           `yaml:"prompts_path"`
	LLM         LLMConfig        `yaml:"llm"`
	Generation  GenerationConfig `yaml:"generation"`
	Output      OutputConfig     `yaml:"output"`
	GCS         GCSConfig        `yaml:"gcs"`
	Logging     LoggingConfig    `yaml:"logging"`
	Secrets     SecretsConfig    `yaml:"secrets"`
}

type LLMConfig struct {
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type GenerationConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	ServiceBackoff time.Duration `yaml:"service_backoff"`
	ControlMode    bool          `yaml:"control_mode"`
	DisableSave    bool          `yaml:"disable_save"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type GCSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

type LoggingConfig struct {
	DebugFile    string `yaml:"debug_file"`
	CompletionDB string `yaml:"completion_db"`
}

// SecretsConfig names Secret Manager versions used when the matching
// environment variable is empty, e.g. "projects/p/secrets/openai/versions/latest".
type SecretsConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
}

// SecretAccessor resolves a Secret Manager version name to its payload.
type SecretAccessor func(ctx context.Context, name string) (string, error)

// Load reads .env, the YAML file at path (config.yaml when empty) and the
// environment, applies defaults and fails fast when the provider credential
// is missing.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWith(ctx, path, accessSecretManager)
}

func LoadWith(ctx context.Context, path string, secrets SecretAccessor) (*Config, error) {
	cfg, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}

	if err := resolveSecrets(ctx, cfg, secrets); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadSettings reads configuration without resolving or checking
// credentials. Commands that never call a provider use it.
func LoadSettings(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := &Config{
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		Debug:        os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true",
	}

	if err := loadYAMLConfig(path, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func loadYAMLConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No config file found, using defaults", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCENEGEN_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("SCENEGEN_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SCENEGEN_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
}

func applyDefaults(cfg *Config) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	applyLLMDefaults(cfg)
	applyGenerationDefaults(cfg)

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaultOutputDir
	}
	if cfg.GCS.Prefix == "" {
		cfg.GCS.Prefix = defaultGCSPrefix
	}
	if cfg.Logging.DebugFile == "" {
		cfg.Logging.DebugFile = defaultDebugLog
	}
	if cfg.Logging.CompletionDB == "" {
		cfg.Logging.CompletionDB = defaultCompletionDB
	}
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Model == "" {
		if cfg.Provider == ProviderGroq {
			cfg.LLM.Model = defaultGroqModel
		} else {
			cfg.LLM.Model = defaultOpenAIModel
		}
	}
	if cfg.LLM.VisionModel == "" {
		cfg.LLM.VisionModel = defaultVisionModel
	}
}

func applyGenerationDefaults(cfg *Config) {
	if cfg.Generation.MaxAttempts <= 0 {
		cfg.Generation.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Generation.ServiceBackoff <= 0 {
		cfg.Generation.ServiceBackoff = defaultServiceBackoff
	}
}

func resolveSecrets(ctx context.Context, cfg *Config, access SecretAccessor) error {
	if cfg.OpenAIAPIKey != "" || cfg.Secrets.OpenAIAPIKey == "" || access == nil {
		return nil
	}

	key, err := access(ctx, cfg.Secrets.OpenAIAPIKey)
	if err != nil {
		return fmt.Errorf("resolve OpenAI key from secret manager: %w", err)
	}
	cfg.OpenAIAPIKey = strings.TrimSpace(key)
	return nil
}

// Validate checks that the selected provider is known and has a credential.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential)
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("%w: set GROQ_API_KEY", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if c.GCS.Enabled && c.GCS.Bucket == "" {
		return errors.New("gcs.enabled requires gcs.bucket")
	}
	return nil
}

func accessSecretManager(ctx context.Context, name string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("access secret version: %w", err)
	}
	return string(resp.GetPayload().GetData()), nil
}
