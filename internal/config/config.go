package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingSetting = errors.New("missing setting")
	ErrInvalidSetting = errors.New("invalid setting")
)

// Role names the side of the tool a command runs as.
type Role int

const (
	RoleAdmin Role = iota
	RoleChat
	// RoleRegistry only reads the registry and needs storage alone.
	RoleRegistry
)

// ChunkerConfig configures how extracted text is split. A missing overlap
// means the default; an explicit 0 disables it.
type ChunkerConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
	// RequestsPerSecond limits embedding calls; 0 disables the limit.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// GeneratorConfig selects the model that answers questions. A missing
// temperature means the default; an explicit 0 is kept.
type GeneratorConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
}

// StorageConfig selects where artifacts and the registry live.
type StorageConfig struct {
	Type         string `yaml:"type"` // "s3" or "local"
	IndexFolder  string `yaml:"index_folder"`
	LocalRoot    string `yaml:"local_root"`
	CacheDir     string `yaml:"cache_dir"`
	RegistryFile string `yaml:"registry_file"`
}

// RetrievalConfig sets how many chunks back each answer.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// SummaryConfig sizes the extractive summary stored with each index.
type SummaryConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// UIConfig lists the choices offered on the admin screen.
type UIConfig struct {
	Branches []string `yaml:"branches"`
	Years    []string `yaml:"years"`
}

// LogConfig selects the log level, format and the file the screens log to.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Summary   SummaryConfig   `yaml:"summary"`
	UI        UIConfig        `yaml:"ui"`
	Log       LogConfig       `yaml:"log"`
}

// Credentials come from the environment, never from the YAML file.
type Credentials struct {
	AWSAccessKey  string
	AWSSecretKey  string
	Bucket        string
	Region        string
	S3Endpoint    string
	GoogleAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// Config is everything a command needs, built once at startup.
type Config struct {
	App         *AppConfig
	Credentials Credentials
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/syllabus-rag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadCredentials loads envFile into the environment when it exists and
// reads the credential variables.
func LoadCredentials(envFile string) (Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return Credentials{
		AWSAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		AWSSecretKey:  getEnv("AWS_SECRET_KEY", ""),
		Bucket:        getEnv("BUCKET_NAME", ""),
		Region:        getEnv("REGION", "us-east-1"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		GoogleAPIKey:  getEnv("GOOGLE_API_KEY", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
	}, nil
}

// Validate checks that every setting the role depends on is present.
// Admin needs storage and the embedder; chat additionally needs the
// generator.
func (c *Config) Validate(role Role) error {
	var missing []string
	app, creds := c.App, c.Credentials

	switch app.Storage.Type {
	case "s3":
		if creds.Bucket == "" {
			missing = append(missing, "BUCKET_NAME")
		}
		if creds.AWSAccessKey == "" {
			missing = append(missing, "AWS_ACCESS_KEY")
		}
		if creds.AWSSecretKey == "" {
			missing = append(missing, "AWS_SECRET_KEY")
		}
	case "local":
		if app.Storage.LocalRoot == "" {
			missing = append(missing, "storage.local_root")
			break
		}
		if within(app.Storage.CacheDir, app.Storage.LocalRoot) {
			return fmt.Errorf("%w: storage.cache_dir %q must be outside storage.local_root %q",
				ErrInvalidSetting, app.Storage.CacheDir, app.Storage.LocalRoot)
		}
	default:
		return fmt.Errorf("unknown storage type %q", app.Storage.Type)
	}

	var providers []string
	switch role {
	case RoleAdmin:
		providers = []string{app.Embedder.Provider}
	case RoleChat:
		providers = []string{app.Embedder.Provider, app.Generator.Provider}
	}
	for _, p := range providers {
		switch p {
		case "gemini":
			if creds.GoogleAPIKey == "" {
				missing = appendOnce(missing, "GOOGLE_API_KEY")
			}
		case "openai":
			if creds.OpenAIAPIKey == "" {
				missing = appendOnce(missing, "OPENAI_API_KEY")
			}
		default:
			return fmt.Errorf("unknown provider %q", p)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}

// within reports whether dir is root or lies under it.
func within(dir, root string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "syllabus-rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.Size <= 0 {
		cfg.Chunker.Size = 10000
	}
	if cfg.Chunker.Overlap == nil {
		cfg.Chunker.Overlap = ptr(1000)
	}

	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "gemini"
	}
	if cfg.Embedder.Model == "" {
		switch cfg.Embedder.Provider {
		case "openai":
			cfg.Embedder.Model = "text-embedding-3-small"
		default:
			cfg.Embedder.Model = "text-embedding-004"
		}
	}

	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = "gemini"
	}
	if cfg.Generator.Model == "" {
		switch cfg.Generator.Provider {
		case "openai":
			cfg.Generator.Model = "gpt-4o-mini"
		default:
			cfg.Generator.Model = "gemini-2.5-flash"
		}
	}
	if cfg.Generator.Temperature == nil {
		cfg.Generator.Temperature = ptr(0.3)
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "s3"
	}
	if cfg.Storage.IndexFolder == "" {
		cfg.Storage.IndexFolder = "faiss_index"
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = "."
	}
	if cfg.Storage.RegistryFile == "" {
		cfg.Storage.RegistryFile = "metadata.json"
	}

	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Summary.MaxSentences <= 0 {
		cfg.Summary.MaxSentences = 3
	}

	if len(cfg.UI.Branches) == 0 {
		cfg.UI.Branches = []string{"CSE", "EEE", "ECE", "MECH"}
	}
	if len(cfg.UI.Years) == 0 {
		cfg.UI.Years = []string{"2022-23", "2023-24", "2024-25"}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "syllabus-rag.log"
	}
}

func ptr[T any](v T) *T { return &v }
