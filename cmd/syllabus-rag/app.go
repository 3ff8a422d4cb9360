package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"syllabus-rag/internal/chunker"
	"syllabus-rag/internal/config"
	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/logger"
	"syllabus-rag/internal/objectstore"
	"syllabus-rag/internal/objectstore/localfs"
	s3store "syllabus-rag/internal/objectstore/s3"
	"syllabus-rag/internal/pdftext"
	"syllabus-rag/internal/provider/gemini"
	openaiprov "syllabus-rag/internal/provider/openai"
	"syllabus-rag/internal/registry"
	"syllabus-rag/internal/service"
	"syllabus-rag/internal/summarizer"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	objects   objectstore.Store
	registry  *registry.Store
	embedder  domain.Embedder
	generator domain.Generator
	closers   []io.Closer
}

// logTarget picks where log lines go.
type logTarget int

const (
	logToStderr logTarget = iota
	logToFile
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	var (
		appCfg *config.AppConfig
		err    error
	)
	if path == "" {
		appCfg, _, err = config.LoadDefault()
	} else {
		appCfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	creds, err := config.LoadCredentials(envFile)
	if err != nil {
		return nil, err
	}
	return &config.Config{App: appCfg, Credentials: creds}, nil
}

// newApp validates the config for role and assembles the components it needs.
func newApp(cmd *cobra.Command, role config.Role, target logTarget) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(role); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	if err := a.setupLogger(cmd, target); err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	if a.objects, err = buildObjectStore(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	a.registry = registry.NewStore(a.objects,
		registry.WithLocalPath(cfg.App.Storage.RegistryFile),
		registry.WithLogger(a.logger),
	)
	if role == config.RoleRegistry {
		return a, nil
	}

	if a.embedder, err = buildEmbedder(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if role == config.RoleChat {
		if a.generator, err = buildGenerator(ctx, cfg); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) setupLogger(cmd *cobra.Command, target logTarget) error {
	level, err := logger.ParseLevel(a.cfg.App.Log.Level)
	if err != nil {
		return err
	}
	var out io.Writer = cmd.ErrOrStderr()
	if target == logToFile {
		f, err := logger.OpenFile(a.cfg.App.Log.File)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, f)
		out = f
	}
	a.logger = logger.New(logger.Config{Level: level, Format: a.cfg.App.Log.Format, Output: out})
	return nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}

func (a *app) ingester() *service.Ingester {
	c := a.cfg.App
	return service.NewIngester(
		pdftext.NewExtractor(),
		chunker.NewRecursiveChunker(c.Chunker.Size, *c.Chunker.Overlap),
		a.embedder,
		summarizer.NewFrequencySummarizer(),
		a.objects,
		a.registry,
		service.WithIngestLogger(a.logger),
		service.WithIngestIndexFolder(c.Storage.IndexFolder),
		service.WithBatchSize(c.Embedder.BatchSize),
		service.WithRateLimit(c.Embedder.RequestsPerSecond),
		service.WithSummarySentences(c.Summary.MaxSentences),
	)
}

func (a *app) answerer() *service.Answerer {
	c := a.cfg.App
	return service.NewAnswerer(a.objects, a.embedder, a.generator,
		service.WithAnswerLogger(a.logger),
		service.WithAnswerIndexFolder(c.Storage.IndexFolder),
		service.WithCacheDir(c.Storage.CacheDir),
		service.WithTopK(c.Retrieval.TopK),
	)
}

func buildObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.App.Storage.Type {
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.Credentials.Bucket,
			Region:    cfg.Credentials.Region,
			AccessKey: cfg.Credentials.AWSAccessKey,
			SecretKey: cfg.Credentials.AWSSecretKey,
			Endpoint:  cfg.Credentials.S3Endpoint,
		})
	case "local":
		if err := os.MkdirAll(cfg.App.Storage.LocalRoot, 0o755); err != nil {
			return nil, err
		}
		return localfs.New(cfg.App.Storage.LocalRoot)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.App.Storage.Type)
	}
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (domain.Embedder, error) {
	e := cfg.App.Embedder
	switch e.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Credentials.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		return gemini.NewEmbedder(client, e.Model), nil
	case "openai":
		client, err := openaiprov.NewClient(openaiprov.Config{
			APIKey:  cfg.Credentials.OpenAIAPIKey,
			BaseURL: cfg.Credentials.OpenAIBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return openaiprov.NewEmbedder(client, e.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", e.Provider)
	}
}

func buildGenerator(ctx context.Context, cfg *config.Config) (domain.Generator, error) {
	g := cfg.App.Generator
	switch g.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Credentials.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		return gemini.NewGenerator(client, g.Model, *g.Temperature), nil
	case "openai":
		client, err := openaiprov.NewClient(openaiprov.Config{
			APIKey:  cfg.Credentials.OpenAIAPIKey,
			BaseURL: cfg.Credentials.OpenAIBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return openaiprov.NewGenerator(client, g.Model, *g.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", g.Provider)
	}
}
