package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tawandam/policy-assistant/internal/config"
	"github.com/tawandam/policy-assistant/internal/core/ports"
	"github.com/tawandam/policy-assistant/internal/core/prompts"
	"github.com/tawandam/policy-assistant/internal/core/usecase"
	"github.com/tawandam/policy-assistant/internal/infrastructure/chunking"
	"github.com/tawandam/policy-assistant/internal/infrastructure/embedding/openai"
	"github.com/tawandam/policy-assistant/internal/infrastructure/extractor"
	"github.com/tawandam/policy-assistant/internal/infrastructure/llm/groq"
	"github.com/tawandam/policy-assistant/internal/infrastructure/queue/nats"
	"github.com/tawandam/policy-assistant/internal/infrastructure/repository/postgres"
	"github.com/tawandam/policy-assistant/internal/infrastructure/resilience"
	"github.com/tawandam/policy-assistant/internal/infrastructure/search/tavily"
	"github.com/tawandam/policy-assistant/internal/infrastructure/storage/localfs"
	"github.com/tawandam/policy-assistant/internal/infrastructure/vector/chroma"
	"github.com/tawandam/policy-assistant/internal/infrastructure/vector/chromem"
	"github.com/tawandam/policy-assistant/internal/observability/metrics"
)

// App wires every client once per process; handlers share them across
// requests.
type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Store     ports.VectorStore
	ChatUC    ports.ChatService
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

// Options selects which parts of the dependency graph a binary needs.
type Options struct {
	ServerMetrics *metrics.HTTPServerMetrics
	Logger        *slog.Logger
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	groqClient := groq.New(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqGenModel, cfg.GroqClassifierModel, executor)
	if opts.ServerMetrics != nil {
		serverMetrics := opts.ServerMetrics
		groqClient.SetUsageObserver(func(model string, promptTokens, completionTokens int) {
			serverMetrics.RecordTokenUsage("api", model, promptTokens, completionTokens)
		})
	}
	classifier := groq.NewClassifier(groqClient)
	generator := groq.NewGenerator(groqClient)

	embedder := NewQueryEmbedder(cfg)
	store, err := NewVectorStore(cfg, embedder)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	searcher := webSearcher(cfg, opts.ServerMetrics)

	promptLibrary, err := prompts.Load(cfg.PersonaConfigPath, cfg.Persona)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load personas: %w", err)
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	docExtractor := extractor.New(storage)

	chatUC := usecase.NewChatUseCase(classifier, store, searcher, generator, promptLibrary, usecase.ChatConfig{
		TopK:               cfg.RAGTopK,
		RelevanceThreshold: cfg.RelevanceThreshold,
		HistoryWindow:      cfg.HistoryWindow,
		WebSearchResults:   cfg.WebSearchResults,
	}, logger)
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, docExtractor, chunker, store)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Store:  store,

		ChatUC:    chatUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewQueryEmbedder returns the OpenAI-compatible embedder when configured,
// else nil; the Chroma backend then embeds server-side and the embedded
// backend falls back to its local hash embedding.
func NewQueryEmbedder(cfg config.Config) ports.Embedder {
	if cfg.EmbeddingAPIKey == "" {
		return nil
	}
	return openai.New(cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)
}

// NewVectorStore selects the chunk corpus backend. The ingestion CLI uses it
// without the rest of the dependency graph.
func NewVectorStore(cfg config.Config, embedder ports.Embedder) (ports.VectorStore, error) {
	switch cfg.VectorBackend {
	case "chroma":
		return chroma.New(chroma.Options{
			BaseURL:    cfg.ChromaURL,
			APIKey:     cfg.ChromaAPIKey,
			Tenant:     cfg.ChromaTenant,
			Database:   cfg.ChromaDatabase,
			Collection: cfg.ChromaCollection,
			Embedder:   embedder,
		}), nil
	case "chromem":
		store, err := chromem.New(cfg.ChromaCollection, embedder)
		if err != nil {
			return nil, fmt.Errorf("init embedded vector store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// webSearcher returns nil when no API key is configured; the chat pipeline
// then skips the web branch entirely.
func webSearcher(cfg config.Config, serverMetrics *metrics.HTTPServerMetrics) ports.WebSearcher {
	if cfg.TavilyAPIKey == "" {
		return nil
	}
	client := tavily.New(cfg.TavilyBaseURL, cfg.TavilyAPIKey)
	if serverMetrics == nil {
		return client
	}
	return &instrumentedSearcher{next: client, metrics: serverMetrics}
}

type instrumentedSearcher struct {
	next    ports.WebSearcher
	metrics *metrics.HTTPServerMetrics
}

func (s *instrumentedSearcher) Search(ctx context.Context, query string, maxResults int) (string, error) {
	formatted, err := s.next.Search(ctx, query, maxResults)
	s.metrics.RecordWebSearch("api", err)
	return formatted, err
}
