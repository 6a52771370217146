// Service wiring for CLI commands and the API server.
//
// Information Hiding:
// - Provider selection and credential lookup hidden
// - Azure deployment routing for chat, images and embeddings hidden
// - Tool registration order and optional-backend handling hidden

package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/anko/agent"
	"github.com/richinex/anko/config"
	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/search"
	"github.com/richinex/anko/storage"
	"github.com/richinex/anko/tools"
)

// AgentName identifies the retail assistant in logs and traces.
const AgentName = "anko"

// Services holds every long-lived dependency of the assistant.
// Optional backends are nil when their credentials are missing.
type Services struct {
	Settings config.Settings
	Logger   *slog.Logger

	Provider llm.Provider
	Images   llm.ImageGenerator
	Embedder llm.Embedder
	Search   search.Provider

	DB       *storage.DB
	Products *storage.ProductStore
	Designs  *storage.DesignStore

	Registry *tools.Registry
}

// NewServices opens the database and builds providers and tools from settings.
func NewServices(settings config.Settings, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := createProvider(settings)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(settings.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Services{
		Settings: settings,
		Logger:   logger,
		Provider: provider,
		DB:       db,
		Products: storage.NewProductStore(db),
		Designs:  storage.NewDesignStore(db),
	}

	if cfg, ok := openAIConfig(settings, settings.Azure.ImageDeployment); ok {
		s.Images = llm.NewImageGenerator(cfg, "")
	}
	if cfg, ok := openAIConfig(settings, settings.Azure.EmbeddingsDeployment); ok {
		s.Embedder = llm.NewEmbedder(cfg, "")
	}
	if settings.Search.TavilyKey != "" {
		s.Search = search.NewTavily(search.TavilyConfig{APIKey: settings.Search.TavilyKey})
	}

	registry, err := s.buildRegistry()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.Registry = registry
	return s, nil
}

// NewAgent creates the retail assistant over the shared services.
func (s *Services) NewAgent() *agent.Agent {
	cfg := agent.NewBuilder(AgentName).
		SystemPrompt(SystemPrompt).
		MaxIterations(s.Settings.Agent.MaxIterations).
		ModelRetries(s.Settings.Agent.ModelRetries).
		ModelTimeout(time.Duration(s.Settings.Agent.ModelTimeoutSecs) * time.Second).
		Build()

	a := agent.New(cfg, s.Provider, s.Registry).WithLogger(s.Logger)
	if _, err := s.Registry.Get(tools.KindProductCatalog); err == nil {
		a = a.WithResources(s.Products)
	}
	return a
}

// Close releases the database.
func (s *Services) Close() error {
	return s.DB.Close()
}

func (s *Services) buildRegistry() (*tools.Registry, error) {
	executor := tools.NewExecutor(tools.ToolConfig{
		TimeoutSecs: s.Settings.Tools.TimeoutSecs,
		MaxRetries:  s.Settings.Tools.MaxRetries,
	}, s.Logger)
	registry := tools.NewRegistry(executor)

	var all []tools.Tool
	if s.Search != nil {
		all = append(all, tools.NewTrendSearchTool(s.Search))
	} else {
		s.Logger.Warn("trend search disabled", "reason", "TAVILY_KEY not set")
	}
	if s.Images != nil {
		all = append(all, tools.NewImageTool(s.Images))
	} else {
		s.Logger.Warn("image generation disabled", "reason", "no Azure or OpenAI credentials")
	}
	all = append(all, tools.NewResearchTool(llm.NewClient(s.Provider)))
	if s.Embedder != nil {
		all = append(all, tools.NewCatalogTool(s.Embedder, s.Products, s.Settings.Tools.CatalogTopK))
	} else {
		s.Logger.Warn("product catalog disabled", "reason", "no embeddings deployment")
	}

	for _, t := range all {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", t.Metadata().Name, err)
		}
	}
	return registry, nil
}

// createProvider builds the chat provider named in settings.
func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	builder := llm.NewProviderBuilder(providerType).
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature))

	if providerType == llm.ProviderAzure {
		builder = builder.Azure(azureConfig(settings, settings.Azure.Deployment))
	}

	key, err := settings.APIKey()
	if err != nil {
		return nil, err
	}
	return builder.APIKey(key)
}

func azureConfig(settings config.Settings, deployment string) llm.AzureConfig {
	cfg := llm.AzureConfig{
		APIKey:     settings.Azure.APIKey,
		APIVersion: settings.Azure.APIVersion,
		Deployment: deployment,
	}
	if settings.Azure.Instance != "" {
		cfg.Endpoint = llm.AzureEndpoint(settings.Azure.Instance)
	}
	return cfg
}

// openAIConfig returns the client configuration for an auxiliary
// deployment: Azure when the resource is configured, plain OpenAI otherwise.
func openAIConfig(settings config.Settings, deployment string) (openai.ClientConfig, bool) {
	if deployment != "" {
		cfg := azureConfig(settings, deployment)
		if err := cfg.Validate(); err == nil {
			return cfg.ClientConfig(), true
		}
	}
	if key := os.Getenv(llm.ProviderOpenAI.EnvVar()); key != "" {
		return llm.OpenAIClientConfig(key), true
	}
	return openai.ClientConfig{}, false
}

// ErrNoEmbedder is returned by catalog commands when no embeddings
// deployment is configured.
var ErrNoEmbedder = errors.New("no embeddings deployment configured (set AZURE_OPENAI_EMBEDDINGS_DEPLOYMENT_NAME or OPENAI_API_KEY)")
