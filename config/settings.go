// Package config provides application settings loaded from an optional YAML
// file and environment variables.
//
// Settings are created via Load() which handles:
// - Config file discovery and ${VAR} expansion
// - Environment variable parsing with validation (environment wins)
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig     `yaml:"llm"`
	Azure   AzureConfig   `yaml:"azure"`
	Agent   AgentConfig   `yaml:"agent"`
	Tools   ToolsConfig   `yaml:"tools"`
	Search  SearchConfig  `yaml:"search"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	MaxTokens   uint32  `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// AzureConfig identifies the Azure OpenAI resource and its deployments.
type AzureConfig struct {
	APIKey               string `yaml:"api_key"`
	APIVersion           string `yaml:"api_version"`
	Instance             string `yaml:"instance"`
	Deployment           string `yaml:"deployment"`
	ImageDeployment      string `yaml:"image_deployment"`
	EmbeddingsDeployment string `yaml:"embeddings_deployment"`
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxIterations    int `yaml:"max_iterations"`
	ModelRetries     int `yaml:"model_retries"`
	ModelTimeoutSecs int `yaml:"model_timeout_secs"`
}

// ToolsConfig holds tool execution configuration.
type ToolsConfig struct {
	MaxRetries  uint32 `yaml:"max_retries"`
	TimeoutSecs uint64 `yaml:"timeout_secs"`
	CatalogTopK int    `yaml:"catalog_top_k"`
}

// SearchConfig holds web search configuration.
type SearchConfig struct {
	TavilyKey string `yaml:"tavily_key"`
}

// StorageConfig holds the SQLite database location.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Listen         string `yaml:"listen"`
	SessionIdleMin int    `yaml:"session_idle_minutes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"azure":     {"AZURE_OPENAI_API_DEPLOYMENT_NAME", "gpt-4o", "AZURE_OPENAI_API_KEY"},
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"azure-openai": "azure",
	"claude":       "anthropic",
	"google":       "gemini",
	"gpt":          "openai",
}

// DefaultConfigFile is looked up in the working directory when no explicit
// path is given.
const DefaultConfigFile = "anko.yaml"

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    "azure",
			MaxTokens:   4096,
			Temperature: 0,
		},
		Azure: AzureConfig{
			APIVersion:      "2024-02-01",
			ImageDeployment: "dalle3",
		},
		Agent: AgentConfig{
			MaxIterations:    10,
			ModelRetries:     3,
			ModelTimeoutSecs: 120,
		},
		Tools: ToolsConfig{
			MaxRetries:  3,
			TimeoutSecs: 30,
			CatalogTopK: 4,
		},
		Storage: StorageConfig{Path: ".anko/anko.db"},
		Server:  ServerConfig{Listen: ":4242", SessionIdleMin: 60},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise DefaultConfigFile is used when present. An empty result with a
// nil error means no file.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	}
	return "", nil
}

// Load builds settings from defaults, the config file (if any) and the
// environment, in increasing order of precedence.
func Load(path string) (Settings, error) {
	settings := Default()

	file, err := FindConfig(path)
	if err != nil {
		return Settings{}, err
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &settings); err != nil {
			return Settings{}, fmt.Errorf("parse config %s: %w", file, err)
		}
	}

	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// New creates settings for the specified provider from the environment only.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	settings := Default()
	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}
	settings.LLM.Provider = normalizeProvider(provider)
	settings.LLM.Model = ""
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate normalizes the provider, fills in its default model and checks
// numeric bounds.
func (s *Settings) Validate() error {
	s.LLM.Provider = normalizeProvider(s.LLM.Provider)
	if s.LLM.Model == "" {
		model, err := ModelFor(s.LLM.Provider)
		if err != nil {
			return err
		}
		s.LLM.Model = model
	} else if _, err := getProviderInfo(s.LLM.Provider); err != nil {
		return err
	}

	var errs []error
	if s.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be at least 1"))
	}
	if s.Agent.ModelRetries < 1 {
		errs = append(errs, fmt.Errorf("agent.model_retries must be at least 1"))
	}
	if s.Agent.ModelTimeoutSecs < 1 {
		errs = append(errs, fmt.Errorf("agent.model_timeout_secs must be at least 1"))
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2"))
	}
	if _, err := ParseLogLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// APIKey returns the API key of the configured provider.
func (s Settings) APIKey() (string, error) {
	if s.LLM.Provider == "azure" && s.Azure.APIKey != "" {
		return s.Azure.APIKey, nil
	}
	return APIKeyFor(s.LLM.Provider)
}

func applyEnv(s *Settings) error {
	var err error
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&s.LLM.Provider, "LLM_PROVIDER")
	setString(&s.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	setString(&s.Azure.APIVersion, "AZURE_OPENAI_API_VERSION")
	setString(&s.Azure.Instance, "AZURE_OPENAI_API_INSTANCE_NAME")
	setString(&s.Azure.Deployment, "AZURE_OPENAI_API_DEPLOYMENT_NAME")
	setString(&s.Azure.ImageDeployment, "AZURE_OPENAI_IMAGE_DEPLOYMENT_NAME")
	setString(&s.Azure.EmbeddingsDeployment, "AZURE_OPENAI_EMBEDDINGS_DEPLOYMENT_NAME")
	setString(&s.Search.TavilyKey, "TAVILY_KEY")
	setString(&s.Storage.Path, "ANKO_DB_PATH")
	setString(&s.Server.Listen, "ANKO_LISTEN")
	setString(&s.Log.Level, "LOG_LEVEL")
	setString(&s.Log.Format, "LOG_FORMAT")

	if s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", s.LLM.MaxTokens); err != nil {
		return err
	}
	if s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", s.LLM.Temperature); err != nil {
		return err
	}
	if s.Agent.MaxIterations, err = getEnvInt("AGENT_MAX_ITERATIONS", s.Agent.MaxIterations); err != nil {
		return err
	}
	if s.Agent.ModelRetries, err = getEnvInt("AGENT_MODEL_RETRIES", s.Agent.ModelRetries); err != nil {
		return err
	}
	if s.Agent.ModelTimeoutSecs, err = getEnvInt("AGENT_MODEL_TIMEOUT_SECS", s.Agent.ModelTimeoutSecs); err != nil {
		return err
	}
	if s.Tools.MaxRetries, err = getEnvUint32("TOOL_MAX_RETRIES", s.Tools.MaxRetries); err != nil {
		return err
	}
	timeout, err := getEnvUint32("TOOL_TIMEOUT_SECS", uint32(s.Tools.TimeoutSecs))
	if err != nil {
		return err
	}
	s.Tools.TimeoutSecs = uint64(timeout)
	return nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	return []string{"azure", "openai", "anthropic", "gemini"}
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
