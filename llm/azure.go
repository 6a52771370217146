// Azure OpenAI configuration for the go-openai client.
//
// Information Hiding:
// - Deployment-based URL routing (model name -> deployment)
// - api-key header authentication and api-version pinning

package llm

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultAzureAPIVersion is used when no version is configured.
const DefaultAzureAPIVersion = "2024-02-01"

// AzureConfig identifies one Azure OpenAI deployment.
type AzureConfig struct {
	APIKey     string
	Endpoint   string // https://<instance>.openai.azure.com
	APIVersion string
	Deployment string
}

// AzureEndpoint builds the endpoint URL for an Azure OpenAI resource name.
// Values that already look like URLs are returned unchanged.
func AzureEndpoint(instance string) string {
	if strings.HasPrefix(instance, "http://") || strings.HasPrefix(instance, "https://") {
		return strings.TrimSuffix(instance, "/")
	}
	return fmt.Sprintf("https://%s.openai.azure.com", instance)
}

// ClientConfig returns a traced go-openai configuration that routes every
// request to the configured deployment.
func (c AzureConfig) ClientConfig() openai.ClientConfig {
	config := openai.DefaultAzureConfig(c.APIKey, c.Endpoint)
	config.APIVersion = c.APIVersion
	if config.APIVersion == "" {
		config.APIVersion = DefaultAzureAPIVersion
	}
	deployment := c.Deployment
	config.AzureModelMapperFunc = func(model string) string {
		if deployment != "" {
			return deployment
		}
		return model
	}
	config.HTTPClient = tracedHTTPClient()
	return config
}

// Validate reports missing settings.
func (c AzureConfig) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "api key")
	}
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Deployment == "" {
		missing = append(missing, "deployment")
	}
	if len(missing) > 0 {
		return fmt.Errorf("azure openai: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// NewAzureProvider creates a chat provider backed by an Azure OpenAI deployment.
func NewAzureProvider(cfg AzureConfig, maxTokens uint32, temperature float32) *OpenAIProvider {
	return NewOpenAICompatibleProvider("azure", cfg.ClientConfig(), cfg.Deployment, maxTokens, temperature)
}
