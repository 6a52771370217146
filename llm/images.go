// Image generation via the OpenAI Images API (DALL-E).

package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoImageURL is returned when the provider answers without an image URL.
var ErrNoImageURL = errors.New("image URL is undefined")

// OpenAIImageGenerator implements ImageGenerator with go-openai.
type OpenAIImageGenerator struct {
	client *openai.Client
	model  string
	size   string
}

// NewImageGenerator creates a DALL-E image generator producing one
// 1024x1024 image per request.
func NewImageGenerator(config openai.ClientConfig, model string) *OpenAIImageGenerator {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIImageGenerator{
		client: openai.NewClientWithConfig(config),
		model:  model,
		size:   openai.CreateImageSize1024x1024,
	}
}

// GenerateImage returns the URL of a single generated image.
func (g *OpenAIImageGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "generate image")
	defer span.End()

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		N:              1,
		Size:           g.size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", ErrNoImageURL
	}
	return resp.Data[0].URL, nil
}

var _ ImageGenerator = (*OpenAIImageGenerator)(nil)
