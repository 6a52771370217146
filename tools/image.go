package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/anko/llm"
)

// ImageTool generates a design image from a text description.
type ImageTool struct {
	generator llm.ImageGenerator
}

// NewImageTool creates the image generation tool.
func NewImageTool(generator llm.ImageGenerator) *ImageTool {
	return &ImageTool{generator: generator}
}

func (t *ImageTool) Kind() Kind { return KindImageGeneration }

func (t *ImageTool) Metadata() Metadata {
	return Metadata{
		Name: KindImageGeneration.String(),
		Description: "Generates an image based on a specific user request using the DALL-E API. " +
			"Returns the URL of the generated image.",
		Parameters: InputSchema(),
		Fallback:   ImageFallback,
	}
}

// Invoke returns {"image_url": "<url>"}.
func (t *ImageTool) Invoke(ctx context.Context, input string) (string, error) {
	prompt := strings.TrimSpace(input)
	if prompt == "" {
		return "", Permanent(fmt.Errorf("image description is empty"))
	}

	url, err := t.generator.GenerateImage(ctx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrNoImageURL) {
			return "", Permanent(err)
		}
		return "", err
	}
	if url == "" {
		return "", Permanent(llm.ErrNoImageURL)
	}

	out, err := json.Marshal(map[string]string{"image_url": url})
	if err != nil {
		return "", Permanent(err)
	}
	return string(out), nil
}
