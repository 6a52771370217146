package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/richinex/anko/llm"
)

const researchPrompt = `You are a research assistant for a fashion and lifestyle retailer. Given a topic, summarize what is trending right now.

Instructions:
1. Focus on the current season and year. Name specific styles, products, materials or brands.
2. Summarize key trends, new developments, popular items and expert opinions. Include statistics when you know them.
3. Stay neutral and factual. Do not use marketing language and do not speculate.
4. Organize the answer as a short introduction followed by a numbered list.
5. If the topic is unclear or you cannot find specific information, reply exactly:
"I could not find sufficient information on this topic at this time."

Research Topic: %s`

// ResearchTool answers a trend research question with a dedicated prompt
// sent to the chat model.
type ResearchTool struct {
	client *llm.Client
}

// NewResearchTool creates the product trends research tool.
func NewResearchTool(client *llm.Client) *ResearchTool {
	return &ResearchTool{client: client}
}

// ResearchPrompt renders the research prompt for topic.
func ResearchPrompt(topic string) string {
	return fmt.Sprintf(researchPrompt, topic)
}

func (t *ResearchTool) Kind() Kind { return KindProductTrends }

func (t *ResearchTool) Metadata() Metadata {
	return Metadata{
		Name: KindProductTrends.String(),
		Description: "Conducts research on the latest trends related to a product or category. " +
			"Returns a summary of the latest trends in text format.",
		Parameters: InputSchema(),
		Fallback:   ResearchFallback,
	}
}

func (t *ResearchTool) Invoke(ctx context.Context, input string) (string, error) {
	topic := strings.TrimSpace(input)
	if topic == "" {
		return "", Permanent(fmt.Errorf("research topic is empty"))
	}

	answer, err := t.client.Chat(ctx, []llm.ChatMessage{llm.SystemMessage(ResearchPrompt(topic))})
	if err != nil {
		return "", modelError(ctx, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("research returned an empty answer")
	}
	return answer, nil
}
