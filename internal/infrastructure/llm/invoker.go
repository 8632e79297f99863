package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/okushnikov/structured-query/internal/infrastructure"
	"github.com/okushnikov/structured-query/pkg/llmclient"
)

const _systemPrompt = "You are a helpful assistant that returns ONLY JSON following the provided JSON schema. Do not include any additional commentary."

// Invoker adapts the chat-completions client to the ModelInvoker
// contract: strict json_schema response format, image bytes inlined as a
// base64 data URL.
type Invoker struct {
	client *llmclient.Client
	model  string
}

var _ infrastructure.ModelInvoker = (*Invoker)(nil)

func New(client *llmclient.Client, model string) *Invoker {
	return &Invoker{client: client, model: model}
}

func (i *Invoker) Model() string {
	return i.model
}

func (i *Invoker) Invoke(ctx context.Context, prompt string, schemaDescriptor []byte, image *infrastructure.ImageInput) ([]byte, error) {
	userContent := []llmclient.ContentPart{
		{Type: "text", Text: prompt},
	}

	if image != nil {
		encoded := base64.StdEncoding.EncodeToString(image.Data)
		userContent = append(userContent, llmclient.ContentPart{
			Type: "image_url",
			ImageURL: &llmclient.ImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", image.ContentType, encoded),
			},
		})
	}

	messages := []llmclient.Message{
		{Role: "system", Content: _systemPrompt},
		{Role: "user", Content: userContent},
	}

	format := &llmclient.ResponseFormat{
		Type: "json_schema",
		JSONSchema: llmclient.JSONSchema{
			Name:   "structured_output",
			Schema: schemaDescriptor,
			Strict: true,
		},
	}

	content, err := i.client.Complete(ctx, messages, format)
	if err != nil {
		return nil, fmt.Errorf("Invoker - Invoke - i.client.Complete: %w", err)
	}

	return []byte(content), nil
}
