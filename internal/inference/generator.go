package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
)

// Request is a single completion request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Generator completes prompts.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Ollama option keys
const (
	optionNumPredict  = "num_predict"
	optionTemperature = "temperature"
	optionTopP        = "top_p"
)

// OllamaGenerator completes prompts with a model served by Ollama. The
// server address is taken from OLLAMA_HOST.
type OllamaGenerator struct {
	client *api.Client
	model  string
}

// NewOllamaGenerator creates a generator for the named model.
func NewOllamaGenerator(model string) (*OllamaGenerator, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("cannot create Ollama client: %w", err)
	}

	return &OllamaGenerator{client: client, model: model}, nil
}

// Model returns the name of the model prompts are sent to.
func (g *OllamaGenerator) Model() string {
	return g.model
}

// Ping checks that the server is reachable.
func (g *OllamaGenerator) Ping(ctx context.Context) error {
	return g.client.Heartbeat(ctx)
}

// Generate sends req to the server and returns the full completion.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	stream := false
	greq := &api.GenerateRequest{
		Model:  g.model,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]any{
			optionNumPredict:  req.MaxTokens,
			optionTemperature: req.Temperature,
			optionTopP:        req.TopP,
		},
	}

	var sb strings.Builder
	err := g.client.Generate(ctx, greq, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s failed: %w", g.model, err)
	}

	return strings.TrimSpace(sb.String()), nil
}
