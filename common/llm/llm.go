package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ReasoningEffort controls the amount of reasoning for supported models.
type ReasoningEffort string

const (
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

// Config holds LLM client configuration.
type Config struct {
	Provider        string          // "openai" or "anthropic"
	APIKey          string          // Required: API key for the provider
	BaseURL         string          // Optional: custom API endpoint
	Model           string          // Model name (e.g., "gpt-5.1", "claude-sonnet-4-5-20250514")
	ReasoningEffort ReasoningEffort // Optional: for models that support reasoning (gpt-5.1, o1, o3)
}

// ToolClient makes the model answer through one named tool, so the reply is
// arguments to decode rather than prose.
type ToolClient interface {
	CallTool(ctx context.Context, req ToolRequest) (*ToolResponse, error)
	Model() string
}

// ToolRequest is a single-shot exchange: the model must call Tool.
type ToolRequest struct {
	SystemPrompt string
	UserPrompt   string
	Tool         Tool
	MaxTokens    int
	Temperature  *float64
}

// Tool defines a function the LLM can call.
type Tool struct {
	Name        string
	Description string
	Parameters  any // JSON Schema for parameters
}

// ToolCall is one invocation returned by the model.
type ToolCall struct {
	Name      string
	Arguments string // JSON-encoded arguments
}

type ToolResponse struct {
	Content          string // prose the model added, if any
	ToolCalls        []ToolCall
	FinishReason     string // "stop", "tool_calls", "length"
	PromptTokens     int
	CompletionTokens int
}

// NewToolClient picks the provider from cfg.Provider, Anthropic when empty.
func NewToolClient(cfg Config) (ToolClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderAnthropic
	}

	switch provider {
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	case ProviderOpenAI:
		return newOpenAIToolClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// ParseToolArguments unmarshals tool arguments into the target struct.
func ParseToolArguments[T any](arguments string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(arguments), &result); err != nil {
		return result, fmt.Errorf("parse tool arguments: %w", err)
	}
	return result, nil
}

// GenerateSchemaFrom reflects the schema of v's type.
func GenerateSchemaFrom(v any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// schemaMap renders a schema value (usually *jsonschema.Schema) as a plain map.
func schemaMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func requiredFields(schema map[string]any) []string {
	raw, _ := schema["required"].([]any)
	required := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			required = append(required, s)
		}
	}
	return required
}
