package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"difendimi.live/intake/common/llm"
	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/internal/model"
)

const submitAssessmentTool = "submit_assessment"

// AgentOracle gets the assessment through a tool call, which works with both
// OpenAI and Anthropic models.
type AgentOracle struct {
	llm  llm.ToolClient
	tool llm.Tool
}

func NewAgentOracle(client llm.ToolClient) *AgentOracle {
	return &AgentOracle{
		llm: client,
		tool: llm.Tool{
			Name:        submitAssessmentTool,
			Description: "Submit the completeness assessment for the conversation. Call exactly once.",
			Parameters:  llm.GenerateSchemaFrom(structuredResponse{}),
		},
	}
}

func (o *AgentOracle) Assess(ctx context.Context, req Request) (model.OracleAssessment, error) {
	sc := logger.StartSpan(ctx, "oracle.agent.assess")
	defer sc.End()
	ctx = sc.Context()

	sc.SetAttributes(attribute.String("oracle.model", o.llm.Model()))

	resp, err := o.llm.CallTool(ctx, llm.ToolRequest{
		SystemPrompt: prompts.System + "\n" + prompts.AgentInstruction,
		UserPrompt:   prompts.buildUserPrompt(req),
		Tool:         o.tool,
		MaxTokens:    2000,
		Temperature:  llm.Temp(0.2),
	})
	if err != nil {
		err = classifyLLMError(err)
		sc.RecordError(err)
		return model.OracleAssessment{}, err
	}

	for _, tc := range resp.ToolCalls {
		if tc.Name != submitAssessmentTool {
			continue
		}

		params, err := llm.ParseToolArguments[structuredResponse](tc.Arguments)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrMalformed, err)
			sc.RecordError(err)
			return model.OracleAssessment{}, err
		}

		assessment, err := params.toResponse().Validate()
		if err != nil {
			sc.RecordError(err)
			return model.OracleAssessment{}, err
		}

		slog.DebugContext(ctx, "oracle assessment received",
			"score", assessment.Score,
			"status", assessment.StatusHint,
			"prompt_tokens", resp.PromptTokens,
			"completion_tokens", resp.CompletionTokens)
		return assessment, nil
	}

	err = fmt.Errorf("%w: no %s call (finish_reason=%s)", ErrMalformed, submitAssessmentTool, resp.FinishReason)
	sc.RecordError(err)
	slog.WarnContext(ctx, "oracle answered without submitting an assessment",
		"finish_reason", resp.FinishReason,
		"content", logger.Truncate(resp.Content, 200))
	return model.OracleAssessment{}, err
}
