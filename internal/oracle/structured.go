package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"difendimi.live/intake/common/llm"
	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/internal/model"
)

var structuredSchema = llm.GenerateSchema[structuredResponse]()

// StructuredOracle asks an OpenAI-compatible model for a strict JSON schema answer.
type StructuredOracle struct {
	llm llm.Client
}

func NewStructuredOracle(client llm.Client) *StructuredOracle {
	return &StructuredOracle{llm: client}
}

func (o *StructuredOracle) Assess(ctx context.Context, req Request) (model.OracleAssessment, error) {
	sc := logger.StartSpan(ctx, "oracle.structured.assess")
	defer sc.End()
	ctx = sc.Context()

	sc.SetAttributes(
		attribute.String("oracle.model", o.llm.Model()),
		attribute.Int("oracle.context_messages", len(req.PreviousContext)),
	)

	var out structuredResponse
	resp, err := o.llm.Chat(ctx, llm.Request{
		SystemPrompt:      prompts.System,
		UserPrompt:        prompts.buildUserPrompt(req),
		SchemaName:        "completeness_assessment",
		SchemaDescription: "Completeness assessment of a legal intake conversation",
		Schema:            structuredSchema,
		MaxTokens:         2000,
		Temperature:       llm.Temp(0.2),
	}, &out)
	if err != nil {
		err = classifyLLMError(err)
		sc.RecordError(err)
		return model.OracleAssessment{}, err
	}

	assessment, err := out.toResponse().Validate()
	if err != nil {
		sc.RecordError(err)
		return model.OracleAssessment{}, err
	}

	sc.SetAttributes(
		attribute.Int("oracle.score", assessment.Score),
		attribute.String("oracle.status", string(assessment.StatusHint)),
	)
	slog.DebugContext(ctx, "oracle assessment received",
		"score", assessment.Score,
		"status", assessment.StatusHint,
		"missing", len(assessment.MissingElements),
		"prompt_version", prompts.Version,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens)

	return assessment, nil
}

// classifyLLMError maps provider failures onto the oracle taxonomy. Output the
// client could not use is a contract problem; everything else is transport.
func classifyLLMError(err error) error {
	if errors.Is(err, llm.ErrInvalidOutput) {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}
