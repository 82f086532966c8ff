// Package report turns a stored case into the written report delivered to the
// client: summary, legal analysis and plain-text document drafts.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"difendimi.live/intake/common/llm"
	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/internal/model"
)

var ErrEmptyReport = errors.New("report: generated report has no summary")

type draftOutput struct {
	Kind  string `json:"kind" jsonschema_description:"Type of document, e.g. diffida, ricorso, istanza"`
	Title string `json:"title" jsonschema_description:"Document title"`
	Body  string `json:"body" jsonschema_description:"Full plain-text body with [placeholders] for missing data"`
}

type reportOutput struct {
	Summary         string        `json:"summary" jsonschema_description:"Three or four sentence summary of the case"`
	Analysis        string        `json:"analysis" jsonschema_description:"Legal analysis grounded in the facts"`
	ApplicableRules []string      `json:"applicable_rules" jsonschema_description:"Articles or laws cited in the analysis"`
	NextSteps       []string      `json:"next_steps" jsonschema_description:"Ordered actions for the client"`
	Documents       []draftOutput `json:"documents" jsonschema_description:"Document drafts useful for the case"`
}

var reportSchema = llm.GenerateSchema[reportOutput]()

// Generator drafts reports with a structured-output model.
type Generator struct {
	llm llm.Client
	now func() time.Time
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{llm: client, now: time.Now}
}

func (g *Generator) Generate(ctx context.Context, c model.FinalizedCase) (model.Report, error) {
	sc := logger.StartSpan(ctx, "report.generate")
	defer sc.End()
	ctx = sc.Context()

	sc.SetAttributes(
		attribute.Int64("case.id", c.ID),
		attribute.String("report.model", g.llm.Model()),
		attribute.Int("case.turns", len(c.Conversation)),
	)

	var out reportOutput
	resp, err := g.llm.Chat(ctx, llm.Request{
		SystemPrompt:      prompts.System,
		UserPrompt:        prompts.buildUserPrompt(c),
		SchemaName:        "case_report",
		SchemaDescription: "Legal report and document drafts for an intake case",
		Schema:            reportSchema,
		MaxTokens:         8000,
		Temperature:       llm.Temp(0.3),
	}, &out)
	if err != nil {
		sc.RecordError(err)
		return model.Report{}, fmt.Errorf("generating report for case %d: %w", c.ID, err)
	}

	if strings.TrimSpace(out.Summary) == "" {
		sc.RecordError(ErrEmptyReport)
		return model.Report{}, ErrEmptyReport
	}

	r := model.Report{
		CaseID:          c.ID,
		Summary:         strings.TrimSpace(out.Summary),
		Analysis:        strings.TrimSpace(out.Analysis),
		ApplicableRules: nonEmpty(out.ApplicableRules),
		NextSteps:       nonEmpty(out.NextSteps),
		Documents:       drafts(out.Documents),
		Model:           g.llm.Model(),
		CreatedAt:       g.now().UTC(),
	}
	if resp != nil {
		r.PromptTokens = resp.PromptTokens
		r.CompletionTokens = resp.CompletionTokens
	}

	slog.InfoContext(ctx, "report generated",
		"documents", len(r.Documents),
		"rules", len(r.ApplicableRules),
		"prompt_version", prompts.Version,
		"prompt_tokens", r.PromptTokens,
		"completion_tokens", r.CompletionTokens)

	return r, nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// drafts drops documents without a body; a title alone is not a draft.
func drafts(in []draftOutput) []model.DocumentDraft {
	out := make([]model.DocumentDraft, 0, len(in))
	for _, d := range in {
		if strings.TrimSpace(d.Body) == "" {
			continue
		}
		out = append(out, model.DocumentDraft{
			Kind:  strings.TrimSpace(d.Kind),
			Title: strings.TrimSpace(d.Title),
			Body:  d.Body,
		})
	}
	return out
}
