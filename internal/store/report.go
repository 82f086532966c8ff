package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/core/db/sqlc"
	"difendimi.live/intake/internal/model"
)

type reportStore struct {
	queries *sqlc.Queries
}

func newReportStore(queries *sqlc.Queries) ReportStore {
	return &reportStore{queries: queries}
}

// reportBody is the jsonb payload of a case_reports row.
type reportBody struct {
	Analysis        string                `json:"analysis"`
	ApplicableRules []string              `json:"applicable_rules"`
	NextSteps       []string              `json:"next_steps"`
	Documents       []model.DocumentDraft `json:"documents"`
}

func (s *reportStore) Create(ctx context.Context, r model.Report) (model.Report, error) {
	body, err := json.Marshal(reportBody{
		Analysis:        r.Analysis,
		ApplicableRules: r.ApplicableRules,
		NextSteps:       r.NextSteps,
		Documents:       r.Documents,
	})
	if err != nil {
		return model.Report{}, fmt.Errorf("encoding report body: %w", err)
	}

	row, err := s.queries.CreateCaseReport(ctx, sqlc.CreateCaseReportParams{
		ID:               id.New(),
		CaseID:           r.CaseID,
		Summary:          r.Summary,
		Body:             body,
		Model:            r.Model,
		PromptTokens:     int32(r.PromptTokens),
		CompletionTokens: int32(r.CompletionTokens),
	})
	if err != nil {
		return model.Report{}, err
	}
	return toReportModel(row)
}

func (s *reportStore) GetByCase(ctx context.Context, caseID int64) (model.Report, error) {
	row, err := s.queries.GetCaseReportByCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrNotFound
		}
		return model.Report{}, err
	}
	return toReportModel(row)
}

func toReportModel(row sqlc.CaseReport) (model.Report, error) {
	var body reportBody
	if err := json.Unmarshal(row.Body, &body); err != nil {
		return model.Report{}, fmt.Errorf("decoding report %d: %w", row.ID, err)
	}
	return model.Report{
		ID:               row.ID,
		CaseID:           row.CaseID,
		Summary:          row.Summary,
		Analysis:         body.Analysis,
		ApplicableRules:  body.ApplicableRules,
		NextSteps:        body.NextSteps,
		Documents:        body.Documents,
		Model:            row.Model,
		PromptTokens:     int(row.PromptTokens),
		CompletionTokens: int(row.CompletionTokens),
		CreatedAt:        row.CreatedAt.Time,
	}, nil
}
