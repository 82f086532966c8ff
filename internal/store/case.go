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

type caseStore struct {
	queries *sqlc.Queries
}

func newCaseStore(queries *sqlc.Queries) CaseStore {
	return &caseStore{queries: queries}
}

func (s *caseStore) Create(ctx context.Context, c model.FinalizedCase) (int64, error) {
	conversation, err := json.Marshal(c.Conversation)
	if err != nil {
		return 0, fmt.Errorf("encoding conversation: %w", err)
	}
	facts, err := json.Marshal(c.Facts)
	if err != nil {
		return 0, fmt.Errorf("encoding facts: %w", err)
	}

	state := c.ReportState
	if state == "" {
		state = model.ReportStatePending
	}

	row, err := s.queries.CreateCase(ctx, sqlc.CreateCaseParams{
		ID:                id.New(),
		SessionID:         c.SessionID,
		ReportState:       string(state),
		OriginalText:      c.OriginalText,
		Conversation:      conversation,
		ExtractedFacts:    facts,
		CompletenessScore: int32(c.CompletenessScore),
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *caseStore) GetByID(ctx context.Context, id int64) (model.FinalizedCase, error) {
	row, err := s.queries.GetCase(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.FinalizedCase{}, ErrNotFound
		}
		return model.FinalizedCase{}, err
	}
	return toCaseModel(row)
}

func (s *caseStore) List(ctx context.Context, limit int32) ([]model.FinalizedCase, error) {
	rows, err := s.queries.ListCases(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toCaseModels(rows)
}

func (s *caseStore) ClaimForReport(ctx context.Context, id int64) (model.FinalizedCase, error) {
	row, err := s.queries.ClaimCaseForReport(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return model.FinalizedCase{}, err
		}
		if _, getErr := s.queries.GetCase(ctx, id); getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return model.FinalizedCase{}, ErrNotFound
			}
			return model.FinalizedCase{}, getErr
		}
		return model.FinalizedCase{}, ErrNotClaimable
	}
	return toCaseModel(row)
}

func (s *caseStore) SetReportState(ctx context.Context, id int64, state model.ReportState) error {
	return s.queries.SetCaseReportState(ctx, sqlc.SetCaseReportStateParams{
		ID:          id,
		ReportState: string(state),
	})
}

func toCaseModel(row sqlc.LegalCase) (model.FinalizedCase, error) {
	c := model.FinalizedCase{
		ID:                row.ID,
		SessionID:         row.SessionID,
		OriginalText:      row.OriginalText,
		CompletenessScore: int(row.CompletenessScore),
		ReportState:       model.ReportState(row.ReportState),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
	if err := json.Unmarshal(row.Conversation, &c.Conversation); err != nil {
		return model.FinalizedCase{}, fmt.Errorf("decoding conversation of case %d: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.ExtractedFacts, &c.Facts); err != nil {
		return model.FinalizedCase{}, fmt.Errorf("decoding facts of case %d: %w", row.ID, err)
	}
	return c, nil
}

func toCaseModels(rows []sqlc.LegalCase) ([]model.FinalizedCase, error) {
	result := make([]model.FinalizedCase, 0, len(rows))
	for _, row := range rows {
		c, err := toCaseModel(row)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}
