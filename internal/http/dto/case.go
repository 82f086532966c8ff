package dto

import (
	"time"

	"difendimi.live/intake/internal/model"
)

type CaseResponse struct {
	ID                int64                `json:"id"`
	SessionID         string               `json:"session_id"`
	OriginalText      string               `json:"original_text"`
	Conversation      []TurnResponse       `json:"conversation"`
	Facts             model.ExtractedFacts `json:"facts"`
	CompletenessScore int                  `json:"completeness_score"`
	ReportState       model.ReportState    `json:"report_state"`
	CreatedAt         time.Time            `json:"created_at"`
}

type CaseListResponse struct {
	Cases []CaseResponse `json:"cases"`
}

type ReportResponse struct {
	ID              int64                 `json:"id"`
	CaseID          int64                 `json:"case_id"`
	Summary         string                `json:"summary"`
	Analysis        string                `json:"analysis"`
	ApplicableRules []string              `json:"applicable_rules"`
	NextSteps       []string              `json:"next_steps"`
	Documents       []model.DocumentDraft `json:"documents"`
	CreatedAt       time.Time             `json:"created_at"`
}

func CaseFromModel(c model.FinalizedCase) CaseResponse {
	turns := make([]TurnResponse, len(c.Conversation))
	for i, t := range c.Conversation {
		turns[i] = TurnResponse(t)
	}
	return CaseResponse{
		ID:                c.ID,
		SessionID:         c.SessionID,
		OriginalText:      c.OriginalText,
		Conversation:      turns,
		Facts:             c.Facts,
		CompletenessScore: c.CompletenessScore,
		ReportState:       c.ReportState,
		CreatedAt:         c.CreatedAt,
	}
}

func ReportFromModel(r model.Report) ReportResponse {
	return ReportResponse{
		ID:              r.ID,
		CaseID:          r.CaseID,
		Summary:         r.Summary,
		Analysis:        r.Analysis,
		ApplicableRules: r.ApplicableRules,
		NextSteps:       r.NextSteps,
		Documents:       r.Documents,
		CreatedAt:       r.CreatedAt,
	}
}
