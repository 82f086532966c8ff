package model

import "time"

// ReportState tracks the downstream report for a stored case.
type ReportState string

const (
	ReportStatePending    ReportState = "pending"
	ReportStateGenerating ReportState = "generating"
	ReportStateReady      ReportState = "ready"
	ReportStateFailed     ReportState = "failed"
)

// FinalizedCase is created once per conversation at the terminal transition
// and owned by the case store afterwards.
type FinalizedCase struct {
	ID                int64              `json:"id,omitempty"`
	SessionID         string             `json:"session_id"`
	OriginalText      string             `json:"original_text"`
	Conversation      []ConversationTurn `json:"conversation"`
	Facts             ExtractedFacts     `json:"facts"`
	CompletenessScore int                `json:"completeness_score"`
	ReportState       ReportState        `json:"report_state,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at,omitempty"`
}
