package model

// StatusHint is the oracle's own verdict on completeness.
type StatusHint string

const (
	StatusHintIncomplete StatusHint = "incomplete"
	StatusHintSufficient StatusHint = "sufficient"
	StatusHintComplete   StatusHint = "complete"
)

func (h StatusHint) Valid() bool {
	switch h {
	case StatusHintIncomplete, StatusHintSufficient, StatusHintComplete:
		return true
	}
	return false
}

type Question struct {
	Text    string   `json:"text"`
	Type    string   `json:"type,omitempty"`
	Options []string `json:"options,omitempty"`
}

// ExtractedFacts is what the oracle has understood so far. The terminal
// assessment's facts seed the report generator.
type ExtractedFacts struct {
	KeyFacts             []string `json:"key_facts"`
	LegalIssues          []string `json:"legal_issues"`
	SuggestedKeywords    []string `json:"suggested_keywords"`
	RelevantInstitutes   []string `json:"relevant_institutes"`
	RecommendedDocuments []string `json:"recommended_documents"`
}

// OracleAssessment is one validated oracle answer. NextQuestion is nil when
// the oracle asked nothing.
type OracleAssessment struct {
	Score           int            `json:"score"`
	StatusHint      StatusHint     `json:"status_hint"`
	MissingElements []string       `json:"missing_elements,omitempty"`
	NextQuestion    *Question      `json:"next_question,omitempty"`
	Facts           ExtractedFacts `json:"facts"`
}
