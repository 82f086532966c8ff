package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"difendimi.live/intake/internal/model"
)

// Response is the JSON contract shared by every oracle backend. Optional
// members are pointers so that absence is distinguishable from zero values.
type Response struct {
	Completeness *Completeness `json:"completeness"`
	NextQuestion *NextQuestion `json:"nextQuestion,omitempty"`
	Analysis     *Analysis     `json:"analysis,omitempty"`
}

type Completeness struct {
	Score           *float64 `json:"score"`
	Status          string   `json:"status"`
	MissingElements []string `json:"missingElements,omitempty"`
}

type NextQuestion struct {
	Text    string   `json:"text"`
	Type    string   `json:"type,omitempty"`
	Options []string `json:"options,omitempty"`
}

type Analysis struct {
	KeyFacts             []string `json:"keyFacts,omitempty"`
	LegalIssues          []string `json:"legalIssues,omitempty"`
	SuggestedKeywords    []string `json:"suggestedKeywords,omitempty"`
	RelevantInstitutes   []string `json:"relevantInstitutes,omitempty"`
	RecommendedDocuments []string `json:"recommendedDocuments,omitempty"`
}

// Decode parses and validates a raw oracle body. Unknown members are ignored;
// missing or invalid required members are not.
func Decode(data []byte) (model.OracleAssessment, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return model.OracleAssessment{}, fmt.Errorf("%w: decoding body: %w", ErrMalformed, err)
	}
	return resp.Validate()
}

// Validate checks the contract and converts it to an assessment. A question
// with blank text counts as no question.
func (r Response) Validate() (model.OracleAssessment, error) {
	if r.Completeness == nil {
		return model.OracleAssessment{}, fmt.Errorf("%w: missing completeness", ErrMalformed)
	}
	if r.Completeness.Score == nil {
		return model.OracleAssessment{}, fmt.Errorf("%w: missing completeness.score", ErrMalformed)
	}

	score := *r.Completeness.Score
	if math.IsNaN(score) || score < 0 || score > 100 {
		return model.OracleAssessment{}, fmt.Errorf("%w: score %v outside 0-100", ErrMalformed, score)
	}
	if score != math.Trunc(score) {
		return model.OracleAssessment{}, fmt.Errorf("%w: score %v is not an integer", ErrMalformed, score)
	}

	hint := model.StatusHint(r.Completeness.Status)
	if !hint.Valid() {
		return model.OracleAssessment{}, fmt.Errorf("%w: unknown status %q", ErrMalformed, r.Completeness.Status)
	}

	a := model.OracleAssessment{
		Score:           int(score),
		StatusHint:      hint,
		MissingElements: r.Completeness.MissingElements,
	}

	if q := r.NextQuestion; q != nil && strings.TrimSpace(q.Text) != "" {
		a.NextQuestion = &model.Question{
			Text:    strings.TrimSpace(q.Text),
			Type:    q.Type,
			Options: q.Options,
		}
	}

	if r.Analysis != nil {
		a.Facts = model.ExtractedFacts{
			KeyFacts:             r.Analysis.KeyFacts,
			LegalIssues:          r.Analysis.LegalIssues,
			SuggestedKeywords:    r.Analysis.SuggestedKeywords,
			RelevantInstitutes:   r.Analysis.RelevantInstitutes,
			RecommendedDocuments: r.Analysis.RecommendedDocuments,
		}
	}

	return a, nil
}

// structuredResponse is the strict-mode shape sent to providers that require
// every property to be present. Empty question text means "no question".
type structuredResponse struct {
	Completeness struct {
		Score           float64  `json:"score" jsonschema:"type=integer" jsonschema_description:"How complete the facts are, a whole number from 0 to 100"`
		Status          string   `json:"status" jsonschema:"enum=incomplete,enum=sufficient,enum=complete"`
		MissingElements []string `json:"missingElements" jsonschema_description:"Facts still missing, in plain Italian"`
	} `json:"completeness"`
	NextQuestion struct {
		Text    string   `json:"text" jsonschema_description:"Next question for the user, empty when nothing is left to ask"`
		Type    string   `json:"type" jsonschema:"enum=open,enum=choice,enum=date,enum=confirmation"`
		Options []string `json:"options" jsonschema_description:"Choices for type=choice, otherwise empty"`
	} `json:"nextQuestion"`
	Analysis struct {
		KeyFacts             []string `json:"keyFacts"`
		LegalIssues          []string `json:"legalIssues"`
		SuggestedKeywords    []string `json:"suggestedKeywords"`
		RelevantInstitutes   []string `json:"relevantInstitutes"`
		RecommendedDocuments []string `json:"recommendedDocuments"`
	} `json:"analysis"`
}

func (s structuredResponse) toResponse() Response {
	score := s.Completeness.Score
	resp := Response{
		Completeness: &Completeness{
			Score:           &score,
			Status:          s.Completeness.Status,
			MissingElements: s.Completeness.MissingElements,
		},
		Analysis: &Analysis{
			KeyFacts:             s.Analysis.KeyFacts,
			LegalIssues:          s.Analysis.LegalIssues,
			SuggestedKeywords:    s.Analysis.SuggestedKeywords,
			RelevantInstitutes:   s.Analysis.RelevantInstitutes,
			RecommendedDocuments: s.Analysis.RecommendedDocuments,
		},
	}
	if s.NextQuestion.Text != "" {
		resp.NextQuestion = &NextQuestion{
			Text:    s.NextQuestion.Text,
			Type:    s.NextQuestion.Type,
			Options: s.NextQuestion.Options,
		}
	}
	return resp
}
