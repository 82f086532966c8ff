package dto

import (
	"time"

	"difendimi.live/intake/internal/model"
)

type SubmitStatementRequest struct {
	// Pointer so a missing field is a bad request while "" reaches the loop.
	Text *string `json:"text" binding:"required"`
}

type TurnResponse struct {
	Speaker   model.Speaker `json:"speaker"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
}

type ConversationResponse struct {
	SessionID          string           `json:"session_id"`
	Status             model.CaseStatus `json:"status"`
	CompletenessScore  *int             `json:"completeness_score,omitempty"`
	Turns              []TurnResponse   `json:"turns"`
	CaseID             int64            `json:"case_id,omitempty"`
	PendingPersistence bool             `json:"pending_persistence"`
}

type SessionResponse struct {
	ConversationResponse
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OutcomeResponse struct {
	Kind         model.OutcomeKind    `json:"kind"`
	Reason       model.ErrorReason    `json:"reason,omitempty"`
	Retryable    bool                 `json:"retryable"`
	QuestionText string               `json:"question_text,omitempty"`
	CaseID       int64                `json:"case_id,omitempty"`
	Conversation ConversationResponse `json:"conversation"`
}

func ConversationFromModel(conv model.CaseConversation) ConversationResponse {
	turns := make([]TurnResponse, len(conv.Turns))
	for i, t := range conv.Turns {
		turns[i] = TurnResponse{Speaker: t.Speaker, Text: t.Text, Timestamp: t.Timestamp}
	}
	return ConversationResponse{
		SessionID:          conv.SessionID,
		Status:             conv.Status,
		CompletenessScore:  conv.CompletenessScore,
		Turns:              turns,
		CaseID:             conv.CaseID,
		PendingPersistence: conv.Pending != nil && !conv.IsPersisted(),
	}
}

func SessionFromModel(s model.IntakeSession) SessionResponse {
	conv := ConversationFromModel(s.Conversation)
	conv.SessionID = s.ID
	return SessionResponse{
		ConversationResponse: conv,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func OutcomeFromModel(o model.LoopOutcome) OutcomeResponse {
	return OutcomeResponse{
		Kind:         o.Kind,
		Reason:       o.Reason,
		Retryable:    o.Retryable(),
		QuestionText: o.QuestionText,
		CaseID:       o.CaseID,
		Conversation: ConversationFromModel(o.Conversation),
	}
}
