package model

import (
	"strings"
	"time"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ConversationTurn is one message of the intake transcript. A turn is never
// edited once the assistant has answered it.
type ConversationTurn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type CaseStatus string

const (
	CaseStatusCollecting CaseStatus = "collecting"
	CaseStatusComplete   CaseStatus = "complete"
	CaseStatusError      CaseStatus = "error"
)

// CaseConversation is the accumulating intake state. It is a value: the loop
// takes one in and hands a new one back, and the caller decides where it lives.
type CaseConversation struct {
	SessionID         string             `json:"session_id,omitempty"`
	Turns             []ConversationTurn `json:"turns"`
	CompletenessScore *int               `json:"completeness_score,omitempty"`
	Status            CaseStatus         `json:"status"`

	// Pending is the case built at the terminal transition, kept until the
	// store accepts it so persistence alone can be retried.
	Pending *FinalizedCase `json:"pending,omitempty"`
	CaseID  int64          `json:"case_id,omitempty"`
}

// NewConversation returns an empty conversation in the collecting state.
func NewConversation(sessionID string) CaseConversation {
	return CaseConversation{
		SessionID: sessionID,
		Turns:     []ConversationTurn{},
		Status:    CaseStatusCollecting,
	}
}

// Clone returns a copy that shares no mutable state with c. Pending is
// shared: a FinalizedCase is never modified once built.
func (c CaseConversation) Clone() CaseConversation {
	out := c
	out.Turns = make([]ConversationTurn, len(c.Turns))
	copy(out.Turns, c.Turns)
	if c.CompletenessScore != nil {
		score := *c.CompletenessScore
		out.CompletenessScore = &score
	}
	return out
}

// UserText joins all user turns with blank lines.
func (c CaseConversation) UserText() string {
	var parts []string
	for _, t := range c.Turns {
		if t.Speaker == SpeakerUser {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// LastTurn returns the most recent turn, if any.
func (c CaseConversation) LastTurn() (ConversationTurn, bool) {
	if len(c.Turns) == 0 {
		return ConversationTurn{}, false
	}
	return c.Turns[len(c.Turns)-1], true
}

func (c CaseConversation) IsPersisted() bool {
	return c.CaseID != 0
}
