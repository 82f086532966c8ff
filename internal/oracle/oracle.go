// Package oracle asks a language model how complete an intake transcript is.
//
// Every implementation returns either a validated model.OracleAssessment or an
// error wrapping ErrUnreachable (transport, timeout, provider outage) or
// ErrMalformed (the answer arrived but breaks the contract).
package oracle

import (
	"context"
	"errors"

	"difendimi.live/intake/internal/model"
)

var (
	ErrUnreachable = errors.New("oracle unreachable")
	ErrMalformed   = errors.New("oracle response malformed")
)

// Oracle scores the latest user statement against the conversation so far.
type Oracle interface {
	Assess(ctx context.Context, req Request) (model.OracleAssessment, error)
}

// Request keeps the latest statement apart from the history that preceded it.
type Request struct {
	LatestResponse  string           `json:"latestResponse"`
	PreviousContext []ContextMessage `json:"previousContext"`
}

type ContextMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ContextFromTurns converts transcript turns into oracle context messages.
func ContextFromTurns(turns []model.ConversationTurn) []ContextMessage {
	msgs := make([]ContextMessage, len(turns))
	for i, t := range turns {
		msgs[i] = ContextMessage{Role: string(t.Speaker), Content: t.Text}
	}
	return msgs
}

func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
