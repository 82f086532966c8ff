package model

type OutcomeKind string

const (
	OutcomeContinue  OutcomeKind = "continue"
	OutcomeFinalized OutcomeKind = "finalized"
	OutcomeError     OutcomeKind = "error"
)

type ErrorReason string

const (
	ReasonOracleUnreachable ErrorReason = "oracle_unreachable"
	ReasonOracleMalformed   ErrorReason = "oracle_malformed_response"
	ReasonPersistenceFailed ErrorReason = "persistence_failed"
	ReasonEmptyInput        ErrorReason = "empty_input"

	// Submitting to a conversation that already finished.
	ReasonConversationClosed ErrorReason = "conversation_closed"
	// Retrying persistence on a conversation with no pending case.
	ReasonNothingToPersist ErrorReason = "nothing_to_persist"
	// Retrying the oracle call when the last statement was already answered.
	ReasonNothingToRetry ErrorReason = "nothing_to_retry"
)

// LoopOutcome is the result of one intake step. Conversation is always the
// state the caller should keep, including on errors.
type LoopOutcome struct {
	Kind         OutcomeKind      `json:"kind"`
	Conversation CaseConversation `json:"conversation"`
	QuestionText string           `json:"question_text,omitempty"`
	CaseID       int64            `json:"case_id,omitempty"`
	Reason       ErrorReason      `json:"reason,omitempty"`
	Err          error            `json:"-"`
}

// Retryable reports whether repeating the failed step can succeed without a
// code change. Malformed oracle answers reproduce on the same input.
func (o LoopOutcome) Retryable() bool {
	if o.Kind != OutcomeError {
		return false
	}
	switch o.Reason {
	case ReasonOracleUnreachable, ReasonPersistenceFailed:
		return true
	}
	return false
}
