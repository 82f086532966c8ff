package intake

import "difendimi.live/intake/internal/model"

// CompletionThreshold is the score at which a conversation finalizes even
// without an explicit "complete" hint.
const CompletionThreshold = 95

// DefaultAcknowledgement closes the conversation when the oracle's terminal
// answer carries no text of its own.
const DefaultAcknowledgement = "Grazie, ho raccolto tutte le informazioni necessarie. Sto preparando la tua relazione legale."

// IsComplete applies the termination policy: either signal alone finalizes.
// The score check guarantees termination when hint and score disagree.
func IsComplete(a model.OracleAssessment) bool {
	return a.StatusHint == model.StatusHintComplete || a.Score >= CompletionThreshold
}
