package model

import "time"

// IntakeSession is the server-side home of one CaseConversation.
type IntakeSession struct {
	ID           string           `json:"id"`
	Conversation CaseConversation `json:"conversation"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
