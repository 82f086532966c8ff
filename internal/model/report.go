package model

import "time"

type DocumentDraft struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Report struct {
	ID               int64           `json:"id"`
	CaseID           int64           `json:"case_id"`
	Summary          string          `json:"summary"`
	Analysis         string          `json:"analysis"`
	ApplicableRules  []string        `json:"applicable_rules"`
	NextSteps        []string        `json:"next_steps"`
	Documents        []DocumentDraft `json:"documents"`
	Model            string          `json:"model"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	CreatedAt        time.Time       `json:"created_at"`
}
