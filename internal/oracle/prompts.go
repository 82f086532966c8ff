package oracle

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptPack struct {
	Version          string            `yaml:"version"`
	System           string            `yaml:"system"`
	HistoryHeader    string            `yaml:"history_header"`
	LatestHeader     string            `yaml:"latest_header"`
	EmptyHistory     string            `yaml:"empty_history"`
	Speakers         map[string]string `yaml:"speakers"`
	AgentInstruction string            `yaml:"agent_instruction"`
}

var prompts = mustLoadPrompts(promptsYAML)

func mustLoadPrompts(data []byte) promptPack {
	p, err := loadPrompts(data)
	if err != nil {
		panic(err)
	}
	return p
}

func loadPrompts(data []byte) (promptPack, error) {
	var p promptPack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return promptPack{}, fmt.Errorf("parsing oracle prompts: %w", err)
	}
	if strings.TrimSpace(p.System) == "" || p.HistoryHeader == "" || p.LatestHeader == "" {
		return promptPack{}, fmt.Errorf("oracle prompts: system, history_header and latest_header are required")
	}
	return p, nil
}

// PromptVersion identifies the embedded prompt pack in logs and evals.
func PromptVersion() string {
	return prompts.Version
}

// buildUserPrompt renders history and latest statement as separate sections.
func (p promptPack) buildUserPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString(p.HistoryHeader)
	sb.WriteString("\n")
	if len(req.PreviousContext) == 0 {
		sb.WriteString(p.EmptyHistory)
		sb.WriteString("\n")
	}
	for _, m := range req.PreviousContext {
		fmt.Fprintf(&sb, "%s: %s\n", p.speaker(m.Role), m.Content)
	}

	sb.WriteString("\n")
	sb.WriteString(p.LatestHeader)
	sb.WriteString("\n")
	sb.WriteString(req.LatestResponse)
	sb.WriteString("\n")

	return sb.String()
}

func (p promptPack) speaker(role string) string {
	if name, ok := p.Speakers[role]; ok {
		return name
	}
	return role
}
