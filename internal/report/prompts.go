package report

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"difendimi.live/intake/internal/model"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptPack struct {
	Version          string            `yaml:"version"`
	System           string            `yaml:"system"`
	FactsHeader      string            `yaml:"facts_header"`
	TranscriptHeader string            `yaml:"transcript_header"`
	Speakers         map[string]string `yaml:"speakers"`
	FactSections     map[string]string `yaml:"fact_sections"`
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
		return promptPack{}, fmt.Errorf("parsing report prompts: %w", err)
	}
	if strings.TrimSpace(p.System) == "" || p.FactsHeader == "" || p.TranscriptHeader == "" {
		return promptPack{}, fmt.Errorf("report prompts: system, facts_header and transcript_header are required")
	}
	return p, nil
}

func (p promptPack) buildUserPrompt(c model.FinalizedCase) string {
	var sb strings.Builder

	sb.WriteString(p.FactsHeader)
	sb.WriteString("\n")
	p.writeSection(&sb, "key_facts", c.Facts.KeyFacts)
	p.writeSection(&sb, "legal_issues", c.Facts.LegalIssues)
	p.writeSection(&sb, "relevant_institutes", c.Facts.RelevantInstitutes)
	p.writeSection(&sb, "recommended_documents", c.Facts.RecommendedDocuments)

	sb.WriteString("\n")
	sb.WriteString(p.TranscriptHeader)
	sb.WriteString("\n")
	for _, t := range c.Conversation {
		fmt.Fprintf(&sb, "%s: %s\n", p.speaker(string(t.Speaker)), t.Text)
	}

	return sb.String()
}

func (p promptPack) writeSection(sb *strings.Builder, key string, items []string) {
	if len(items) == 0 {
		return
	}
	title := p.FactSections[key]
	if title == "" {
		title = key
	}
	fmt.Fprintf(sb, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func (p promptPack) speaker(role string) string {
	if name, ok := p.Speakers[role]; ok {
		return name
	}
	return role
}
