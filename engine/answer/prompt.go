package answer

import (
	"fmt"
	"strings"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

// Per-mode completion budgets.
var modeMaxTokens = map[domain.AnswerMode]int{
	domain.ModeConcise:  256,
	domain.ModeSimple:   512,
	domain.ModeDetailed: 1024,
}

const baseSystem = `You are a regulatory compliance assistant. Answer strictly from the provided context. If the context does not cover the question, say you do not have enough information. Never invent regulation names, dates, or obligations.`

var modeInstructions = map[domain.AnswerMode]string{
	domain.ModeConcise:  "Answer in at most three sentences. No elaboration, no background.",
	domain.ModeSimple:   "Answer in plain language a non-lawyer understands. Avoid statutory jargon; explain any term you must use.",
	domain.ModeDetailed: "Answer thoroughly in multiple paragraphs. Reference the numbered context passages as [1], [2] where they support a claim.",
}

// systemPrompt builds the mode-specific system message.
func systemPrompt(mode domain.AnswerMode) string {
	return baseSystem + "\n\n" + modeInstructions[mode]
}

// contextEntry is one passage offered to the model.
type contextEntry struct {
	header string
	body   string
}

func (e contextEntry) size() int {
	return len(e.header) + len(e.body) + 2
}

func chunkEntry(c domain.DocumentChunk) contextEntry {
	header := c.Meta.SourceDocTitle
	if c.Meta.Section != "" {
		header += ", " + c.Meta.Section
	}
	return contextEntry{header: header, body: c.Text}
}

// userPrompt renders the numbered context block followed by the question.
func userPrompt(question string, entries []contextEntry) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, e.header, e.body)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
