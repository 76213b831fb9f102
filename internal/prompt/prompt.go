// Package prompt assembles chat messages into the plain-text prompt a
// Model Runner consumes, per family. The Gemma template is grounded in
// build_gemma_prompt in inference-engine/src/server.rs; it is a pure,
// deterministic function of its input, as that function's own test suite
// requires.
package prompt

import (
	"strings"

	"github.com/otronforge/gateway/internal/models"
)

// Message is one chat turn. Role is one of "system", "user", "assistant";
// any other value is skipped by Assemble.
type Message struct {
	Role    string
	Content string
}

// Assemble renders msgs into a prompt string for family.
func Assemble(family models.Family, msgs []Message) string {
	switch family {
	case models.FamilyGemmaV1, models.FamilyGemmaV2, models.FamilyGemmaV3:
		return assembleGemma(msgs)
	default:
		return assembleLastUserTurn(msgs)
	}
}

// assembleGemma reproduces build_gemma_prompt: a buffered system message
// is merged into the first user turn, every user/assistant turn is
// wrapped in <start_of_turn>...<end_of_turn>, and the prompt always ends
// with an open "model" turn for the runner to complete.
func assembleGemma(msgs []Message) string {
	var b strings.Builder
	var pendingSystem string

	for _, m := range msgs {
		switch m.Role {
		case "system":
			pendingSystem = m.Content
		case "user":
			b.WriteString("<start_of_turn>user\n")
			if pendingSystem != "" {
				b.WriteString(pendingSystem)
				b.WriteString("\n\n")
				pendingSystem = ""
			}
			b.WriteString(m.Content)
			b.WriteString("<end_of_turn>\n")
		case "assistant":
			b.WriteString("<start_of_turn>model\n")
			b.WriteString(m.Content)
			b.WriteString("<end_of_turn>\n")
		}
	}
	b.WriteString("<start_of_turn>model\n")
	return b.String()
}

// assembleLastUserTurn is the deliberately minimal template used by
// Llama, SmolLM2 and TinyLlama: the raw content of the last user message,
// per §4.8's "do not guess a format" note. A richer chat template is a
// permitted extension, not required for conformance.
func assembleLastUserTurn(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}
