package promptstyle

import "strings"

const marker = "BABETRANSLATOR_PROMPT_STYLE_V1"

type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

// ApplySystem prepends a short guidance block to a system prompt. Prompts
// that already carry the block are returned unchanged.
func ApplySystem(system string, mode Mode) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}

	taskSummary := ""
	for _, line := range strings.Split(base, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			taskSummary = trimmed
			break
		}
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou help someone understand and answer messages from their partner.")
	if taskSummary != "" {
		b.WriteString("\nTask summary: " + taskSummary)
	}
	b.WriteString("\nWork only from the message provided; do not invent history between the two people.")
	b.WriteString("\nStay warm and respectful. Never suggest manipulative or hostile replies.")
	if mode == ModeJSON {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nBe brief.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
