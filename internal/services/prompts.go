package services

import (
	"fmt"
	"strings"

	"github.com/yungbote/babetranslator-backend/internal/domain/reply"
	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/promptstyle"
)

const analyzeSystemPrompt = `You read one message a partner sent in a chat and describe its emotional content.
Answer in the language of the message. emotion, tone and mood are single short words.
underlying_needs lists what the sender is asking for emotionally, most important first.
sentiment_score is between -1 (very negative) and 1 (very positive).`

const replySystemPrompt = `You suggest replies to a message from the user's partner.
Write every reply in the language of the message, in the voice of a person with the given
MBTI personality type. Return exactly three options ordered from most to least recommended.
style.name is a short label, style.description explains the approach, rationale explains why
this reply fits the message and the analysis, confidence is between 0 and 1.`

var (
	analyzeSystem = promptstyle.ApplySystem(analyzeSystemPrompt, promptstyle.ModeJSON)
	replySystem   = promptstyle.ApplySystem(replySystemPrompt, promptstyle.ModeJSON)
)

func replyUserPrompt(text string, personality user.PersonalityType, a reply.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Personality type: %s\n", personality)
	fmt.Fprintf(&b, "Analysis: emotion=%s tone=%s mood=%s needs=%s sentiment=%.2f\n",
		a.Emotion, a.Tone, a.Mood, strings.Join(a.UnderlyingNeeds, ", "), a.SentimentScore)
	fmt.Fprintf(&b, "Message:\n%s", text)
	return b.String()
}

// analysisSchema and replySchema are the JSON schemas for strict structured output.
var analysisSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"emotion", "tone", "mood", "underlying_needs", "sentiment_score"},
	"properties": map[string]any{
		"emotion":          map[string]any{"type": "string"},
		"tone":             map[string]any{"type": "string"},
		"mood":             map[string]any{"type": "string"},
		"underlying_needs": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"sentiment_score":  map[string]any{"type": "number"},
	},
}

var replySchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"replies"},
	"properties": map[string]any{
		"replies": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"content", "style", "rationale", "confidence"},
				"properties": map[string]any{
					"content": map[string]any{"type": "string"},
					"style": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []string{"name", "description"},
						"properties": map[string]any{
							"name":        map[string]any{"type": "string"},
							"description": map[string]any{"type": "string"},
						},
					},
					"rationale":  map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number"},
				},
			},
		},
	},
}

type replyEnvelope struct {
	Replies []reply.Option `json:"replies"`
}

// cleanOptions drops blank suggestions and clamps confidence into [0, 1].
func cleanOptions(in []reply.Option) []reply.Option {
	out := make([]reply.Option, 0, len(in))
	for _, o := range in {
		o.Content = strings.TrimSpace(o.Content)
		if o.Content == "" {
			continue
		}
		if o.Confidence < 0 {
			o.Confidence = 0
		}
		if o.Confidence > 1 {
			o.Confidence = 1
		}
		out = append(out, o)
	}
	return out
}
