package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/yungbote/babetranslator-backend/internal/domain/reply"
	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/gemini"
)

var geminiAnalysisSchema = &genai.Schema{
	Type:     genai.TypeObject,
	Required: []string{"emotion", "tone", "mood", "underlying_needs", "sentiment_score"},
	Properties: map[string]*genai.Schema{
		"emotion":          {Type: genai.TypeString},
		"tone":             {Type: genai.TypeString},
		"mood":             {Type: genai.TypeString},
		"underlying_needs": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"sentiment_score":  {Type: genai.TypeNumber},
	},
}

var geminiReplySchema = &genai.Schema{
	Type:     genai.TypeObject,
	Required: []string{"replies"},
	Properties: map[string]*genai.Schema{
		"replies": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type:     genai.TypeObject,
				Required: []string{"content", "style", "rationale", "confidence"},
				Properties: map[string]*genai.Schema{
					"content": {Type: genai.TypeString},
					"style": {
						Type:     genai.TypeObject,
						Required: []string{"name", "description"},
						Properties: map[string]*genai.Schema{
							"name":        {Type: genai.TypeString},
							"description": {Type: genai.TypeString},
						},
					},
					"rationale":  {Type: genai.TypeString},
					"confidence": {Type: genai.TypeNumber},
				},
			},
		},
	},
}

type GeminiAnalyzer struct {
	Client gemini.Client
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, text string) (reply.Analysis, error) {
	var out reply.Analysis
	if err := a.Client.GenerateJSON(ctx, analyzeSystem, text, geminiAnalysisSchema, &out); err != nil {
		return reply.Analysis{}, fmt.Errorf("gemini analyze: %w", err)
	}
	return out, nil
}

type GeminiReplier struct {
	Client gemini.Client
}

func (r *GeminiReplier) Generate(ctx context.Context, text string, personality user.PersonalityType, analysis reply.Analysis) ([]reply.Option, error) {
	var out replyEnvelope
	if err := r.Client.GenerateJSON(ctx, replySystem, replyUserPrompt(text, personality, analysis), geminiReplySchema, &out); err != nil {
		return nil, fmt.Errorf("gemini replies: %w", err)
	}
	return cleanOptions(out.Replies), nil
}
