package services

import (
	"context"
	"fmt"

	"github.com/yungbote/babetranslator-backend/internal/domain/reply"
	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/platform/openai"
)

type OpenAIAnalyzer struct {
	Client openai.Client
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (reply.Analysis, error) {
	var out reply.Analysis
	if err := a.Client.GenerateJSON(ctx, analyzeSystem, text, "message_analysis", analysisSchema, &out); err != nil {
		return reply.Analysis{}, fmt.Errorf("openai analyze: %w", err)
	}
	return out, nil
}

type OpenAIReplier struct {
	Client openai.Client
}

func (r *OpenAIReplier) Generate(ctx context.Context, text string, personality user.PersonalityType, analysis reply.Analysis) ([]reply.Option, error) {
	var out replyEnvelope
	if err := r.Client.GenerateJSON(ctx, replySystem, replyUserPrompt(text, personality, analysis), "reply_options", replySchema, &out); err != nil {
		return nil, fmt.Errorf("openai replies: %w", err)
	}
	return cleanOptions(out.Replies), nil
}
