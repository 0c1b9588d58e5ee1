package services

import (
	"context"
	"fmt"

	"github.com/yungbote/babetranslator-backend/internal/domain/reply"
	"github.com/yungbote/babetranslator-backend/internal/domain/user"
)

// Deterministic backends used in development and tests.

const stubExtractedText = "這是從圖片中提取的文字範例"

type StubExtractor struct{}

func (StubExtractor) Extract(ctx context.Context, img []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return stubExtractedText, nil
}

// NoExtractor is selected when no OCR backend is configured.
type NoExtractor struct{}

func (NoExtractor) Extract(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("text extraction: %w", ErrUnavailable)
}

type StubAnalyzer struct{}

func (StubAnalyzer) Analyze(ctx context.Context, text string) (reply.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return reply.Analysis{}, err
	}
	return reply.Analysis{
		Emotion:         "關心",
		Tone:            "溫柔",
		Mood:            "想念",
		UnderlyingNeeds: []string{"陪伴", "關注", "情感連結"},
		SentimentScore:  0.75,
	}, nil
}

type StubReplyGenerator struct{}

func (StubReplyGenerator) Generate(ctx context.Context, text string, personality user.PersonalityType, analysis reply.Analysis) ([]reply.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []reply.Option{
		{
			Content:    "我也很想你 ❤️ 今天過得怎麼樣？",
			Style:      reply.Style{Name: "溫暖回應", Description: "表達同樣的情感並關心對方"},
			Rationale:  fmt.Sprintf("%s: 表達同樣的情感並關心對方", personality),
			Confidence: 0.92,
		},
		{
			Content:    "抱歉讓你想我了 😊 晚點視訊好嗎？",
			Style:      reply.Style{Name: "主動安排", Description: "回應想念並提出具體行動"},
			Rationale:  fmt.Sprintf("%s: 回應想念並提出具體行動", personality),
			Confidence: 0.88,
		},
		{
			Content:    "收到！馬上就回去陪你 💕",
			Style:      reply.Style{Name: "立即回應", Description: "展現積極態度和行動力"},
			Rationale:  fmt.Sprintf("%s: 展現積極態度和行動力", personality),
			Confidence: 0.85,
		},
	}, nil
}
