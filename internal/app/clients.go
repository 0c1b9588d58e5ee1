package app

import (
	"context"
	"fmt"
	"io"

	"github.com/yungbote/babetranslator-backend/internal/platform/gcp"
	"github.com/yungbote/babetranslator-backend/internal/platform/gemini"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
	"github.com/yungbote/babetranslator-backend/internal/platform/openai"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

// capabilitySet is the resolved capability backends plus whatever needs
// closing on shutdown.
type capabilitySet struct {
	services.Capabilities
	closers []io.Closer
}

func (s *capabilitySet) Close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

func wireCapabilities(ctx context.Context, log *logger.Logger, cfg *Config) (*capabilitySet, error) {
	set := &capabilitySet{Capabilities: services.Capabilities{Timeout: cfg.Capabilities.Timeout.Duration}}

	switch cfg.Capabilities.Extractor {
	case BackendNone:
		set.Extractor = services.NoExtractor{}
	case BackendGCPVision:
		v, err := gcp.NewVision(ctx, log, gcp.VisionConfig{
			Credentials:   cfg.Vision.Credentials,
			LanguageHints: cfg.Vision.LanguageHints,
			Timeout:       cfg.Capabilities.Timeout.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("init vision: %w", err)
		}
		set.closers = append(set.closers, v)
		set.Extractor = services.NewVisionExtractor(v)
	default:
		set.Extractor = services.StubExtractor{}
	}

	var (
		oa openai.Client
		gm gemini.Client
	)
	need := map[string]bool{cfg.Capabilities.Analyzer: true, cfg.Capabilities.Replier: true}
	if need[BackendOpenAI] {
		c, err := openai.NewClient(log, openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Timeout:     cfg.OpenAI.Timeout.Duration,
			MaxRetries:  cfg.OpenAI.MaxRetries,
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("init openai: %w", err)
		}
		oa = c
	}
	if need[BackendGemini] {
		c, err := gemini.NewClient(ctx, log, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			BaseURL:     cfg.Gemini.BaseURL,
			Model:       cfg.Gemini.Model,
			Timeout:     cfg.Gemini.Timeout.Duration,
			Temperature: cfg.Gemini.Temperature,
		})
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		gm = c
	}

	switch cfg.Capabilities.Analyzer {
	case BackendOpenAI:
		set.Analyzer = &services.OpenAIAnalyzer{Client: oa}
	case BackendGemini:
		set.Analyzer = &services.GeminiAnalyzer{Client: gm}
	default:
		set.Analyzer = services.StubAnalyzer{}
	}
	switch cfg.Capabilities.Replier {
	case BackendOpenAI:
		set.Replier = &services.OpenAIReplier{Client: oa}
	case BackendGemini:
		set.Replier = &services.GeminiReplier{Client: gm}
	default:
		set.Replier = services.StubReplyGenerator{}
	}

	log.Info("Capabilities wired",
		"extractor", cfg.Capabilities.Extractor,
		"analyzer", cfg.Capabilities.Analyzer,
		"replier", cfg.Capabilities.Replier,
		"timeout", cfg.Capabilities.Timeout.Duration,
	)
	return set, nil
}
