package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/babetranslator-backend/internal/platform/ctxutil"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

type Client interface {
	// GenerateJSON requests an application/json response constrained by schema
	// and decodes it into out.
	GenerateJSON(ctx context.Context, system, user string, schema *genai.Schema, out any) error
}

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint; tests point it at httptest.
	BaseURL     string
	Timeout     time.Duration
	Temperature *float32
}

type client struct {
	log   *logger.Logger
	genai *genai.Client
	model string
	temp  *float32
}

var ErrEmptyResponse = errors.New("gemini returned no text")

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	}
	if cfg.Timeout > 0 {
		t := cfg.Timeout
		cc.HTTPOptions.Timeout = &t
	}
	gc, err := genai.NewClient(ctxutil.Default(ctx), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &client{
		log:   log.With("service", "GeminiClient"),
		genai: gc,
		model: model,
		temp:  cfg.Temperature,
	}, nil
}

func (c *client) GenerateJSON(ctx context.Context, system, user string, schema *genai.Schema, out any) error {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      c.temp,
	}
	if strings.TrimSpace(system) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}

	resp, err := c.genai.Models.GenerateContent(ctxutil.Default(ctx), c.model, contents, cfg)
	if err != nil {
		return fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to parse model JSON: %w", err)
	}
	c.log.Debug("Gemini response decoded", "model", c.model, "chars", len(text))
	return nil
}
