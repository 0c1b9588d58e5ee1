package services

import (
	"context"
	"errors"
	"mime"
	"strings"
	"time"

	convrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/conversation"
	"github.com/yungbote/babetranslator-backend/internal/domain/conversation"
	"github.com/yungbote/babetranslator-backend/internal/observability"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

// PlaceholderUnavailable replaces screenshot text when extraction fails or
// finds nothing.
const PlaceholderUnavailable = "[screenshot text unavailable]"

// Input is raw conversation input, either typed text or an image.
type Input struct {
	Text        string
	Image       []byte
	ContentType string
	isImage     bool
}

func TextInput(text string) Input { return Input{Text: text} }

func ImageInput(img []byte, contentType string) Input {
	return Input{Image: img, ContentType: contentType, isImage: true}
}

func (in Input) IsImage() bool { return in.isImage }

type IngestResult struct {
	Message  conversation.Message `json:"message"`
	Count    int                  `json:"count"`
	Degraded bool                 `json:"degraded"`
}

type IngestionService interface {
	// Validate rejects malformed input without side effects.
	Validate(in Input) error
	// Ingest normalizes the input and appends it to the user's conversation.
	Ingest(ctx context.Context, userID string, in Input) (IngestResult, error)
	// Extract runs OCR only. Extraction failures are returned, not absorbed.
	Extract(ctx context.Context, img []byte, contentType string) (string, error)
}

type ingestionService struct {
	log           *logger.Logger
	conversations convrepo.Store
	extractor     TextExtractor
	timeout       time.Duration
	metrics       *observability.Metrics
}

func NewIngestionService(log *logger.Logger, conversations convrepo.Store, extractor TextExtractor, timeout time.Duration, metrics *observability.Metrics) IngestionService {
	if extractor == nil {
		extractor = NoExtractor{}
	}
	return &ingestionService{
		log:           log.With("service", "IngestionService"),
		conversations: conversations,
		extractor:     extractor,
		timeout:       timeout,
		metrics:       metrics,
	}
}

// IsImageContentType reports whether a declared media type is image/*.
func IsImageContentType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/") && len(mt) > len("image/")
}

func (s *ingestionService) Validate(in Input) error {
	if !in.isImage {
		if strings.TrimSpace(in.Text) == "" {
			return validationErr("message text is empty")
		}
		return nil
	}
	if !IsImageContentType(in.ContentType) {
		return validationErr("content type %q is not an image", in.ContentType)
	}
	if len(in.Image) == 0 {
		return validationErr("image is empty")
	}
	return nil
}

func (s *ingestionService) Ingest(ctx context.Context, userID string, in Input) (IngestResult, error) {
	if err := s.Validate(in); err != nil {
		return IngestResult{}, err
	}

	msg := conversation.Message{Content: strings.TrimSpace(in.Text), Source: conversation.SourceTyped}
	degraded := false
	if in.isImage {
		// Extraction runs before any lock is taken.
		text, err := s.Extract(ctx, in.Image, in.ContentType)
		if err != nil || text == "" {
			degraded = true
			s.log.Warn("Screenshot extraction degraded", "user_id", userID, "content_type", in.ContentType, "error", err)
			text = PlaceholderUnavailable
		}
		msg = conversation.Message{Content: text, Source: conversation.SourceScreenshot}
	}

	if err := s.conversations.Ensure(ctx, userID); err != nil {
		return IngestResult{}, internalErr("ensure conversation", err)
	}
	stored, count, err := s.conversations.Append(ctx, userID, msg)
	if errors.Is(err, convrepo.ErrNotFound) {
		return IngestResult{}, notFoundErr("conversation", userID)
	}
	if err != nil {
		return IngestResult{}, internalErr("append message", err)
	}
	s.metrics.IncIngest(string(msg.Source), degraded)
	s.log.Debug("Message ingested", "user_id", userID, "source", msg.Source, "count", count, "degraded", degraded)
	return IngestResult{Message: stored, Count: count, Degraded: degraded}, nil
}

func (s *ingestionService) Extract(ctx context.Context, img []byte, contentType string) (string, error) {
	text, err := callCapability(ctx, s.metrics, capExtractor, s.timeout, func(ctx context.Context) (string, error) {
		return s.extractor.Extract(ctx, img, contentType)
	})
	if err != nil {
		return "", capabilityErr(capExtractor, err)
	}
	return strings.TrimSpace(text), nil
}
