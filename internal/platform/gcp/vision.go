package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/babetranslator-backend/internal/platform/ctxutil"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

// ErrVisionUnavailable marks failures where the OCR backend could not serve
// the request at all (transport, quota, auth), as opposed to an empty result.
var ErrVisionUnavailable = errors.New("vision unavailable")

type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte, mimeType string) (*VisionOCRResult, error)
	Close() error
}

type VisionOCRResult struct {
	Provider    string  `json:"provider"`
	MimeType    string  `json:"mime_type,omitempty"`
	PrimaryText string  `json:"primary_text"`
	Confidence  float64 `json:"confidence"`
	Locale      string  `json:"locale,omitempty"`
}

type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

type visionService struct {
	log     *logger.Logger
	client  imageAnnotator
	timeout time.Duration
	hints   []string
}

type VisionConfig struct {
	Credentials string
	// LanguageHints biases recognition, e.g. ["zh-Hant", "en"].
	LanguageHints []string
	Timeout       time.Duration
}

func NewVision(ctx context.Context, log *logger.Logger, cfg VisionConfig, extra ...option.ClientOption) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts := append(ClientOptions(cfg.Credentials), extra...)
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return newVisionWithClient(log, client, cfg), nil
}

func newVisionWithClient(log *logger.Logger, client imageAnnotator, cfg VisionConfig) *visionService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &visionService{
		log:     log.With("service", "gcp.Vision"),
		client:  client,
		timeout: timeout,
		hints:   cfg.LanguageHints,
	}
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte, mimeType string) (*VisionOCRResult, error) {
	empty := &VisionOCRResult{Provider: "gcp_vision", MimeType: mimeType}
	if len(img) == 0 {
		return empty, nil
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	if len(s.hints) > 0 {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: s.hints}
	}

	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.client.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, classifyVisionError(err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return empty, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return empty, nil
	}

	out := &VisionOCRResult{
		Provider:    "gcp_vision",
		MimeType:    mimeType,
		PrimaryText: normalizeOCRText(fta.Text),
	}
	var confSum float64
	var confN int
	for _, pg := range fta.Pages {
		if pg == nil {
			continue
		}
		for _, b := range pg.Blocks {
			if b == nil || b.Confidence <= 0 {
				continue
			}
			confSum += float64(b.Confidence)
			confN++
		}
		if out.Locale == "" && pg.Property != nil {
			for _, l := range pg.Property.DetectedLanguages {
				if l != nil && l.LanguageCode != "" {
					out.Locale = l.LanguageCode
					break
				}
			}
		}
	}
	if confN > 0 {
		out.Confidence = confSum / float64(confN)
	}
	s.log.Debug("Vision OCR complete", "chars", len(out.PrimaryText), "confidence", out.Confidence)
	return out, nil
}

func classifyVisionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return fmt.Errorf("vision BatchAnnotateImages: %w: %w", context.DeadlineExceeded, err)
		case codes.Unavailable, codes.ResourceExhausted, codes.PermissionDenied, codes.Unauthenticated:
			return fmt.Errorf("vision BatchAnnotateImages: %w: %w", ErrVisionUnavailable, err)
		}
	}
	return fmt.Errorf("vision BatchAnnotateImages: %w", err)
}
