package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/babetranslator-backend/internal/platform/gcp"
)

// VisionExtractor adapts Google Cloud Vision OCR to TextExtractor.
type VisionExtractor struct {
	Vision gcp.Vision
}

func NewVisionExtractor(v gcp.Vision) *VisionExtractor {
	return &VisionExtractor{Vision: v}
}

func (e *VisionExtractor) Extract(ctx context.Context, img []byte, contentType string) (string, error) {
	if e == nil || e.Vision == nil {
		return "", ErrUnavailable
	}
	res, err := e.Vision.OCRImageBytes(ctx, img, contentType)
	if errors.Is(err, gcp.ErrVisionUnavailable) {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return res.PrimaryText, nil
}
