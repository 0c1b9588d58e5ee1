package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/babetranslator-backend/internal/platform/apierr"
)

// Error kinds. Every error returned by the orchestrator wraps exactly one of
// these and carries its transport status through apierr.
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrQuotaExceeded         = errors.New("daily reply quota exceeded")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrCapabilityTimeout     = errors.New("capability timed out")
)

func validationErr(format string, args ...any) error {
	return apierr.New(http.StatusBadRequest, "validation_failed",
		fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...)))
}

func notFoundErr(what, id string) error {
	return apierr.New(http.StatusNotFound, "not_found",
		fmt.Errorf("%w: %s %q", ErrNotFound, what, id))
}

func quotaErr(limit int) error {
	return apierr.New(http.StatusPaymentRequired, "quota_exceeded",
		fmt.Errorf("%w: %d replies per day for non-members", ErrQuotaExceeded, limit))
}

func internalErr(op string, err error) error {
	return apierr.New(http.StatusInternalServerError, "internal_error", fmt.Errorf("%s: %w", op, err))
}

// capabilityErr classifies a failed capability call. A blown deadline is a
// timeout; anything else counts as the capability being unavailable.
func capabilityErr(capability string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.New(http.StatusGatewayTimeout, "capability_timeout",
			fmt.Errorf("%w: %s: %w", ErrCapabilityTimeout, capability, err))
	}
	return apierr.New(http.StatusBadGateway, "generation_failed",
		fmt.Errorf("%w: %s: %w", ErrCapabilityUnavailable, capability, err))
}
