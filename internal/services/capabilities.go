package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/babetranslator-backend/internal/domain/reply"
	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/observability"
)

// ErrUnavailable is returned by capability backends that cannot serve at all.
var ErrUnavailable = errors.New("capability backend unavailable")

// TextExtractor turns an image into text (OCR).
type TextExtractor interface {
	Extract(ctx context.Context, img []byte, contentType string) (string, error)
}

// Analyzer produces the emotional profile of a message.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (reply.Analysis, error)
}

// ReplyGenerator returns reply options, most-recommended first.
type ReplyGenerator interface {
	Generate(ctx context.Context, text string, personality user.PersonalityType, analysis reply.Analysis) ([]reply.Option, error)
}

// Capabilities bundles the pluggable backends with the per-call deadline.
type Capabilities struct {
	Extractor TextExtractor
	Analyzer  Analyzer
	Replier   ReplyGenerator
	Timeout   time.Duration
}

const (
	capExtractor = "extractor"
	capAnalyzer  = "analyzer"
	capReplier   = "replier"
)

// callCapability runs fn under the capability deadline inside a span and
// records the outcome. fn runs on its own goroutine so a backend that ignores
// ctx cannot hold the caller past the deadline; its late result is dropped.
func callCapability[T any](ctx context.Context, m *observability.Metrics, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := observability.Tracer().Start(ctx, "capability."+name)
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		out T
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		out, err := fn(ctx)
		done <- result{out: out, err: err}
	}()

	var (
		out T
		err error
	)
	select {
	case r := <-done:
		out, err = r.out, r.err
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(context.DeadlineExceeded, err)
	}

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	default:
		status = "error"
	}
	m.ObserveCapability(name, status, time.Since(start))
	span.SetAttributes(attribute.String("capability.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		var zero T
		return zero, err
	}
	return out, nil
}
