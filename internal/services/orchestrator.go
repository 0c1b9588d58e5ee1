package services

import (
	"context"
	"errors"
	"strings"

	convrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/conversation"
	userrepo "github.com/yungbote/babetranslator-backend/internal/data/repos/user"
	"github.com/yungbote/babetranslator-backend/internal/domain/conversation"
	"github.com/yungbote/babetranslator-backend/internal/domain/reply"
	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/observability"
	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

type ReplyResult struct {
	Replies  []reply.Option       `json:"replies"`
	Analysis reply.Analysis       `json:"analysis"`
	Message  conversation.Message `json:"message"`
	Permit   Permit               `json:"-"`
}

// Orchestrator is the request-level coordinator over users, conversations,
// quota and the capabilities.
type Orchestrator interface {
	Ingest(ctx context.Context, userID string, in Input) (IngestResult, error)
	GenerateReply(ctx context.Context, userID, messageText string) (*ReplyResult, error)
	Analyze(ctx context.Context, text string) (reply.Analysis, error)
	ExtractText(ctx context.Context, img []byte, contentType string) (string, error)

	UpsertProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (*user.User, error)
	GetUser(ctx context.Context, userID string) (*user.User, error)
	GetConversation(ctx context.Context, userID string) ([]conversation.Message, error)
	QuotaStatus(ctx context.Context, userID string) (QuotaStatus, error)
}

type OrchestratorConfig struct {
	FallbackPersonality user.PersonalityType
}

type orchestrator struct {
	log           *logger.Logger
	users         userrepo.Registry
	conversations convrepo.Store
	ingestion     IngestionService
	quota         QuotaGate
	caps          Capabilities
	fallback      user.PersonalityType
	metrics       *observability.Metrics
}

func NewOrchestrator(
	log *logger.Logger,
	users userrepo.Registry,
	conversations convrepo.Store,
	ingestion IngestionService,
	quota QuotaGate,
	caps Capabilities,
	cfg OrchestratorConfig,
	metrics *observability.Metrics,
) Orchestrator {
	fallback := cfg.FallbackPersonality
	if !fallback.Valid() {
		fallback = user.INFP
	}
	if caps.Analyzer == nil {
		caps.Analyzer = StubAnalyzer{}
	}
	if caps.Replier == nil {
		caps.Replier = StubReplyGenerator{}
	}
	return &orchestrator{
		log:           log.With("service", "Orchestrator"),
		users:         users,
		conversations: conversations,
		ingestion:     ingestion,
		quota:         quota,
		caps:          caps,
		fallback:      fallback,
		metrics:       metrics,
	}
}

// resolve creates the user and its conversation record on first reference.
func (o *orchestrator) resolve(ctx context.Context, userID string) (*user.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, validationErr("user id is required")
	}
	u, created, err := o.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, internalErr("resolve user", err)
	}
	if err := o.conversations.Ensure(ctx, userID); err != nil {
		return nil, internalErr("ensure conversation", err)
	}
	if created {
		o.log.Info("User registered", "user_id", userID)
	}
	return u, nil
}

func (o *orchestrator) Ingest(ctx context.Context, userID string, in Input) (IngestResult, error) {
	if err := o.ingestion.Validate(in); err != nil {
		return IngestResult{}, err
	}
	if _, err := o.resolve(ctx, userID); err != nil {
		return IngestResult{}, err
	}
	return o.ingestion.Ingest(ctx, userID, in)
}

func (o *orchestrator) GenerateReply(ctx context.Context, userID, messageText string) (*ReplyResult, error) {
	// The user exists after this call even when the message is rejected.
	if _, err := o.resolve(ctx, userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(messageText) == "" {
		return nil, validationErr("message text is empty")
	}

	ing, err := o.ingestion.Ingest(ctx, userID, TextInput(messageText))
	if err != nil {
		return nil, err
	}

	permit, err := o.quota.CheckAndConsume(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			o.metrics.IncReply("denied")
		}
		return nil, err
	}
	o.metrics.IncReply("admitted")

	// Profile may have changed since resolve; read the current personality.
	u, err := o.users.Get(ctx, userID)
	if err != nil {
		return nil, internalErr("load user", err)
	}
	personality := u.PersonalityType
	if !personality.IsSet() {
		personality = o.fallback
	}

	// From here on failures are reported forward: the message stays appended
	// and the consumed slot is not refunded. Capabilities see the text as the
	// caller sent it; the stored message is the trimmed form.
	text := messageText
	analysis, err := o.analyze(ctx, text)
	if err != nil {
		o.metrics.IncReply("failed")
		o.log.Warn("Analysis failed after quota consumed", "user_id", userID, "error", err)
		return nil, err
	}

	options, err := callCapability(ctx, o.metrics, capReplier, o.caps.Timeout, func(ctx context.Context) ([]reply.Option, error) {
		opts, err := o.caps.Replier.Generate(ctx, text, personality, analysis)
		if err == nil && len(opts) == 0 {
			return nil, errors.New("reply generator returned no options")
		}
		return opts, err
	})
	if err != nil {
		o.metrics.IncReply("failed")
		o.log.Warn("Reply generation failed after quota consumed", "user_id", userID, "error", err)
		return nil, capabilityErr(capReplier, err)
	}

	return &ReplyResult{
		Replies:  options,
		Analysis: analysis,
		Message:  ing.Message,
		Permit:   permit,
	}, nil
}

func (o *orchestrator) analyze(ctx context.Context, text string) (reply.Analysis, error) {
	a, err := callCapability(ctx, o.metrics, capAnalyzer, o.caps.Timeout, func(ctx context.Context) (reply.Analysis, error) {
		return o.caps.Analyzer.Analyze(ctx, text)
	})
	if err != nil {
		return reply.Analysis{}, capabilityErr(capAnalyzer, err)
	}
	return a.Normalize(), nil
}

func (o *orchestrator) Analyze(ctx context.Context, text string) (reply.Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return reply.Analysis{}, validationErr("message text is empty")
	}
	return o.analyze(ctx, text)
}

func (o *orchestrator) ExtractText(ctx context.Context, img []byte, contentType string) (string, error) {
	if err := o.ingestion.Validate(ImageInput(img, contentType)); err != nil {
		return "", err
	}
	return o.ingestion.Extract(ctx, img, contentType)
}

func (o *orchestrator) UpsertProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (*user.User, error) {
	if upd.PersonalityType != nil && upd.PersonalityType.IsSet() && !upd.PersonalityType.Valid() {
		return nil, validationErr("unknown personality type %q", *upd.PersonalityType)
	}
	u, err := o.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return u, nil
	}
	u, err = o.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, internalErr("update profile", err)
	}
	o.log.Info("Profile updated", "user_id", userID, "personality_type", u.PersonalityType, "is_member", u.IsMember)
	return u, nil
}

func (o *orchestrator) GetUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := o.users.Get(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) || errors.Is(err, userrepo.ErrInvalidID) {
		return nil, notFoundErr("user", userID)
	}
	if err != nil {
		return nil, internalErr("load user", err)
	}
	return u, nil
}

func (o *orchestrator) GetConversation(ctx context.Context, userID string) ([]conversation.Message, error) {
	msgs, err := o.conversations.Get(ctx, userID)
	if errors.Is(err, convrepo.ErrNotFound) || errors.Is(err, convrepo.ErrInvalidID) {
		return nil, notFoundErr("conversation", userID)
	}
	if err != nil {
		return nil, internalErr("load conversation", err)
	}
	return msgs, nil
}

func (o *orchestrator) QuotaStatus(ctx context.Context, userID string) (QuotaStatus, error) {
	return o.quota.Status(ctx, userID)
}
