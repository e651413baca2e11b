package service

import (
	"context"

	"github.com/rs/zerolog/log"
)

// AuditRecord describes an admin action for the audit sink, including
// before/after balance snapshots where a balance changed.
type AuditRecord struct {
	ActorID     int64
	Action      string
	TargetType  string
	TargetID    int64
	Description string
	Before      map[string]any
	After       map[string]any
	Metadata    map[string]any
}

// AuditSink records admin actions. Record is fire-and-forget: a failure
// never affects the already-committed operation.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// BonusEngine is invoked after a successful deposit approval. Its failures
// are isolated from the deposit's success.
type BonusEngine interface {
	OnDepositApproved(ctx context.Context, userID, amount, depositRequestID int64) error
}

// Notification is a best-effort user-facing message.
type Notification struct {
	UserID   int64
	Type     string
	Title    string
	Message  string
	Metadata map[string]any
}

// Notifier dispatches user notifications. No delivery guarantee is part of
// the engine's contract.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Hooks bundles the post-commit collaborators. Every field may be nil.
// Hooks run only after the unit of work has committed; each one is isolated
// so a panic or error in one side effect cannot roll back the money
// movement or suppress the others.
type Hooks struct {
	Audit    AuditSink
	Bonus    BonusEngine
	Notifier Notifier
}

// runHook invokes one side effect with panic recovery. Failures are logged
// and swallowed.
func runHook(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("hook", name).Any("panic", r).Msg("post-commit hook panicked")
		}
	}()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("hook", name).Msg("post-commit hook failed")
	}
}

func (h *Hooks) recordAudit(ctx context.Context, rec AuditRecord) {
	if h == nil || h.Audit == nil {
		return
	}
	runHook(ctx, "audit", func(ctx context.Context) error {
		return h.Audit.Record(ctx, rec)
	})
}

func (h *Hooks) depositApproved(ctx context.Context, userID, amount, requestID int64) {
	if h == nil || h.Bonus == nil {
		return
	}
	runHook(ctx, "bonus", func(ctx context.Context) error {
		return h.Bonus.OnDepositApproved(ctx, userID, amount, requestID)
	})
}

func (h *Hooks) notify(ctx context.Context, n Notification) {
	if h == nil || h.Notifier == nil {
		return
	}
	runHook(ctx, "notify", func(ctx context.Context) error {
		return h.Notifier.Notify(ctx, n)
	})
}

// LogAuditSink writes audit records to the structured log. It stands in for
// the real audit store, which lives outside the engine.
type LogAuditSink struct{}

// Record implements AuditSink.
func (LogAuditSink) Record(_ context.Context, rec AuditRecord) error {
	log.Info().
		Int64("actor_id", rec.ActorID).
		Str("action", rec.Action).
		Str("target_type", rec.TargetType).
		Int64("target_id", rec.TargetID).
		Any("before", rec.Before).
		Any("after", rec.After).
		Msg(rec.Description)
	return nil
}
