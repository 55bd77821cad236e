package rampguard

import (
	"context"
	"strconv"
	"time"

	internalaudit "github.com/zestpay/rampguard/internal/audit"
	"github.com/zestpay/rampguard/internal/limiters"
)

const (
	auditEventRateLimitDenied = "rate_limit_denied"
	auditEventPolicyMiss      = "rate_limit_policy_miss"
	auditEventLockoutTripped  = "auth_lockout_tripped"
)

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *internalaudit.Dispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	allowed bool,
	subject string,
	identifier string,
	ip string,
	stage string,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if ip == "" {
		ip = clientIPFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Subject:    subject,
		Identifier: identifier,
		IP:         ip,
		Stage:      stage,
		Allowed:    allowed,
		Metadata:   metadata,
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitDenied(ctx context.Context, subject, identifier, ip string, stage Stage, d limiters.Decision) {
	e.emitAudit(ctx, auditEventRateLimitDenied, false, subject, identifier, ip, stage.String(), func() map[string]string {
		meta := map[string]string{
			"message": d.Message,
		}
		if d.Attempt > 0 {
			meta["attempt"] = strconv.Itoa(d.Attempt)
		}
		if d.RetryAfter > 0 {
			meta["retry_after_seconds"] = strconv.Itoa(int(d.RetryAfter / time.Second))
		}
		return meta
	})
}

func (e *Engine) emitPolicyMiss(ctx context.Context, subject, identifier, ip string) {
	e.emitAudit(ctx, auditEventPolicyMiss, true, subject, identifier, ip, "", nil)
}

func (e *Engine) emitLockout(ctx context.Context, subject, identifier string, failures int) {
	e.emitAudit(ctx, auditEventLockoutTripped, false, subject, identifier, "", "", func() map[string]string {
		return map[string]string{
			"failures": strconv.Itoa(failures),
		}
	})
}
