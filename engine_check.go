package rampguard

import (
	"context"
	"time"

	"github.com/zestpay/rampguard/internal/limiters"
)

// CheckLimit describes the checklimit operation and its observable behavior.
//
// CheckLimit may return an error when input validation, dependency calls, or security checks fail.
// CheckLimit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Stages run in a fixed order (email window, IP bucket, progressive delay,
// global counter) and the first refusal short-circuits the rest. An empty
// identifier skips the email and progressive stages; an empty ip skips the
// IP stage. A store failure aborts the check and surfaces the error; it is
// never converted into an allow or deny.
func (e *Engine) CheckLimit(ctx context.Context, subject, identifier, ip string) (Result, error) {
	if e == nil {
		return Result{}, ErrEngineNotReady
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricCheckLatency, time.Since(start))
		}()
	}

	set, ok := e.subjects[subject]
	if !ok {
		// A missing policy fails open: the request proceeds, and the
		// warning, counter, and audit event make the gap visible.
		e.logger.Warn().
			Str("subject", subject).
			Msg("no rate limit policy for subject, failing open")
		e.metricInc(MetricPolicyMiss)
		e.emitPolicyMiss(ctx, subject, identifier, ip)
		return Result{Allowed: true}, nil
	}

	if identifier != "" {
		d, err := set.email.Check(ctx, subject, identifier)
		if err != nil {
			return Result{}, e.checkFailed(subject, StageEmail, err)
		}
		if !d.Allowed {
			return e.denied(ctx, subject, identifier, ip, StageEmail, d), nil
		}
	}

	if ip != "" {
		d, err := set.ip.Check(ctx, subject, ip)
		if err != nil {
			return Result{}, e.checkFailed(subject, StageIP, err)
		}
		if !d.Allowed {
			return e.denied(ctx, subject, identifier, ip, StageIP, d), nil
		}
	}

	if identifier != "" {
		d, err := set.progressive.Check(ctx, subject, identifier)
		if err != nil {
			return Result{}, e.checkFailed(subject, StageProgressive, err)
		}
		if !d.Allowed {
			return e.denied(ctx, subject, identifier, ip, StageProgressive, d), nil
		}
	}

	d, err := set.global.Check(ctx, subject)
	if err != nil {
		return Result{}, e.checkFailed(subject, StageGlobal, err)
	}
	if !d.Allowed {
		return e.denied(ctx, subject, identifier, ip, StageGlobal, d), nil
	}

	e.metricInc(MetricCheckAllowed)
	return Result{Allowed: true}, nil
}

func (e *Engine) denied(ctx context.Context, subject, identifier, ip string, stage Stage, d limiters.Decision) Result {
	e.metricInc(MetricCheckDenied)
	e.metricInc(stageMetric(stage))

	e.logger.Debug().
		Str("subject", subject).
		Str("stage", stage.String()).
		Str("identifier", identifier).
		Str("ip", ip).
		Int("attempt", d.Attempt).
		Dur("retry_after", d.RetryAfter).
		Msg("rate limit denied")

	e.emitDenied(ctx, subject, identifier, ip, stage, d)

	return Result{
		Allowed:    false,
		Message:    d.Message,
		Attempt:    d.Attempt,
		RetryAfter: d.RetryAfter,
		Stage:      stage,
	}
}

func (e *Engine) checkFailed(subject string, stage Stage, err error) error {
	e.metricInc(MetricStoreError)
	e.logger.Error().
		Err(err).
		Str("subject", subject).
		Str("stage", stage.String()).
		Msg("rate limit check aborted on store failure")
	return err
}

func stageMetric(stage Stage) MetricID {
	switch stage {
	case StageEmail:
		return MetricEmailDenied
	case StageIP:
		return MetricIPDenied
	case StageProgressive:
		return MetricProgressiveDenied
	default:
		return MetricGlobalDenied
	}
}
