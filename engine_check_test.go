package rampguard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newCheckEngine builds an engine over an embedded miniredis with a single
// policy registered under subject "otp".
func newCheckEngine(t *testing.T, p Policy, opts ...func(*Builder)) (*miniredis.Miniredis, *Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	cfg.Policies = map[string]Policy{"otp": p}
	cfg.Metrics.Enabled = true

	b := New().WithConfig(cfg).WithRedis(client)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	done := func() {
		engine.Close()
		_ = client.Close()
		mr.Close()
	}
	return mr, engine, done
}

// openPolicy returns a policy loose enough that nothing denies within a test.
func openPolicy() Policy {
	return Policy{
		Email:       EmailWindowPolicy{Count: 100, Window: time.Hour, KeyTTL: 2 * time.Hour},
		IP:          IPBucketPolicy{Capacity: 100, RefillPerHour: 100, KeyTTL: 2 * time.Hour},
		Progressive: ProgressiveDelayPolicy{DefaultDelay: 0, AttemptsTTL: time.Hour, LastSeenTTL: time.Hour},
		Global:      GlobalLimitPolicy{Count: 1000, Window: time.Minute},
	}
}

func TestCheckLimit_AllStagesAllow(t *testing.T) {
	_, engine, done := newCheckEngine(t, openPolicy())
	defer done()

	res, err := engine.CheckLimit(context.Background(), "otp", "alice@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("CheckLimit failed: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected allowed, got denial %q at stage %s", res.Message, res.Stage)
	}
	if got := engine.MetricsSnapshot().Counters[MetricCheckAllowed]; got != 1 {
		t.Fatalf("MetricCheckAllowed = %d, want 1", got)
	}
}

func TestCheckLimit_EmailStageDenies(t *testing.T) {
	p := openPolicy()
	p.Email.Count = 1
	_, engine, done := newCheckEngine(t, p)
	defer done()

	ctx := context.Background()
	if res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1"); err != nil || !res.Allowed {
		t.Fatalf("first check: allowed=%v err=%v", res.Allowed, err)
	}

	res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("second check: expected denial")
	}
	if res.Stage != StageEmail {
		t.Fatalf("stage = %s, want email", res.Stage)
	}
	if want := "Maximum 1 requests per 3600 seconds for this identifier"; res.Message != want {
		t.Fatalf("message = %q, want %q", res.Message, want)
	}
	if res.RetryAfter != 0 {
		t.Fatalf("RetryAfter = %v, want 0 for the email stage", res.RetryAfter)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricCheckDenied] != 1 || snap.Counters[MetricEmailDenied] != 1 {
		t.Fatalf("denial counters = %d/%d, want 1/1",
			snap.Counters[MetricCheckDenied], snap.Counters[MetricEmailDenied])
	}
}

func TestCheckLimit_ShortCircuitStopsAtFirstDenial(t *testing.T) {
	// Both the email window and the IP bucket are exhausted after the first
	// check. The second check must report the email stage and must not touch
	// any later stage's keys.
	p := openPolicy()
	p.Email.Count = 1
	p.IP.Capacity = 1
	mr, engine, done := newCheckEngine(t, p)
	defer done()

	ctx := context.Background()
	if res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1"); err != nil || !res.Allowed {
		t.Fatalf("first check: allowed=%v err=%v", res.Allowed, err)
	}

	attemptsBefore, _ := mr.Get("rate-limit:otp:attempts:alice@example.com")

	res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if res.Allowed || res.Stage != StageEmail {
		t.Fatalf("expected email-stage denial, got allowed=%v stage=%s", res.Allowed, res.Stage)
	}

	attemptsAfter, _ := mr.Get("rate-limit:otp:attempts:alice@example.com")
	if attemptsBefore != attemptsAfter {
		t.Fatalf("progressive counter advanced on short-circuit: %q -> %q", attemptsBefore, attemptsAfter)
	}
}

func TestCheckLimit_IPStageDeniesWithRetryAfter(t *testing.T) {
	p := openPolicy()
	p.IP.Capacity = 1
	p.IP.RefillPerHour = 60 // one token per minute
	_, engine, done := newCheckEngine(t, p)
	defer done()

	ctx := context.Background()
	if res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1"); err != nil || !res.Allowed {
		t.Fatalf("first check: allowed=%v err=%v", res.Allowed, err)
	}

	res, err := engine.CheckLimit(ctx, "otp", "bob@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("second check: expected denial")
	}
	if res.Stage != StageIP {
		t.Fatalf("stage = %s, want ip", res.Stage)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute+time.Second {
		t.Fatalf("RetryAfter = %v, want within (0, ~1m]", res.RetryAfter)
	}
}

func TestCheckLimit_ProgressiveStageDenies(t *testing.T) {
	p := openPolicy()
	p.Progressive.Delays = map[int]time.Duration{1: 0, 2: 10 * time.Minute}
	p.Progressive.DefaultDelay = 15 * time.Minute
	_, engine, done := newCheckEngine(t, p)
	defer done()

	ctx := context.Background()
	if res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1"); err != nil || !res.Allowed {
		t.Fatalf("first check: allowed=%v err=%v", res.Allowed, err)
	}

	res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("second check: expected denial")
	}
	if res.Stage != StageProgressive {
		t.Fatalf("stage = %s, want progressive", res.Stage)
	}
	if res.Attempt != 2 {
		t.Fatalf("attempt = %d, want 2", res.Attempt)
	}
	if !strings.HasPrefix(res.Message, "Please wait ") {
		t.Fatalf("message = %q, want wait hint", res.Message)
	}
}

func TestCheckLimit_GlobalStageDenies(t *testing.T) {
	p := openPolicy()
	p.Global.Count = 1
	_, engine, done := newCheckEngine(t, p)
	defer done()

	ctx := context.Background()
	if res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1"); err != nil || !res.Allowed {
		t.Fatalf("first check: allowed=%v err=%v", res.Allowed, err)
	}

	// Different identifier and IP: only the subject-wide counter can deny.
	res, err := engine.CheckLimit(ctx, "otp", "bob@example.com", "10.0.0.2")
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if res.Allowed || res.Stage != StageGlobal {
		t.Fatalf("expected global-stage denial, got allowed=%v stage=%s", res.Allowed, res.Stage)
	}
	if want := "System is experiencing high load"; res.Message != want {
		t.Fatalf("message = %q, want %q", res.Message, want)
	}
}

func TestCheckLimit_UnknownSubjectFailsOpen(t *testing.T) {
	sink := NewChannelSink(8)
	_, engine, done := newCheckEngine(t, openPolicy(), func(b *Builder) {
		cfg := DefaultConfig()
		cfg.Policies = map[string]Policy{"otp": openPolicy()}
		cfg.Metrics.Enabled = true
		cfg.Audit = AuditConfig{Enabled: true, BufferSize: 8, DropIfFull: false}
		b.WithConfig(cfg).WithAuditSink(sink)
	})
	defer done()

	res, err := engine.CheckLimit(context.Background(), "no-such-subject", "alice@example.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("CheckLimit failed: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected fail-open allow, got denial %q", res.Message)
	}
	if got := engine.MetricsSnapshot().Counters[MetricPolicyMiss]; got != 1 {
		t.Fatalf("MetricPolicyMiss = %d, want 1", got)
	}

	select {
	case ev := <-sink.Events():
		if ev.EventType != "rate_limit_policy_miss" {
			t.Fatalf("audit event = %q, want rate_limit_policy_miss", ev.EventType)
		}
		if ev.Subject != "no-such-subject" {
			t.Fatalf("audit subject = %q", ev.Subject)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event for policy miss")
	}
}

func TestCheckLimit_EmptyIdentifierSkipsIdentifierStages(t *testing.T) {
	// Email exhausted and progressive in permanent wait for every identifier,
	// yet checks with no identifier keep passing on the IP and global stages.
	p := openPolicy()
	p.Email.Count = 1
	p.Progressive.Delays = map[int]time.Duration{1: 0}
	p.Progressive.DefaultDelay = 15 * time.Minute
	mr, engine, done := newCheckEngine(t, p)
	defer done()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := engine.CheckLimit(ctx, "otp", "", "10.0.0.1")
		if err != nil {
			t.Fatalf("check %d failed: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("check %d: expected allowed, got %q at %s", i+1, res.Message, res.Stage)
		}
	}

	if mr.Exists("rate-limit:otp:email:") {
		t.Fatal("email key written for empty identifier")
	}
	if mr.Exists("rate-limit:otp:attempts:") {
		t.Fatal("attempts key written for empty identifier")
	}
}

func TestCheckLimit_EmptyIPSkipsIPStage(t *testing.T) {
	p := openPolicy()
	p.IP.Capacity = 1
	mr, engine, done := newCheckEngine(t, p)
	defer done()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "")
		if err != nil {
			t.Fatalf("check %d failed: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("check %d: expected allowed, got %q at %s", i+1, res.Message, res.Stage)
		}
	}

	if mr.Exists("rate-limit:otp:ip:") {
		t.Fatal("ip key written for empty ip")
	}
}

func TestCheckLimit_StoreErrorPropagates(t *testing.T) {
	mr, engine, done := newCheckEngine(t, openPolicy())
	defer done()

	mr.Close()

	_, err := engine.CheckLimit(context.Background(), "otp", "alice@example.com", "10.0.0.1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricStoreError]; got != 1 {
		t.Fatalf("MetricStoreError = %d, want 1", got)
	}
}

func TestCheckLimit_DenialEmitsAuditEvent(t *testing.T) {
	sink := NewChannelSink(8)
	p := openPolicy()
	p.Email.Count = 1
	_, engine, done := newCheckEngine(t, p, func(b *Builder) {
		cfg := DefaultConfig()
		cfg.Policies = map[string]Policy{"otp": p}
		cfg.Metrics.Enabled = true
		cfg.Audit = AuditConfig{Enabled: true, BufferSize: 8, DropIfFull: false}
		b.WithConfig(cfg).WithAuditSink(sink)
	})
	defer done()

	ctx := context.Background()
	if _, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("first check failed: %v", err)
	}
	if _, err := engine.CheckLimit(ctx, "otp", "alice@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("second check failed: %v", err)
	}

	select {
	case ev := <-sink.Events():
		if ev.EventType != "rate_limit_denied" {
			t.Fatalf("audit event = %q, want rate_limit_denied", ev.EventType)
		}
		if ev.Stage != "email" || ev.Allowed {
			t.Fatalf("audit stage=%q allowed=%v, want email/false", ev.Stage, ev.Allowed)
		}
		if ev.Identifier != "alice@example.com" || ev.IP != "10.0.0.1" {
			t.Fatalf("audit identity = %q/%q", ev.Identifier, ev.IP)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event for denial")
	}
}

func TestCheckLimit_NilEngine(t *testing.T) {
	var engine *Engine
	if _, err := engine.CheckLimit(context.Background(), "otp", "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestEngine_SubjectsAndPolicy(t *testing.T) {
	_, engine, done := newCheckEngine(t, openPolicy())
	defer done()

	if got := engine.Subjects(); len(got) != 1 || got[0] != "otp" {
		t.Fatalf("Subjects = %v, want [otp]", got)
	}

	p, err := engine.Policy("otp")
	if err != nil {
		t.Fatalf("Policy failed: %v", err)
	}
	if p.Email.Count != 100 {
		t.Fatalf("Email.Count = %d, want 100", p.Email.Count)
	}

	if _, err := engine.Policy("missing"); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}
