package rampguard

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Config defines a public type used by rampguard APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Policies map[string]Policy
	Lock     LockConfig
	Lockout  LockoutConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
POLICY CONFIG
====================================
*/

// Subject names for the built-in default policies.
const (
	// SubjectOTP is an exported constant or variable used by the abuse-prevention engine.
	SubjectOTP = "otp"
	// SubjectWithdrawal is an exported constant or variable used by the abuse-prevention engine.
	SubjectWithdrawal = "withdrawal"
)

// Policy defines a public type used by rampguard APIs.
//
// Policy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Policy struct {
	Email       EmailWindowPolicy
	IP          IPBucketPolicy
	Progressive ProgressiveDelayPolicy
	Global      GlobalLimitPolicy
}

// EmailWindowPolicy defines a public type used by rampguard APIs.
//
// EmailWindowPolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EmailWindowPolicy struct {
	Count  int
	Window time.Duration
	KeyTTL time.Duration
}

// IPBucketPolicy defines a public type used by rampguard APIs.
//
// IPBucketPolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type IPBucketPolicy struct {
	Capacity      int
	RefillPerHour float64
	KeyTTL        time.Duration
}

// ProgressiveDelayPolicy defines a public type used by rampguard APIs.
//
// ProgressiveDelayPolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ProgressiveDelayPolicy struct {
	// Delays maps the attempt ordinal (1-based) to the wait required since
	// the previous attempt. Ordinals beyond the map fall back to DefaultDelay.
	Delays       map[int]time.Duration
	DefaultDelay time.Duration
	AttemptsTTL  time.Duration
	LastSeenTTL  time.Duration
}

// GlobalLimitPolicy defines a public type used by rampguard APIs.
//
// GlobalLimitPolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GlobalLimitPolicy struct {
	Count  int
	Window time.Duration
}

/*
====================================
LOCK CONFIG
====================================
*/

// LockConfig defines a public type used by rampguard APIs.
//
// LockConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockConfig struct {
	TTL time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by rampguard APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	Enabled     bool
	MaxFailures int
	Duration    time.Duration
	FailuresTTL time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by rampguard APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by rampguard APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultOTPPolicy returns the built-in policy applied to OTP issuance.
// Five requests per identifier per hour, a 20-token IP bucket refilling
// 10 tokens per hour, eased progressive delays for the first two attempts,
// and a 1000-per-minute global ceiling.
func DefaultOTPPolicy() Policy {
	return Policy{
		Email: EmailWindowPolicy{
			Count:  5,
			Window: time.Hour,
			KeyTTL: 2 * time.Hour,
		},
		IP: IPBucketPolicy{
			Capacity:      20,
			RefillPerHour: 10,
			KeyTTL:        2 * time.Hour,
		},
		Progressive: ProgressiveDelayPolicy{
			Delays: map[int]time.Duration{
				1: 0,
				2: 0,
				3: 30 * time.Second,
				4: 2 * time.Minute,
				5: 15 * time.Minute,
			},
			DefaultDelay: 15 * time.Minute,
			AttemptsTTL:  time.Hour,
			LastSeenTTL:  time.Hour,
		},
		Global: GlobalLimitPolicy{
			Count:  1000,
			Window: time.Minute,
		},
	}
}

// DefaultWithdrawalPolicy returns the built-in policy applied to withdrawal
// initiation. Tighter than OTP on every stage: three requests per identifier
// per hour, a 10-token IP bucket refilling 5 tokens per hour, delays starting
// from the second attempt, and a 500-per-minute global ceiling.
func DefaultWithdrawalPolicy() Policy {
	return Policy{
		Email: EmailWindowPolicy{
			Count:  3,
			Window: time.Hour,
			KeyTTL: 2 * time.Hour,
		},
		IP: IPBucketPolicy{
			Capacity:      10,
			RefillPerHour: 5,
			KeyTTL:        2 * time.Hour,
		},
		Progressive: ProgressiveDelayPolicy{
			Delays: map[int]time.Duration{
				1: 0,
				2: 30 * time.Second,
				3: 2 * time.Minute,
				4: 15 * time.Minute,
			},
			DefaultDelay: 15 * time.Minute,
			AttemptsTTL:  time.Hour,
			LastSeenTTL:  time.Hour,
		},
		Global: GlobalLimitPolicy{
			Count:  500,
			Window: time.Minute,
		},
	}
}

// DefaultConfig returns a fresh copy of the built-in configuration: the OTP
// and withdrawal policies, a 30 second lock TTL, and lockout, audit, and
// metrics disabled. The copy is safe to modify before passing to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Policies: map[string]Policy{
			SubjectOTP:        DefaultOTPPolicy(),
			SubjectWithdrawal: DefaultWithdrawalPolicy(),
		},
		Lock: LockConfig{
			TTL: 30 * time.Second,
		},
		Lockout: LockoutConfig{
			Enabled:     false,
			MaxFailures: 5,
			Duration:    15 * time.Minute,
			FailuresTTL: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Policies = clonePolicies(cfg.Policies)
	return out
}

func clonePolicies(in map[string]Policy) map[string]Policy {
	if in == nil {
		return nil
	}
	out := make(map[string]Policy, len(in))
	for name, p := range in {
		out[name] = clonePolicy(p)
	}
	return out
}

func clonePolicy(p Policy) Policy {
	out := p
	if p.Progressive.Delays != nil {
		delays := make(map[int]time.Duration, len(p.Progressive.Delays))
		for attempt, d := range p.Progressive.Delays {
			delays[attempt] = d
		}
		out.Progressive.Delays = delays
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Policies
	if len(c.Policies) == 0 {
		return errors.New("at least one rate limit policy must be configured")
	}

	names := make([]string, 0, len(c.Policies))
	for name := range c.Policies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "" {
			return errors.New("policy subject must not be empty")
		}
		if err := validatePolicy(name, c.Policies[name]); err != nil {
			return err
		}
	}

	// Lock
	if c.Lock.TTL <= 0 {
		return errors.New("Lock TTL must be > 0")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.MaxFailures <= 0 {
			return errors.New("Lockout MaxFailures must be > 0 when Enabled is true")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("Lockout Duration must be > 0 when Enabled is true")
		}
		if c.Lockout.FailuresTTL <= 0 {
			return errors.New("Lockout FailuresTTL must be > 0 when Enabled is true")
		}
	}

	return nil
}

func validatePolicy(name string, p Policy) error {
	// Email window
	if p.Email.Count <= 0 {
		return fmt.Errorf("policy %q: Email Count must be > 0", name)
	}
	if p.Email.Window <= 0 {
		return fmt.Errorf("policy %q: Email Window must be > 0", name)
	}
	if p.Email.KeyTTL < p.Email.Window {
		return fmt.Errorf("policy %q: Email KeyTTL must be >= Window", name)
	}

	// IP bucket
	if p.IP.Capacity <= 0 {
		return fmt.Errorf("policy %q: IP Capacity must be > 0", name)
	}
	if p.IP.RefillPerHour <= 0 {
		return fmt.Errorf("policy %q: IP RefillPerHour must be > 0", name)
	}
	if p.IP.KeyTTL <= 0 {
		return fmt.Errorf("policy %q: IP KeyTTL must be > 0", name)
	}

	// Progressive delay
	if p.Progressive.DefaultDelay < 0 {
		return fmt.Errorf("policy %q: Progressive DefaultDelay must be >= 0", name)
	}
	if p.Progressive.AttemptsTTL <= 0 {
		return fmt.Errorf("policy %q: Progressive AttemptsTTL must be > 0", name)
	}
	if p.Progressive.LastSeenTTL <= 0 {
		return fmt.Errorf("policy %q: Progressive LastSeenTTL must be > 0", name)
	}
	for attempt, d := range p.Progressive.Delays {
		if attempt < 1 {
			return fmt.Errorf("policy %q: Progressive Delays ordinal %d must be >= 1", name, attempt)
		}
		if d < 0 {
			return fmt.Errorf("policy %q: Progressive Delays value for ordinal %d must be >= 0", name, attempt)
		}
	}

	// Global counter
	if p.Global.Count <= 0 {
		return fmt.Errorf("policy %q: Global Count must be > 0", name)
	}
	if p.Global.Window <= 0 {
		return fmt.Errorf("policy %q: Global Window must be > 0", name)
	}

	return nil
}
