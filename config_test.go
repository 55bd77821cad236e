package rampguard

import (
	"testing"
	"time"
)

func TestConfigValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "no policies invalid",
			mutate: func(c *Config) {
				c.Policies = nil
			},
			wantValid: false,
		},
		{
			name: "empty subject invalid",
			mutate: func(c *Config) {
				c.Policies[""] = DefaultOTPPolicy()
			},
			wantValid: false,
		},
		{
			name: "email count zero invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.Email.Count = 0
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "email ttl below window invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.Email.KeyTTL = p.Email.Window / 2
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "ip capacity zero invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.IP.Capacity = 0
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "ip refill zero invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.IP.RefillPerHour = 0
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "negative delay invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.Progressive.Delays[3] = -time.Second
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "delay ordinal zero invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.Progressive.Delays[0] = time.Second
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "zero-wait delays valid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.Progressive.Delays = map[int]time.Duration{1: 0, 2: 0}
				p.Progressive.DefaultDelay = 0
				c.Policies[SubjectOTP] = p
			},
			wantValid: true,
		},
		{
			name: "global count zero invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.Global.Count = 0
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "global window zero invalid",
			mutate: func(c *Config) {
				p := c.Policies[SubjectOTP]
				p.Global.Window = 0
				c.Policies[SubjectOTP] = p
			},
			wantValid: false,
		},
		{
			name: "lock ttl zero invalid",
			mutate: func(c *Config) {
				c.Lock.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "lockout enabled without cap invalid",
			mutate: func(c *Config) {
				c.Lockout.Enabled = true
				c.Lockout.MaxFailures = 0
			},
			wantValid: false,
		},
		{
			name: "lockout enabled without duration invalid",
			mutate: func(c *Config) {
				c.Lockout.Enabled = true
				c.Lockout.Duration = 0
			},
			wantValid: false,
		},
		{
			name: "lockout disabled ignores fields",
			mutate: func(c *Config) {
				c.Lockout = LockoutConfig{Enabled: false}
			},
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	otp, ok := cfg.Policies[SubjectOTP]
	if !ok {
		t.Fatal("otp policy missing from defaults")
	}
	if otp.Email.Count != 5 || otp.Email.Window != time.Hour {
		t.Fatalf("otp email policy = %d per %v, want 5 per 1h", otp.Email.Count, otp.Email.Window)
	}
	if otp.IP.Capacity != 20 || otp.IP.RefillPerHour != 10 {
		t.Fatalf("otp ip policy = cap %d refill %v, want 20/10", otp.IP.Capacity, otp.IP.RefillPerHour)
	}
	if otp.Progressive.Delays[3] != 30*time.Second || otp.Progressive.DefaultDelay != 15*time.Minute {
		t.Fatalf("otp progressive ladder wrong: %v default %v",
			otp.Progressive.Delays, otp.Progressive.DefaultDelay)
	}
	if otp.Global.Count != 1000 || otp.Global.Window != time.Minute {
		t.Fatalf("otp global = %d per %v, want 1000 per 1m", otp.Global.Count, otp.Global.Window)
	}

	wd, ok := cfg.Policies[SubjectWithdrawal]
	if !ok {
		t.Fatal("withdrawal policy missing from defaults")
	}
	if wd.Email.Count != 3 || wd.IP.Capacity != 10 || wd.Global.Count != 500 {
		t.Fatalf("withdrawal policy = email %d / ip %d / global %d, want 3/10/500",
			wd.Email.Count, wd.IP.Capacity, wd.Global.Count)
	}

	if cfg.Lock.TTL != 30*time.Second {
		t.Fatalf("lock TTL = %v, want 30s", cfg.Lock.TTL)
	}
	if cfg.Lockout.Enabled || cfg.Audit.Enabled || cfg.Metrics.Enabled {
		t.Fatal("lockout, audit, and metrics must default to disabled")
	}
}

func TestCloneConfigIsolation(t *testing.T) {
	original := DefaultConfig()
	clone := cloneConfig(original)

	p := clone.Policies[SubjectOTP]
	p.Email.Count = 999
	p.Progressive.Delays[3] = 999 * time.Second
	clone.Policies[SubjectOTP] = p
	clone.Policies["extra"] = DefaultOTPPolicy()

	if original.Policies[SubjectOTP].Email.Count == 999 {
		t.Fatal("clone shares the policy map with the original")
	}
	if original.Policies[SubjectOTP].Progressive.Delays[3] == 999*time.Second {
		t.Fatal("clone shares the delay map with the original")
	}
	if _, ok := original.Policies["extra"]; ok {
		t.Fatal("adding a subject to the clone leaked into the original")
	}
}

func TestDefaultConfigReturnsFreshCopies(t *testing.T) {
	a := DefaultConfig()
	a.Policies[SubjectOTP].Progressive.Delays[3] = 0

	b := DefaultConfig()
	if b.Policies[SubjectOTP].Progressive.Delays[3] != 30*time.Second {
		t.Fatal("DefaultConfig shares state between calls")
	}
}
