package rampguard

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// policyFile is the YAML document shape accepted by [LoadPolicies].
//
// Durations are spelled as *_seconds integers so policy files stay readable
// next to the ops tooling that edits them. Structural numbers (windows, TTLs)
// receive defaults when omitted; limit magnitudes (counts, capacity, refill)
// are mandatory and validated.
type policyFile struct {
	Policies map[string]policyDoc `yaml:"policies"`
}

type policyDoc struct {
	Email       emailWindowDoc      `yaml:"email"`
	IP          ipBucketDoc         `yaml:"ip"`
	Progressive progressiveDelayDoc `yaml:"progressive"`
	Global      globalLimitDoc      `yaml:"global"`
}

type emailWindowDoc struct {
	Count         int `yaml:"count"`
	WindowSeconds int `yaml:"window_seconds"`
	KeyTTLSeconds int `yaml:"key_ttl_seconds"`
}

type ipBucketDoc struct {
	Capacity      int     `yaml:"capacity"`
	RefillPerHour float64 `yaml:"refill_per_hour"`
	KeyTTLSeconds int     `yaml:"key_ttl_seconds"`
}

type progressiveDelayDoc struct {
	// delays_seconds maps attempt ordinals to waits. An omitted or zero
	// default_delay_seconds falls back to 900; map every ordinal explicitly
	// when a zero default is wanted.
	DelaysSeconds       map[int]int `yaml:"delays_seconds"`
	DefaultDelaySeconds int         `yaml:"default_delay_seconds"`
	AttemptsTTLSeconds  int         `yaml:"attempts_ttl_seconds"`
	LastSeenTTLSeconds  int         `yaml:"last_seen_ttl_seconds"`
}

type globalLimitDoc struct {
	Count         int `yaml:"count"`
	WindowSeconds int `yaml:"window_seconds"`
}

// LoadPolicies describes the loadpolicies operation and its observable behavior.
//
// LoadPolicies may return an error when input validation, dependency calls, or security checks fail.
// LoadPolicies does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func LoadPolicies(path string) (map[string]Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePolicies(b)
}

// ParsePolicies describes the parsepolicies operation and its observable behavior.
//
// ParsePolicies may return an error when input validation, dependency calls, or security checks fail.
// ParsePolicies does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ParsePolicies(data []byte) (map[string]Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Policies) == 0 {
		return nil, errors.New("policy file declares no policies")
	}

	out := make(map[string]Policy, len(file.Policies))
	for name, doc := range file.Policies {
		p := doc.toPolicy()
		if err := validatePolicy(name, p); err != nil {
			return nil, err
		}
		out[name] = p
	}

	return out, nil
}

func (d policyDoc) toPolicy() Policy {
	email := d.Email
	if email.WindowSeconds <= 0 {
		email.WindowSeconds = 3600
	}
	if email.KeyTTLSeconds <= 0 {
		email.KeyTTLSeconds = 2 * email.WindowSeconds
	}

	ip := d.IP
	if ip.KeyTTLSeconds <= 0 {
		ip.KeyTTLSeconds = 7200
	}

	prog := d.Progressive
	if prog.DefaultDelaySeconds <= 0 {
		prog.DefaultDelaySeconds = 900
	}
	if prog.AttemptsTTLSeconds <= 0 {
		prog.AttemptsTTLSeconds = 3600
	}
	if prog.LastSeenTTLSeconds <= 0 {
		prog.LastSeenTTLSeconds = 3600
	}

	global := d.Global
	if global.WindowSeconds <= 0 {
		global.WindowSeconds = 60
	}

	var delays map[int]time.Duration
	if len(prog.DelaysSeconds) > 0 {
		delays = make(map[int]time.Duration, len(prog.DelaysSeconds))
		for attempt, secs := range prog.DelaysSeconds {
			delays[attempt] = time.Duration(secs) * time.Second
		}
	}

	return Policy{
		Email: EmailWindowPolicy{
			Count:  email.Count,
			Window: time.Duration(email.WindowSeconds) * time.Second,
			KeyTTL: time.Duration(email.KeyTTLSeconds) * time.Second,
		},
		IP: IPBucketPolicy{
			Capacity:      ip.Capacity,
			RefillPerHour: ip.RefillPerHour,
			KeyTTL:        time.Duration(ip.KeyTTLSeconds) * time.Second,
		},
		Progressive: ProgressiveDelayPolicy{
			Delays:       delays,
			DefaultDelay: time.Duration(prog.DefaultDelaySeconds) * time.Second,
			AttemptsTTL:  time.Duration(prog.AttemptsTTLSeconds) * time.Second,
			LastSeenTTL:  time.Duration(prog.LastSeenTTLSeconds) * time.Second,
		},
		Global: GlobalLimitPolicy{
			Count:  global.Count,
			Window: time.Duration(global.WindowSeconds) * time.Second,
		},
	}
}
