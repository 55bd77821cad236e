package rampguard

import "context"

// RecordAuthFailure describes the recordauthfailure operation and its observable behavior.
//
// RecordAuthFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordAuthFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// It increments the failure counter for the identifier and returns
// [ErrAccountLocked] the moment the configured cap is reached. Callers invoke
// it after a failed verification (wrong OTP code, rejected withdrawal
// confirmation) and should treat [ErrAccountLocked] as a terminal state for
// the identifier until the lockout expires or is reset.
func (e *Engine) RecordAuthFailure(ctx context.Context, subject, identifier string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.lockout == nil {
		return ErrLockoutDisabled
	}
	if identifier == "" {
		return ErrIdentifierRequired
	}

	locked, err := e.lockout.RecordFailure(ctx, subject, identifier)
	if err != nil {
		e.metricInc(MetricStoreError)
		e.logger.Error().
			Err(err).
			Str("subject", subject).
			Msg("failure record aborted on store failure")
		return err
	}
	if !locked {
		return nil
	}

	e.metricInc(MetricLockoutTripped)
	e.logger.Warn().
		Str("subject", subject).
		Str("identifier", identifier).
		Msg("identifier locked out after repeated failures")
	e.emitLockout(ctx, subject, identifier, e.config.Lockout.MaxFailures)

	return ErrAccountLocked
}

// IsAuthLocked describes the isauthlocked operation and its observable behavior.
//
// IsAuthLocked may return an error when input validation, dependency calls, or security checks fail.
// IsAuthLocked does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IsAuthLocked(ctx context.Context, subject, identifier string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	if e.lockout == nil {
		return false, nil
	}
	if identifier == "" {
		return false, ErrIdentifierRequired
	}

	locked, err := e.lockout.IsLocked(ctx, subject, identifier)
	if err != nil {
		e.metricInc(MetricStoreError)
		return false, err
	}
	return locked, nil
}

// ResetAuthFailures describes the resetauthfailures operation and its observable behavior.
//
// ResetAuthFailures may return an error when input validation, dependency calls, or security checks fail.
// ResetAuthFailures does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetAuthFailures(ctx context.Context, subject, identifier string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.lockout == nil {
		return nil
	}
	if identifier == "" {
		return ErrIdentifierRequired
	}

	if err := e.lockout.Reset(ctx, subject, identifier); err != nil {
		e.metricInc(MetricStoreError)
		return err
	}
	return nil
}

// AuthFailureCount describes the authfailurecount operation and its observable behavior.
//
// AuthFailureCount may return an error when input validation, dependency calls, or security checks fail.
// AuthFailureCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuthFailureCount(ctx context.Context, subject, identifier string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.lockout == nil {
		return 0, nil
	}
	if identifier == "" {
		return 0, ErrIdentifierRequired
	}

	count, err := e.lockout.FailureCount(ctx, subject, identifier)
	if err != nil {
		e.metricInc(MetricStoreError)
		return 0, err
	}
	return count, nil
}
