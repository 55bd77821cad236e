package rampguard

import (
	"errors"

	"github.com/zestpay/rampguard/store"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the abuse-prevention engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrPolicyNotFound is an exported constant or variable used by the abuse-prevention engine.
	ErrPolicyNotFound = errors.New("policy not found")
	// ErrAccountLocked is an exported constant or variable used by the abuse-prevention engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrLockoutDisabled is an exported constant or variable used by the abuse-prevention engine.
	ErrLockoutDisabled = errors.New("failed-attempt lockout disabled")
	// ErrIdentifierRequired is an exported constant or variable used by the abuse-prevention engine.
	ErrIdentifierRequired = errors.New("identifier required")

	// ErrStoreUnavailable is an exported constant or variable used by the abuse-prevention engine.
	//
	// It aliases [store.ErrUnavailable] so callers can match backend failures
	// without importing the store package.
	ErrStoreUnavailable = store.ErrUnavailable
)
