package core

import "errors"

// MaxExtensions is the maximum number of times a loan can be extended.
const MaxExtensions = 1

// ErrExtensionLimitExceeded is returned when a loan would be extended beyond MaxExtensions.
var ErrExtensionLimitExceeded = errors.New("extension limit exceeded")

// ExtensionCount is a value object constrained to the range [0, MaxExtensions].
// Values outside that range cannot be constructed.
type ExtensionCount struct {
	value int
}

// NewExtensionCount creates an ExtensionCount of zero.
func NewExtensionCount() ExtensionCount {
	return ExtensionCount{value: 0}
}

// ExtensionCountFromInt validates and converts a raw count, typically read back
// from a persisted event. Returns ErrExtensionLimitExceeded for out-of-range values.
func ExtensionCountFromInt(value int) (ExtensionCount, error) {
	if value < 0 || value > MaxExtensions {
		return ExtensionCount{}, ErrExtensionLimitExceeded
	}

	return ExtensionCount{value: value}, nil
}

// Increment returns the incremented count or ErrExtensionLimitExceeded
// if the limit has already been reached.
func (c ExtensionCount) Increment() (ExtensionCount, error) {
	if c.value >= MaxExtensions {
		return ExtensionCount{}, ErrExtensionLimitExceeded
	}

	return ExtensionCount{value: c.value + 1}, nil
}

// Value returns the raw count.
func (c ExtensionCount) Value() int {
	return c.value
}

// CanExtend reports whether another extension is still allowed.
func (c ExtensionCount) CanExtend() bool {
	return c.value < MaxExtensions
}
