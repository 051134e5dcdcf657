package shell_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loanledger/eventstore"
	"loanledger/shell"
)

func Test_RetryWithExponentialBackoff_SucceedsAfterConflicts(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return eventstore.ErrConcurrencyConflict
		}

		return nil
	}

	// act
	err := shell.RetryWithExponentialBackoff(
		context.Background(), fn, shell.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func Test_RetryWithExponentialBackoff_NonRetryableErrorFailsFast(t *testing.T) {
	// arrange
	permanentErr := errors.New("permanent failure")
	attempts := 0
	fn := func(_ context.Context) error {
		attempts++

		return permanentErr
	}

	// act
	err := shell.RetryWithExponentialBackoff(context.Background(), fn)

	// assert
	assert.ErrorIs(t, err, permanentErr)
	assert.Equal(t, 1, attempts)
}

func Test_RetryWithExponentialBackoff_MaxAttemptsReached(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(_ context.Context) error {
		attempts++

		return eventstore.ErrConcurrencyConflict
	}

	// act
	err := shell.RetryWithExponentialBackoff(
		context.Background(), fn,
		shell.WithMaxAttempts(3),
		shell.WithBaseDelay(time.Millisecond),
		shell.WithJitterFactor(0))

	// assert
	assert.ErrorIs(t, err, eventstore.ErrConcurrencyConflict)
	assert.Equal(t, 3, attempts)
}

func Test_RetryWithExponentialBackoff_ContextCancellationStopsRetries(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(_ context.Context) error {
		cancel()

		return eventstore.ErrConcurrencyConflict
	}

	// act
	err := shell.RetryWithExponentialBackoff(ctx, fn, shell.WithBaseDelay(50*time.Millisecond))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_RetryWithExponentialBackoff_InvalidOptionsAreRejected(t *testing.T) {
	fn := func(_ context.Context) error { return nil }

	assert.ErrorIs(t,
		shell.RetryWithExponentialBackoff(context.Background(), fn, shell.WithMaxAttempts(0)),
		shell.ErrInvalidMaxAttempts)
	assert.ErrorIs(t,
		shell.RetryWithExponentialBackoff(context.Background(), fn, shell.WithBaseDelay(-time.Second)),
		shell.ErrNegativeBaseDelay)
	assert.ErrorIs(t,
		shell.RetryWithExponentialBackoff(context.Background(), fn, shell.WithJitterFactor(1.5)),
		shell.ErrInvalidJitterFactor)
}
