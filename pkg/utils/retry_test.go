package utils_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopflow/fulfillment-service/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := utils.Retry(fastConfig(5), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when attempts run out", func(t *testing.T) {
		calls := 0
		lastErr := errors.New("still failing")
		err := utils.Retry(fastConfig(3), func() error {
			calls++
			return lastErr
		})

		assert.ErrorIs(t, err, lastErr)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error short-circuits", func(t *testing.T) {
		notFound := errors.New("not found")
		calls := 0
		err := utils.Retry(fastConfig(5), func() error {
			calls++
			return notFound
		}, notFound)

		assert.ErrorIs(t, err, notFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("wrapped permanent error short-circuits", func(t *testing.T) {
		notFound := errors.New("not found")
		calls := 0
		err := utils.Retry(fastConfig(5), func() error {
			calls++
			return errors.Join(errors.New("lookup failed"), notFound)
		}, notFound)

		assert.ErrorIs(t, err, notFound)
		assert.Equal(t, 1, calls)
	})
}
