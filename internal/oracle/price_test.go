package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOracleRetainsPreviousValueOnFetchError(t *testing.T) {
	o := New("ETH", 3000, time.Hour, func(ctx context.Context) (float64, error) {
		return 0, errors.New("timeout")
	})

	assert.Equal(t, 3000.0, o.Value())
	o.refreshOnce(context.Background())
	assert.Equal(t, 3000.0, o.Value(), "value must be retained on fetch failure")
}

func TestOracleUpdatesOnSuccess(t *testing.T) {
	o := New("SOL", 150, time.Hour, func(ctx context.Context) (float64, error) {
		return 180.5, nil
	})

	o.refreshOnce(context.Background())
	assert.Equal(t, 180.5, o.Value())
}

func TestOracleIgnoresNonPositive(t *testing.T) {
	o := New("SOL", 150, time.Hour, func(ctx context.Context) (float64, error) {
		return 0, nil
	})

	o.refreshOnce(context.Background())
	assert.Equal(t, 150.0, o.Value())
}
