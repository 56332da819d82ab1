package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(context.Context) error { return nil }

func fail(context.Context) error { return errors.New("connection refused") }

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]CheckFunc
		expected Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all pass", map[string]CheckFunc{"a": pass, "b": pass}, StatusHealthy},
		{"some fail", map[string]CheckFunc{"a": pass, "b": fail}, StatusDegraded},
		{"all fail", map[string]CheckFunc{"a": fail, "b": fail}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, fn := range tt.checks {
				_ = c.RunCheck(context.Background(), name, fn)
			}
			assert.Equal(t, tt.expected, c.GetOverallStatus())
		})
	}
}

func TestChecksAreSortedAndReplaced(t *testing.T) {
	c := NewChecker()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.Error(t, c.RunCheck(context.Background(), "zeta", fail))
	require.NoError(t, c.RunCheck(context.Background(), "alpha", pass))

	checks := c.GetAllChecks()
	require.Len(t, checks, 2)
	assert.Equal(t, "alpha", checks[0].Name)
	assert.Equal(t, "zeta", checks[1].Name)
	assert.Equal(t, "connection refused", checks[1].Message)

	clock = clock.Add(time.Minute)
	require.NoError(t, c.RunCheck(context.Background(), "zeta", pass))
	assert.Equal(t, StatusHealthy, c.GetOverallStatus())
	assert.Equal(t, clock, c.GetLastHealthyTime())
}
