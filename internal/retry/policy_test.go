package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, BackoffExponential, p.Mode)
	assert.Equal(t, 2*time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 4, p.MaxRetries)
}

// TestNewPolicy checks override precedence and clamping when initial > max.
func TestNewPolicy(t *testing.T) {
	p := NewPolicy(BackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, BackoffFixed, p.Mode)
	assert.Equal(t, 2*time.Second, p.Initial, "initial above max should be clamped")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, 5, p.MaxRetries)
}

// TestNewPolicy_UnknownMode keeps the default mode when an unknown string is supplied.
func TestNewPolicy_UnknownMode(t *testing.T) {
	p := NewPolicy("weird", 250*time.Millisecond, 500*time.Millisecond, 1)
	assert.Equal(t, BackoffExponential, p.Mode)
}

// TestPolicy_Delay ensures fixed, linear, and exponential growth respect the cap.
func TestPolicy_Delay(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		attempt  int
		expected time.Duration
	}{
		{"fixed first", NewPolicy(BackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3), 1, 100 * time.Millisecond},
		{"fixed third", NewPolicy(BackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3), 3, 100 * time.Millisecond},
		{"linear first", NewPolicy(BackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5), 1, 100 * time.Millisecond},
		{"linear second", NewPolicy(BackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5), 2, 200 * time.Millisecond},
		{"linear capped", NewPolicy(BackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5), 4, 250 * time.Millisecond},
		{"exponential first", NewPolicy(BackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5), 1, 50 * time.Millisecond},
		{"exponential second", NewPolicy(BackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5), 2, 100 * time.Millisecond},
		{"exponential capped", NewPolicy(BackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5), 3, 160 * time.Millisecond},
		{"zero attempt", DefaultPolicy(), 0, 0},
		{"negative attempt", DefaultPolicy(), -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.policy.Delay(tt.attempt))
		})
	}
}

// TestPolicy_Sleep_Cancelled returns promptly with the context error when cancelled.
func TestPolicy_Sleep_Cancelled(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Minute, time.Minute, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Sleep(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestPolicy_Sleep_ZeroDelay returns immediately for non-positive attempts.
func TestPolicy_Sleep_ZeroDelay(t *testing.T) {
	p := DefaultPolicy()
	err := p.Sleep(context.Background(), 0)
	assert.NoError(t, err)
}

// TestPolicy_Validate covers validation error paths.
func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"valid", Policy{Mode: BackoffLinear, Initial: time.Second, Max: 2 * time.Second, MaxRetries: 0}, false},
		{"zero initial", Policy{Mode: BackoffLinear, Initial: 0, Max: time.Second, MaxRetries: 1}, true},
		{"zero max", Policy{Mode: BackoffLinear, Initial: time.Second, Max: 0, MaxRetries: 1}, true},
		{"negative retries", Policy{Mode: BackoffLinear, Initial: time.Second, Max: 2 * time.Second, MaxRetries: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
