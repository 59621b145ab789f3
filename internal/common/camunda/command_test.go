package camunda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecutionBudget(t *testing.T) {
	tests := []struct {
		name       string
		jobTimeout time.Duration
		want       time.Duration
	}{
		{"long job keeps command headroom", 120 * time.Second, 110 * time.Second},
		{"boundary halves", 2 * CommandTimeout, CommandTimeout},
		{"short job halves", 200 * time.Millisecond, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExecutionBudget(tt.jobTimeout)
			assert.Equal(t, tt.want, got)
			assert.Less(t, got, tt.jobTimeout)
		})
	}
}

func TestCommandContext_FreshDeadline(t *testing.T) {
	ctx, cancel := CommandContext()
	defer cancel()

	assert.NoError(t, ctx.Err())
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(CommandTimeout), deadline, time.Second)
}
