package camunda

import (
	"context"
	"time"
)

// CommandTimeout bounds a single complete, fail or throw-error call to the gateway.
const CommandTimeout = 10 * time.Second

// CommandContext returns the context a job command is sent on. It never
// inherits the deadline the job's work ran under, so a handler that used up
// its budget can still report the outcome.
func CommandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), CommandTimeout)
}

// ExecutionBudget is the part of a job timeout the work itself may use. The
// rest is kept for sending the job command before the broker reassigns the job.
func ExecutionBudget(jobTimeout time.Duration) time.Duration {
	if jobTimeout > 2*CommandTimeout {
		return jobTimeout - CommandTimeout
	}
	return jobTimeout / 2
}
