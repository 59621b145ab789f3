package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordAndShutdown(t *testing.T) {
	obs, err := New("retail-chat-test")
	require.NoError(t, err)
	defer obs.Shutdown()

	ctx := context.Background()
	assert.NotPanics(t, func() {
		obs.RecordChatTurn(ctx, "openai", "options", 420*time.Millisecond)
		obs.RecordJobProcessed(ctx, "generate-chat-response", "completed")
		obs.RecordJobDuration(ctx, "generate-chat-response", time.Second)
	})
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordChatTurn(context.Background(), "business-logic", "text", time.Millisecond)
		obs.RecordJobProcessed(context.Background(), "capture-lead", "failed")
		obs.Shutdown()
	})

	empty := &Observability{}
	assert.NotPanics(t, func() {
		empty.RecordJobDuration(context.Background(), "capture-lead", time.Millisecond)
	})
}
