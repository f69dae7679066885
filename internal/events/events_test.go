package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderEventJSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	body, err := json.Marshal(OrderEvent{Type: TypeOrderCreated, OrderID: "o1", UserID: "u1", Status: "Processing", Total: 1500, At: at})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "order.created", decoded["type"])
	assert.Equal(t, 1500.0, decoded["total"])
	assert.NotContains(t, decoded, "sessionId")
}

func TestRecorderAndNop(t *testing.T) {
	var p Publisher = &Recorder{}
	require.NoError(t, p.Publish(context.Background(), OrderEvent{Type: TypeOrderCreated}))
	require.NoError(t, p.Publish(context.Background(), OrderEvent{Type: TypeOrderStatusChanged}))
	assert.Equal(t, []string{TypeOrderCreated, TypeOrderStatusChanged}, p.(*Recorder).Types())

	assert.NoError(t, Nop{}.Publish(context.Background(), OrderEvent{}))
	assert.NoError(t, Nop{}.Close())
}
