package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderKeepsOrder(t *testing.T) {
	r := &Recorder{}
	user := uuid.New()
	r.Publish(context.Background(), New(WithdrawalRequested, user, nil))
	r.Publish(context.Background(), New(WithdrawalApproved, user, nil))

	assert.Equal(t, []string{WithdrawalRequested, WithdrawalApproved}, r.Types())
	assert.Equal(t, user, r.Events()[0].UserID)
}

func TestEventEnvelopeJSON(t *testing.T) {
	e := New(IncomeCredited, uuid.New(), map[string]any{"amount": 10})
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, IncomeCredited, decoded["type"])
	assert.Contains(t, decoded, "created_at")
}
