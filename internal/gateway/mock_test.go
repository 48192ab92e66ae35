package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockBridgeRecordsSubmissions(t *testing.T) {
	b := &MockBridge{}
	req := WithdrawalRequest{WithdrawalID: uuid.New(), Destination: "0xabc", NetAmount: 95_000_000}

	ref, err := b.SubmitWithdrawal(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, ref, "BRIDGE-")
	assert.Equal(t, []WithdrawalRequest{req}, b.Submitted())
}

func TestMockBridgeAlwaysFails(t *testing.T) {
	b := &MockBridge{FailureRate: 1}
	_, err := b.SubmitWithdrawal(context.Background(), WithdrawalRequest{})
	require.Error(t, err)
	assert.Empty(t, b.Submitted())
}

func TestMockBridgeHonorsCancellation(t *testing.T) {
	b := &MockBridge{MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.SubmitWithdrawal(ctx, WithdrawalRequest{})
	require.ErrorIs(t, err, context.Canceled)
}
