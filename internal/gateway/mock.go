package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WithdrawalRequest asks the chain bridge to broadcast an approved withdrawal.
type WithdrawalRequest struct {
	WithdrawalID uuid.UUID
	UserID       uuid.UUID
	Destination  string
	NetAmount    int64
	StakeAmount  int64
}

// Bridge represents the external blockchain bridge.
type Bridge interface {
	// SubmitWithdrawal queues an on-chain transfer and returns the bridge reference.
	SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (string, error)
}

// MockBridge simulates the bridge with a random delay and failure rate.
type MockBridge struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
	// MaxDelay bounds the simulated network latency.
	MaxDelay time.Duration

	mu        sync.Mutex
	submitted []WithdrawalRequest
}

func NewMockBridge() *MockBridge {
	return &MockBridge{
		FailureRate: 0.1,
		MaxDelay:    2 * time.Second,
	}
}

func (b *MockBridge) SubmitWithdrawal(ctx context.Context, req WithdrawalRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("bridge call canceled: %w", err)
	}
	if b.MaxDelay > 0 {
		delay := time.Duration(rand.Int63n(int64(b.MaxDelay)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("bridge call canceled: %w", ctx.Err())
		}
	}

	if rand.Float64() < b.FailureRate {
		return "", fmt.Errorf("bridge temporarily unavailable")
	}

	b.mu.Lock()
	b.submitted = append(b.submitted, req)
	b.mu.Unlock()

	// Format: BRIDGE-YYYYMMDD-HHMMSS-XXXXX
	ref := fmt.Sprintf("BRIDGE-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000))
	return ref, nil
}

// Submitted returns every request the mock accepted.
func (b *MockBridge) Submitted() []WithdrawalRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]WithdrawalRequest(nil), b.submitted...)
}
