package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ayo6706/invest-ledger/internal/domain"
	"github.com/google/uuid"
)

var ErrInvalidSignature = errors.New("invalid signature")

// WebhookService handles deposit notifications from the chain bridge.
type WebhookService struct {
	deposits *DepositService
	hmacKey  []byte
	skipSig  bool
}

func NewWebhookService(deposits *DepositService, hmacKey string, skipSignature bool) *WebhookService {
	return &WebhookService{
		deposits: deposits,
		hmacKey:  []byte(hmacKey),
		skipSig:  skipSignature,
	}
}

// DepositWebhookPayload is the body the bridge posts for a confirmed deposit.
type DepositWebhookPayload struct {
	UserID       string `json:"user_id"`
	AmountMicros int64  `json:"amount_micros"`
	TxHash       string `json:"tx_hash"`
}

type DepositWebhookResponse struct {
	DepositID uuid.UUID `json:"deposit_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Bonus     int64     `json:"bonus_micros,omitempty"`
}

// HandleDepositWebhook verifies the signature and credits the deposit.
func (s *WebhookService) HandleDepositWebhook(ctx context.Context, payload []byte, signature string) (*DepositWebhookResponse, error) {
	if !s.verifyHMAC(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var body DepositWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.Invalid("body", "invalid payload")
	}
	body.UserID = strings.TrimSpace(body.UserID)
	if body.UserID == "" {
		return nil, domain.Invalid("user_id", "is required")
	}
	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		return nil, domain.Invalid("user_id", "must be a UUID")
	}

	result, err := s.deposits.Credit(ctx, DepositInput{
		UserID: userID,
		Amount: body.AmountMicros,
		TxHash: body.TxHash,
	})
	if err != nil {
		return nil, err
	}
	resp := &DepositWebhookResponse{
		DepositID: result.Deposit.ID.Bytes,
		Status:    result.Deposit.Status,
		Message:   "Deposit processed successfully",
		Bonus:     result.Bonus,
	}
	if result.Duplicate {
		resp.Message = "Deposit already processed"
	}
	return resp, nil
}

// verifyHMAC checks a "sha256=<hex>" signature over the raw body.
func (s *WebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	h := hmac.New(sha256.New, s.hmacKey)
	h.Write(payload)
	expectedSig := "sha256=" + hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
