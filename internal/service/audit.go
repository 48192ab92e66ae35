package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// AuditService writes immutable audit trail entries.
type AuditService struct {
	store QueryStore
}

func NewAuditService(store QueryStore) *AuditService {
	return &AuditService{store: store}
}

// Write stores a single immutable audit record inside the caller's transaction.
func (s *AuditService) Write(ctx context.Context, qtx repository.Querier, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	var actor pgtype.UUID
	if actorID != nil {
		actor = repository.ToPgUUID(*actorID)
	}

	if _, err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: entityType,
		EntityID:   repository.ToPgUUID(entityID),
		ActorID:    actor,
		Action:     action,
		PrevState:  textParam(prevState),
		NextState:  textParam(nextState),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// History lists the audit trail of one entity, oldest first.
func (s *AuditService) History(ctx context.Context, entityType string, entityID uuid.UUID) ([]repository.AuditLog, error) {
	rows, err := s.store.Queries().ListAuditLogByEntity(ctx, repository.ListAuditLogByEntityParams{
		EntityType: entityType,
		EntityID:   repository.ToPgUUID(entityID),
	})
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return rows, nil
}
