package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type AuditRepositoryInterface interface {
	Append(ctx context.Context, entry *models.AuditLog) error
}

type AuditRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewAuditRepository(log *logger.Logger, db *database.DB) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: log.WithComponent("audit_repository"),
	}
}

// Append writes one audit record. Audit failures are reported but the
// caller treats them as best-effort: the log must never block the
// primary operation.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	diff, err := json.Marshal(entry.Diff)
	if err != nil {
		return fmt.Errorf("failed to marshal audit diff: %v", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_role, entity, entity_id, action, diff, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8)`,
		entry.ID, entry.ActorID, entry.ActorRole, entry.Entity, entry.EntityID,
		entry.Action, diff, entry.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to append audit log", "entity", entry.Entity, "entity_id", entry.EntityID, "error", err)
		return fmt.Errorf("failed to append audit log: %v", err)
	}
	return nil
}
