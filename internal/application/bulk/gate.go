package bulk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailops/backend/internal/domain/bulk"
	"github.com/retailops/backend/internal/infrastructure/logger"
)

// ErrOperationMismatch is returned when a token is presented for a different
// operation than the one it was issued for.
var ErrOperationMismatch = errors.New("bulk: confirmation token was issued for a different operation")

// Thresholds tunes the safety gate.
type Thresholds struct {
	// ConfirmRecordCount is the record count at or above which a bulk
	// operation requires confirmation
	ConfirmRecordCount int
	// CriticalRecordCount is the record count at or above which the
	// assessment additionally recommends a backup
	CriticalRecordCount int
}

// DefaultThresholds returns the safety gate defaults
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConfirmRecordCount:  100,
		CriticalRecordCount: 1000,
	}
}

// Assessment is the gate's verdict for a proposed operation.
type Assessment struct {
	// RequiresConfirmation is true when the caller must confirm with the
	// issued token before executing
	RequiresConfirmation bool `json:"requires_confirmation"`
	// Token is the single-use confirmation token, set when confirmation is
	// required
	Token string `json:"token,omitempty"`
	// ExpiresAt is the token's expiry, set when confirmation is required
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// Warning carries operator-facing advice for critical operations
	Warning string `json:"warning,omitempty"`
}

// Gate is the safety gate in front of bulk and destructive operations.
// Destructive operations always require confirmation regardless of record
// count; non-destructive bulk operations require it at or above the
// configured threshold. Every confirmed execution is appended to the audit
// log.
type Gate struct {
	tokens     bulk.TokenRepository
	audit      bulk.AuditRepository
	thresholds Thresholds
	logger     *zap.Logger
}

// NewGate creates a safety gate
func NewGate(tokens bulk.TokenRepository, audit bulk.AuditRepository, thresholds Thresholds, log *zap.Logger) *Gate {
	if thresholds.ConfirmRecordCount <= 0 {
		thresholds = DefaultThresholds()
	}
	return &Gate{tokens: tokens, audit: audit, thresholds: thresholds, logger: log}
}

// Assess evaluates a proposed operation. When confirmation is required a
// token is issued; otherwise the caller may execute immediately.
func (g *Gate) Assess(ctx context.Context, tenantID uuid.UUID, operation string, recordCount int, destructive bool) (*Assessment, error) {
	if !destructive && recordCount < g.thresholds.ConfirmRecordCount {
		return &Assessment{RequiresConfirmation: false}, nil
	}

	token, err := bulk.NewConfirmationToken(tenantID, operation, recordCount, destructive)
	if err != nil {
		return nil, err
	}
	if err := g.tokens.Save(ctx, token); err != nil {
		return nil, err
	}

	assessment := &Assessment{
		RequiresConfirmation: true,
		Token:                token.Token,
		ExpiresAt:            &token.ExpiresAt,
	}
	if recordCount >= g.thresholds.CriticalRecordCount {
		assessment.Warning = fmt.Sprintf("operation affects %d records; taking a backup first is strongly recommended", recordCount)
	}

	logger.L(ctx).Info("Confirmation required for bulk operation",
		zap.String("operation", operation),
		zap.Int("record_count", recordCount),
		zap.Bool("destructive", destructive),
	)
	return assessment, nil
}

// Confirm validates and consumes a token for the named operation. The token
// is consumed even if the execution that follows fails; a retry needs a
// fresh assessment. The confirmed operation is appended to the audit log.
func (g *Gate) Confirm(ctx context.Context, tenantID uuid.UUID, tokenValue, operation string) error {
	token, err := g.tokens.Find(ctx, tenantID, tokenValue)
	if err != nil {
		return err
	}
	if token.Description != operation {
		return ErrOperationMismatch
	}
	if err := token.Consume(time.Now()); err != nil {
		return err
	}
	if err := g.tokens.Save(ctx, token); err != nil {
		return err
	}

	entry := bulk.NewAuditEntry(tenantID, operation, token.RecordCount, token.Destructive, token.Token)
	if err := g.audit.Append(ctx, entry); err != nil {
		return err
	}

	logger.L(ctx).Info("Bulk operation confirmed",
		zap.String("operation", operation),
		zap.Int("record_count", token.RecordCount),
		zap.Bool("destructive", token.Destructive),
	)
	return nil
}

// AuditTrail returns the tenant's audit log, newest first
func (g *Gate) AuditTrail(ctx context.Context, tenantID uuid.UUID, limit int) ([]bulk.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return g.audit.ListForTenant(ctx, tenantID, limit)
}
