package bulk

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTokenUnknown  = errors.New("bulk: unknown confirmation token")
	ErrTokenExpired  = errors.New("bulk: confirmation token expired")
	ErrTokenConsumed = errors.New("bulk: confirmation token already consumed")
)

// TokenValidity is the fixed window during which an issued token can be
// consumed.
const TokenValidity = 5 * time.Minute

// ConfirmationToken gates a bulk or destructive operation behind an explicit
// confirmation. Tokens are single use and short lived; consuming a token
// marks it consumed regardless of the execution outcome that follows.
type ConfirmationToken struct {
	Token       string
	TenantID    uuid.UUID
	Description string
	RecordCount int
	Destructive bool
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Consumed    bool
	ConsumedAt  *time.Time
}

// NewConfirmationToken issues a token for the described operation
func NewConfirmationToken(tenantID uuid.UUID, description string, recordCount int, destructive bool) (*ConfirmationToken, error) {
	if tenantID == uuid.Nil {
		return nil, errors.New("bulk: invalid tenant ID")
	}
	if description == "" {
		return nil, errors.New("bulk: operation description is required")
	}
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	now := time.Now()
	return &ConfirmationToken{
		Token:       hex.EncodeToString(raw),
		TenantID:    tenantID,
		Description: description,
		RecordCount: recordCount,
		Destructive: destructive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(TokenValidity),
	}, nil
}

// IsExpired reports whether the token is past its validity window
func (t *ConfirmationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Consume marks the token consumed. Expired or already-consumed tokens are
// rejected with the matching sentinel.
func (t *ConfirmationToken) Consume(now time.Time) error {
	if t.Consumed {
		return ErrTokenConsumed
	}
	if t.IsExpired(now) {
		return ErrTokenExpired
	}
	t.Consumed = true
	consumedAt := now
	t.ConsumedAt = &consumedAt
	return nil
}

// TokenRepository persists confirmation tokens.
type TokenRepository interface {
	// Save creates or updates a token
	Save(ctx context.Context, token *ConfirmationToken) error

	// Find returns the token scoped to a tenant, or ErrTokenUnknown
	Find(ctx context.Context, tenantID uuid.UUID, token string) (*ConfirmationToken, error)
}

// ---------------------------------------------------------------------------
// Audit log
// ---------------------------------------------------------------------------

// AuditEntry records one destructive or bulk operation in the append-only
// audit log.
type AuditEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Operation   string
	RecordCount int
	Destructive bool
	Token       string
	OccurredAt  time.Time
}

// NewAuditEntry creates an audit entry for a confirmed operation
func NewAuditEntry(tenantID uuid.UUID, operation string, recordCount int, destructive bool, token string) *AuditEntry {
	return &AuditEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Operation:   operation,
		RecordCount: recordCount,
		Destructive: destructive,
		Token:       token,
		OccurredAt:  time.Now(),
	}
}

// AuditRepository appends to and reads the audit log. There is no update or
// delete path.
type AuditRepository interface {
	// Append writes an entry
	Append(ctx context.Context, entry *AuditEntry) error

	// ListForTenant returns entries for a tenant, newest first
	ListForTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AuditEntry, error)
}
