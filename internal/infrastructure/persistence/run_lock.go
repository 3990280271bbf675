package persistence

import (
	"context"
	"database/sql"
	"hash/fnv"
	gosync "sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/backend/internal/domain/sync"
)

// PostgresRunLockManager implements sync.RunLockManager on PostgreSQL
// session-level advisory locks. The lock key is a 64-bit hash of
// (tenant, route); a dedicated connection is pinned per held lock because
// advisory locks are owned by the session that took them.
type PostgresRunLockManager struct {
	db *gorm.DB

	mu    gosync.Mutex
	conns map[int64]*sql.Conn
}

// NewPostgresRunLockManager creates an advisory lock manager
func NewPostgresRunLockManager(db *gorm.DB) *PostgresRunLockManager {
	return &PostgresRunLockManager{
		db:    db,
		conns: make(map[int64]*sql.Conn),
	}
}

// TryAcquire takes the advisory lock for (tenant, route) without blocking
func (m *PostgresRunLockManager) TryAcquire(ctx context.Context, tenantID uuid.UUID, route sync.Route) (bool, error) {
	key := runLockKey(tenantID, route)

	sqlDB, err := m.db.DB()
	if err != nil {
		return false, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return false, err
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return false, err
	}
	if !acquired {
		_ = conn.Close()
		return false, nil
	}

	m.mu.Lock()
	m.conns[key] = conn
	m.mu.Unlock()
	return true, nil
}

// Release releases the advisory lock. Safe to call when the lock was never
// acquired by this manager.
func (m *PostgresRunLockManager) Release(ctx context.Context, tenantID uuid.UUID, route sync.Route) error {
	key := runLockKey(tenantID, route)

	m.mu.Lock()
	conn, ok := m.conns[key]
	delete(m.conns, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	var released bool
	err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&released)
	// Closing the connection releases the session lock even if the unlock
	// call itself failed.
	if cerr := conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// runLockKey hashes (tenant, route) into the advisory lock keyspace
func runLockKey(tenantID uuid.UUID, route sync.Route) int64 {
	h := fnv.New64a()
	h.Write([]byte(tenantID.String()))
	h.Write([]byte{'|'})
	h.Write([]byte(route.String()))
	return int64(h.Sum64())
}

// Ensure PostgresRunLockManager implements sync.RunLockManager
var _ sync.RunLockManager = (*PostgresRunLockManager)(nil)

// ---------------------------------------------------------------------------
// In-memory lock manager
// ---------------------------------------------------------------------------

// InMemoryRunLockManager implements sync.RunLockManager with a process-local
// map. Suitable for tests and single-instance deployments.
type InMemoryRunLockManager struct {
	mu   gosync.Mutex
	held map[int64]bool
}

// NewInMemoryRunLockManager creates an in-memory lock manager
func NewInMemoryRunLockManager() *InMemoryRunLockManager {
	return &InMemoryRunLockManager{held: make(map[int64]bool)}
}

// TryAcquire takes the lock for (tenant, route) without blocking
func (m *InMemoryRunLockManager) TryAcquire(_ context.Context, tenantID uuid.UUID, route sync.Route) (bool, error) {
	key := runLockKey(tenantID, route)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

// Release releases the lock
func (m *InMemoryRunLockManager) Release(_ context.Context, tenantID uuid.UUID, route sync.Route) error {
	key := runLockKey(tenantID, route)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

// Ensure InMemoryRunLockManager implements sync.RunLockManager
var _ sync.RunLockManager = (*InMemoryRunLockManager)(nil)
