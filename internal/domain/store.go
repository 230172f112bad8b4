package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ClosedPositionStore persists the append-only log of closed spread
// positions. There is deliberately no update or delete: a closed position is
// a historical record.
type ClosedPositionStore interface {
	Append(ctx context.Context, pos SpreadPosition) error
	List(ctx context.Context, opts ListOpts) ([]SpreadPosition, error)
	Count(ctx context.Context) (int64, error)
}

// OrderLogStore persists a record of every order routed through the service.
type OrderLogStore interface {
	Insert(ctx context.Context, rec OrderRecord) error
	List(ctx context.Context, broker BrokerName, opts ListOpts) ([]OrderRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
