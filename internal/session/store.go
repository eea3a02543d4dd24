// Package session provides storage backends for seating chart sessions.
// Charts live for a bounded time and are keyed by their chart ID.
package session

import (
	"context"
	"errors"
	"time"

	"seatplan/api/internal/seating"
)

// DefaultTTL is how long a chart survives without the backend being told
// otherwise.
const DefaultTTL = 6 * time.Hour

// ErrNotFound is returned when a chart ID is unknown or has expired.
var ErrNotFound = errors.New("chart not found")

// SyncState tracks the AI reconciliation lifecycle for a chart.
type SyncState struct {
	Status          string `json:"status"`
	Attempt         int    `json:"attempt"`
	Seq             int64  `json:"seq"`
	SnapshotVersion int64  `json:"snapshotVersion"`
	Stale           bool   `json:"stale"`
}

// Failure is the stored outcome of a failed background operation. It stays
// attached to the chart until the user dismisses it or an operation
// succeeds.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Record is everything stored per chart session.
type Record struct {
	Chart     seating.State `json:"chart"`
	Sync      SyncState     `json:"sync"`
	LastError *Failure      `json:"lastError,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store is implemented by the chart session backends. Every write refreshes
// the record's TTL.
type Store interface {
	Get(ctx context.Context, chartID string) (Record, error)
	Put(ctx context.Context, chartID string, record Record) error
	Delete(ctx context.Context, chartID string) error
	Ping(ctx context.Context) error
	Close() error
}
