package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityKind labels an entry in a record's audit trail.
type ActivityKind string

const (
	ActivityCreated         ActivityKind = "created"
	ActivityStatusChanged   ActivityKind = "status_changed"
	ActivityRescheduled     ActivityKind = "rescheduled"
	ActivitySpecsAttached   ActivityKind = "specs_attached"
	ActivityRefundRequested ActivityKind = "refund_requested"
	ActivityRefundResolved  ActivityKind = "refund_resolved"
)

// ActivityEntry is an immutable audit record. Entries are only ever appended,
// in non-decreasing timestamp order; the record's status column stays
// authoritative and the log is audit-only.
type ActivityEntry struct {
	ID        uuid.UUID    `json:"id"`
	Kind      ActivityKind `json:"kind"`
	Message   string       `json:"message"`
	ActorRole Role         `json:"actor_role"`
	ActorID   uuid.UUID    `json:"actor_id"`
	Timestamp time.Time    `json:"timestamp"`
}
