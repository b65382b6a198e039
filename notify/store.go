package notify

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by Store implementations. Handlers map them to
// HTTP statuses; the dispatcher only logs them.
var (
	ErrNotFound = errors.New("notification not found")
	ErrNotOwned = errors.New("notification does not belong to this user")
)

// Notification is a durable per-recipient record of a delivered event.
// Created exactly once per (event, recipient) by the dispatcher; only the
// read-state toggle mutates it afterwards. Drivers never touch it.
type Notification struct {
	ID          int        `json:"id"`
	RecipientID int        `json:"recipientId"`
	ActorID     int        `json:"actorId"`
	ProjectID   int        `json:"projectId,omitempty"`
	TaskID      int        `json:"taskId,omitempty"`
	Kind        string     `json:"kind"`
	Message     string     `json:"message"`
	IsRead      bool       `json:"isRead"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReadAt      *time.Time `json:"readAt,omitempty"`

	// ActorName is enriched from the employee directory on reads;
	// it is not stored.
	ActorName string `json:"actorName,omitempty"`
}

// SortOrder selects listing direction by creation time.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ListParams are the validated, clamped query parameters for List.
type ListParams struct {
	Page    int
	PerPage int
	Sort    SortOrder
	// Search filters by case-insensitive substring match over the rendered
	// message; empty means no filter.
	Search string
}

// Offset converts page/perPage to a row offset.
func (p ListParams) Offset() int { return (p.Page - 1) * p.PerPage }

// Store is the persistence boundary for notifications. The data layer owns
// the implementation; this core defines the contract.
type Store interface {
	// Create persists the record and returns it with ID and CreatedAt set.
	Create(ctx context.Context, n Notification) (Notification, error)
	// List returns one page of the user's notifications plus the total count
	// matching the filter.
	List(ctx context.Context, userID int, params ListParams) ([]Notification, int, error)
	// MarkRead flips the read flag. Idempotent: re-marking a read
	// notification is a no-op. Returns ErrNotFound for unknown ids and
	// ErrNotOwned when the notification belongs to someone else.
	MarkRead(ctx context.Context, id, userID int) error
	// MarkAllRead marks every unread notification of the user as read.
	MarkAllRead(ctx context.Context, userID int) error
}
