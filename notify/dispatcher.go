package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"taskpulse-api/pkg/events"
	"taskpulse-api/realtime"
)

// RecipientResolver computes the audience of an event (watchers, members,
// assignees), excluding the actor. Owned by the membership layer; the
// dispatcher treats it as a pure function.
type RecipientResolver interface {
	Resolve(ctx context.Context, ev events.Event) ([]int, error)
}

// Dispatcher turns published events into persisted notifications and pushes
// them through every enabled driver. Per recipient, persistence strictly
// precedes any push, so a client that receives a push and immediately
// re-fetches its notifications always finds the record. Across recipients and
// across drivers everything runs in parallel.
type Dispatcher struct {
	resolver RecipientResolver
	store    Store
	drivers  []realtime.Driver
	log      *slog.Logger
}

func NewDispatcher(resolver RecipientResolver, store Store, drivers []realtime.Driver) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		store:    store,
		drivers:  drivers,
		log:      slog.Default().With("component", "dispatcher"),
	}
}

// Register subscribes the dispatcher to every event kind on the bus, in
// background mode: the publisher never waits on recipient resolution,
// persistence or transports. The audit recorder stays awaited, so the trail
// is durable before the fan-out for the same event starts.
func (d *Dispatcher) Register(bus *events.Bus) {
	bus.SubscribeBackground(d.Handle, events.AllKinds()...)
}

// Handle fans out one event. A recipient-resolution failure abandons the
// fan-out for this attempt (re-publish is the originating action's call);
// every other failure is scoped to a single recipient or driver.
func (d *Dispatcher) Handle(ctx context.Context, ev events.Event) error {
	recipients, err := d.resolver.Resolve(ctx, ev)
	if err != nil {
		return fmt.Errorf("resolve recipients for %s: %w", ev.Kind, err)
	}
	if len(recipients) == 0 {
		return nil
	}

	message := Render(ev)

	var wg sync.WaitGroup
	for _, userID := range recipients {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			d.notifyOne(ctx, ev, userID, message)
		}(userID)
	}
	wg.Wait()
	return nil
}

// pushPayload is the rendered JSON shared by all drivers.
type pushPayload struct {
	ID        int    `json:"id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	ActorID   int    `json:"actorId"`
	ProjectID int    `json:"projectId,omitempty"`
	TaskID    int    `json:"taskId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func (d *Dispatcher) notifyOne(ctx context.Context, ev events.Event, userID int, message string) {
	record := Notification{
		RecipientID: userID,
		ActorID:     ev.ActorID,
		ProjectID:   ev.ProjectID,
		Kind:        string(ev.Kind),
		Message:     message,
	}
	if isTaskKind(ev.Kind) {
		record.TaskID = ev.SubjectID
	}

	stored, err := d.store.Create(ctx, record)
	if err != nil {
		// Without the durable record the happens-before contract is broken,
		// so no push for this recipient.
		d.log.Error("notification dropped: persistence failed",
			"kind", ev.Kind, "recipientId", userID, "err", err)
		return
	}

	data, err := json.Marshal(pushPayload{
		ID:        stored.ID,
		Kind:      stored.Kind,
		Message:   stored.Message,
		ActorID:   stored.ActorID,
		ProjectID: stored.ProjectID,
		TaskID:    stored.TaskID,
		CreatedAt: stored.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		d.log.Error("failed to marshal push payload", "notificationId", stored.ID, "err", err)
		return
	}
	msg := realtime.Message{Event: stored.Kind, Data: data}

	var wg sync.WaitGroup
	for _, drv := range d.drivers {
		wg.Add(1)
		go func(drv realtime.Driver) {
			defer wg.Done()
			switch outcome := drv.Deliver(ctx, userID, msg); outcome {
			case realtime.TransportError:
				d.log.Warn("push failed", "driver", drv.Kind(), "recipientId", userID, "notificationId", stored.ID)
			case realtime.NoActiveConnection:
				d.log.Debug("no active connection", "driver", drv.Kind(), "recipientId", userID)
			}
		}(drv)
	}
	wg.Wait()
}

func isTaskKind(k events.Kind) bool {
	switch k {
	case events.TaskStatusChanged, events.TaskTitleChanged, events.TaskAssigneeChanged,
		events.TaskDueDateChanged, events.TaskCommented:
		return true
	}
	return false
}
