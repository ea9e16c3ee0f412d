package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var calls []string
	d.Subscribe(EventTaskAssigned, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTaskAssigned, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventSignedIn, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	if err := d.Publish(context.Background(), New(EventTaskAssigned, "task-1", "admin-1", nil)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected handler calls: %v", calls)
	}
}

func TestNewStampsEvent(t *testing.T) {
	ev := New(EventPropertyReviewed, "prop-1", "admin-1", PropertyReviewedPayload{})
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatalf("event not stamped: %+v", ev)
	}
	if ev.SubjectID != "prop-1" || ev.ActorID != "admin-1" {
		t.Fatalf("unexpected ids: %+v", ev)
	}
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	ran := false
	d.Subscribe(EventPropertySubmitted, func(context.Context, Event) error {
		panic("nil webhook client")
	})
	d.Subscribe(EventPropertySubmitted, func(context.Context, Event) error {
		ran = true
		return nil
	})

	if err := d.Publish(context.Background(), New(EventPropertySubmitted, "prop-1", "user-1", nil)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !ran {
		t.Fatal("handler after the panicking one did not run")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	if err := d.Publish(context.Background(), New(EventTaskOverdue, "task-1", "", nil)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
