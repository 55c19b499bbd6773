package event_test

import (
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/caseflow/internal/event"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := event.NewBus(8, 4)
	sub := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.SubscriberCount())
	}
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
	if _, ok := <-sub; ok {
		t.Error("expected channel to be closed")
	}
}

func TestPublishFansOut(t *testing.T) {
	b := event.NewBus(8, 4)
	a, c := b.Subscribe(), b.Subscribe()
	defer b.Close()

	e := event.New(event.NodeAdded, "editor", "case_1", nil)
	if dropped := b.Publish(e); dropped != 0 {
		t.Errorf("expected no drops, got %d", dropped)
	}
	for i, sub := range []event.Subscriber{a, c} {
		select {
		case got := <-sub:
			if got.ID != e.ID || got.Type != event.NodeAdded || got.NodeID != "case_1" {
				t.Errorf("subscriber %d: unexpected event %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timeout", i)
		}
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	b := event.NewBus(8, 1)
	b.Subscribe()
	defer b.Close()
	if dropped := b.Publish(event.New(event.NodeAdded, "editor", "a", nil)); dropped != 0 {
		t.Errorf("first publish: expected 0 drops, got %d", dropped)
	}
	if dropped := b.Publish(event.New(event.NodeAdded, "editor", "b", nil)); dropped != 1 {
		t.Errorf("second publish: expected 1 drop, got %d", dropped)
	}
}

func TestRecentKeepsLatest(t *testing.T) {
	b := event.NewBus(3, 1)
	for _, id := range []string{"n1", "n2", "n3", "n4", "n5"} {
		b.Publish(event.New(event.NodeAdded, "editor", id, nil))
	}
	all := b.Recent(0)
	if len(all) != 3 || all[0].NodeID != "n3" || all[2].NodeID != "n5" {
		t.Fatalf("expected n3..n5, got %+v", all)
	}
	last := b.Recent(2)
	if len(last) != 2 || last[0].NodeID != "n4" {
		t.Errorf("expected n4,n5, got %+v", last)
	}
}
