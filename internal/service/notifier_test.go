package service

import (
	"testing"

	"go.uber.org/zap"
)

func TestNotifier_RetriesUntilDelivered(t *testing.T) {
	pub := &recordingPublisher{failN: 2}
	n := NewNotifier(pub, zap.NewNop()).WithRetry(3, 0)

	n.Notify(Event{Type: EventVersionCreated, VersionID: "v1"})
	n.Wait()

	if got := pub.types(); len(got) != 1 || got[0] != EventVersionCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestNotifier_DropsAfterLastAttempt(t *testing.T) {
	pub := &recordingPublisher{failN: 5}
	n := NewNotifier(pub, zap.NewNop()).WithRetry(2, 0)

	n.Notify(Event{Type: EventVersionCreated})
	n.Wait()

	if len(pub.types()) != 0 {
		t.Fatal("event should have been dropped")
	}
	if pub.failN != 3 {
		t.Fatalf("attempts made = %d, want 2", 5-pub.failN)
	}
}

func TestNotifier_NilIsSafe(t *testing.T) {
	var n *Notifier
	n.Notify(Event{Type: EventVersionCreated})
	n.Wait()

	NewNotifier(nil, zap.NewNop()).Notify(Event{Type: EventVersionCreated})
}
