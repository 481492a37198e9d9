package bus

import "testing"

func TestPublishReachesMatchingSubscribers(t *testing.T) {
	b := New(4)
	defer b.Close()

	alerts, cancelAlerts := b.Subscribe(TopicAlert)
	defer cancelAlerts()
	all, cancelAll := b.Subscribe()
	defer cancelAll()

	if got := b.Publish(TopicAlert, "boom"); got != 2 {
		t.Fatalf("expected 2 deliveries, got %d", got)
	}
	msg := <-alerts
	if msg.Topic != TopicAlert || msg.Payload != "boom" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg = <-all; msg.Topic != TopicAlert {
		t.Fatalf("wildcard subscriber missed the message: %+v", msg)
	}
}

func TestTopicFilterExcludesOthers(t *testing.T) {
	b := New(4)
	defer b.Close()

	alerts, cancel := b.Subscribe(TopicAlert)
	defer cancel()

	if got := b.Publish(TopicSnapshot, 1); got != 0 {
		t.Fatalf("snapshot delivered to alert subscriber: %d", got)
	}
	select {
	case msg := <-alerts:
		t.Fatalf("unexpected message: %+v", msg)
	default:
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := New(1)
	defer b.Close()

	ch, cancel := b.Subscribe(TopicAlert)
	defer cancel()

	if got := b.Publish(TopicAlert, 1); got != 1 {
		t.Fatalf("first publish dropped: %d", got)
	}
	// Buffer is full; the second publish must drop instead of blocking.
	if got := b.Publish(TopicAlert, 2); got != 0 {
		t.Fatalf("expected drop, delivered %d", got)
	}
	if msg := <-ch; msg.Payload != 1 {
		t.Fatalf("wrong surviving message: %+v", msg)
	}
}

func TestCancelClosesChannelOnce(t *testing.T) {
	b := New(4)
	defer b.Close()

	ch, cancel := b.Subscribe(TopicAlert)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	if got := b.Publish(TopicAlert, 1); got != 0 {
		t.Fatalf("cancelled subscriber still counted: %d", got)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	b := New(4)
	ch, _ := b.Subscribe(TopicAlert)

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel should be closed")
	}
	if got := b.Publish(TopicAlert, 1); got != 0 {
		t.Fatalf("publish after close delivered %d", got)
	}
	// Subscribing after close yields an already-closed channel.
	late, cancel := b.Subscribe(TopicAlert)
	defer cancel()
	if _, ok := <-late; ok {
		t.Fatal("late subscription should be closed immediately")
	}
}
