package bus

import (
	"sync"
	"testing"
)

func TestPublishDeliversInOrder(t *testing.T) {
	b := New()

	var got []string
	unsubscribe := b.Subscribe("conv1", func(e Event) {
		got = append(got, e.Name)
	})
	defer unsubscribe()

	b.Publish("conv1", EventConversationStarted, nil)
	b.Publish("conv1", EventTurnStarted, nil)
	b.Publish("conv1", EventConversationCompleted, nil)

	want := []string{EventConversationStarted, EventTurnStarted, EventConversationCompleted}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPublishScopedToConversation(t *testing.T) {
	b := New()

	var count int
	defer b.Subscribe("conv1", func(Event) { count++ })()

	b.Publish("conv2", EventAgentMessage, nil)
	if count != 0 {
		t.Errorf("subscriber for conv1 received conv2 event")
	}
}

func TestPublishWithoutSubscriberIsDropped(t *testing.T) {
	b := New()
	// Must not panic or block.
	b.Publish("nobody", EventHeartbeat, nil)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	var count int
	unsubscribe := b.Subscribe("conv1", func(Event) { count++ })

	b.Publish("conv1", EventAgentMessage, nil)
	unsubscribe()
	b.Publish("conv1", EventAgentMessage, nil)

	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if b.SubscriberCount("conv1") != 0 {
		t.Errorf("subscriber count = %d, want 0", b.SubscriberCount("conv1"))
	}

	// Calling the handle again is harmless.
	unsubscribe()
}

func TestMultipleSubscribersEachReceiveEveryEvent(t *testing.T) {
	b := New()

	var a, c int
	defer b.Subscribe("conv1", func(Event) { a++ })()
	defer b.Subscribe("conv1", func(Event) { c++ })()

	b.Publish("conv1", EventAgentMessage, nil)
	b.Publish("conv1", EventAgentMessage, nil)

	if a != 2 || c != 2 {
		t.Errorf("subscribers received %d and %d events, want 2 and 2", a, c)
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	b := New()

	var mu sync.Mutex
	received := 0
	defer b.Subscribe("conv1", func(Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish("conv1", EventHeartbeat, nil)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if received != 1000 {
		t.Errorf("received = %d, want 1000", received)
	}
}

func TestEventCarriesPayloadAndTimestamp(t *testing.T) {
	b := New()

	var got Event
	defer b.Subscribe("conv1", func(e Event) { got = e })()

	b.Publish("conv1", EventToolCall, map[string]any{"tool": "read_file"})

	if got.ConversationID != "conv1" {
		t.Errorf("ConversationID = %s, want conv1", got.ConversationID)
	}
	if got.Payload["tool"] != "read_file" {
		t.Errorf("payload tool = %v, want read_file", got.Payload["tool"])
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}
