package ws

import (
	"testing"
	"time"
)

func TestHubSubscribeAndPublish(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe("scores:borrower-1", client)
	hub.Publish("scores:borrower-1", []byte(`{"event":"score_updated"}`))

	select {
	case msg := <-client.out:
		if string(msg) != `{"event":"score_updated"}` {
			t.Fatalf("unexpected payload: %s", string(msg))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
	}

	hub.UnsubscribeAll(client)
}

func TestHubPublishToOtherTopicIsNotDelivered(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe("scores:borrower-1", client)
	hub.Publish("scores:borrower-2", []byte(`{"event":"score_updated"}`))

	select {
	case msg := <-client.out:
		t.Fatalf("unexpected delivery: %s", string(msg))
	default:
	}
}

func TestHubUnsubscribeAllStopsDelivery(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe("federated:rounds", client)
	hub.UnsubscribeAll(client)
	hub.Publish("federated:rounds", []byte(`{"event":"round_started"}`))

	select {
	case msg := <-client.out:
		t.Fatalf("unexpected delivery after unsubscribe: %s", string(msg))
	default:
	}
}
