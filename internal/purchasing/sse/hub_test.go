package sse

import (
	"encoding/json"
	"testing"
)

func TestHub_PublishBroadcastsToAllClients(t *testing.T) {
	hub := NewHub(nil)
	a := &Client{ID: "a", UserID: "u1", Events: make(chan Event, 1)}
	b := &Client{ID: "b", UserID: "u2", Events: make(chan Event, 1)}
	hub.Register(a)
	hub.Register(b)

	hub.Publish(EventPOUpdate, map[string]string{"po_id": "po1", "action": "status_change"})

	for _, c := range []*Client{a, b} {
		select {
		case ev := <-c.Events:
			if ev.EventType != EventPOUpdate {
				t.Fatalf("client %s: expected %s, got %s", c.ID, EventPOUpdate, ev.EventType)
			}
			var payload map[string]string
			if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
				t.Fatalf("client %s: bad payload %q: %v", c.ID, ev.Data, err)
			}
			if payload["po_id"] != "po1" {
				t.Fatalf("client %s: expected po1, got %v", c.ID, payload)
			}
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{ID: "slow", Events: make(chan Event, 1)}
	hub.Register(c)

	hub.Broadcast(Event{EventType: "x"})
	hub.Broadcast(Event{EventType: "y"})

	if got := len(c.Events); got != 1 {
		t.Fatalf("expected 1 buffered event, got %d", got)
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(nil)
	a := &Client{ID: "a", UserID: "u1", Events: make(chan Event, 1)}
	b := &Client{ID: "b", UserID: "u2", Events: make(chan Event, 1)}
	hub.Register(a)
	hub.Register(b)

	hub.Unregister("a")
	hub.Unregister("a")
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if _, ok := <-a.Events; ok {
		t.Fatal("expected unregistered client channel to be closed")
	}
}
