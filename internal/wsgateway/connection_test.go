package wsgateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

func readQueued(t *testing.T, conn *Connection) ServerMessage {
	t.Helper()
	select {
	case data := <-conn.send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode queued message: %v", err)
		}
		return msg
	default:
		t.Fatal("Expected a queued message")
		return ServerMessage{}
	}
}

func TestConnection_SubscribeUnsubscribe(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 4)

	if !conn.ShouldReceive(models.AssetClassForex) {
		t.Error("Expected a connection without subscriptions to receive everything")
	}

	conn.Subscribe(models.AssetClassCrypto)
	if !conn.IsSubscribed(models.AssetClassCrypto) {
		t.Error("Expected connection to be subscribed to crypto")
	}
	if conn.ShouldReceive(models.AssetClassForex) {
		t.Error("Expected forex to be filtered out")
	}

	conn.Subscribe(models.AssetClassForex)
	got := conn.Subscriptions()
	if len(got) != 2 || got[0] != models.AssetClassForex || got[1] != models.AssetClassCrypto {
		t.Errorf("Unexpected subscriptions %v", got)
	}

	conn.Unsubscribe(models.AssetClassCrypto)
	if conn.IsSubscribed(models.AssetClassCrypto) {
		t.Error("Expected connection to be unsubscribed from crypto")
	}
}

func TestConnection_EnqueueAndClose(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 1)

	if !conn.Enqueue([]byte("a")) {
		t.Fatal("Expected first message to be queued")
	}
	if conn.Enqueue([]byte("b")) {
		t.Error("Expected full buffer to drop the message")
	}

	conn.Close()
	conn.Close()

	select {
	case <-conn.Done():
	default:
		t.Error("Expected Done to be closed")
	}
	<-conn.send
	if conn.Enqueue([]byte("c")) {
		t.Error("Expected closed connection to reject messages")
	}
}

func TestConnection_UpdateLastPong(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 1)
	conn.lastPong = time.Now().Add(-time.Hour)

	initial := conn.GetLastPong()
	conn.UpdateLastPong()

	if !conn.GetLastPong().After(initial) {
		t.Error("Expected last pong time to be updated")
	}
}

func TestConnection_HandleClientMessage(t *testing.T) {
	conn := NewConnection("conn-1", "user-1", nil, 8)

	classes, err := conn.HandleClientMessage(&ClientMessage{Type: "subscribe", AssetClass: "crypto", AssetClasses: []string{"forex"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(classes) != 2 || classes[0] != models.AssetClassCrypto {
		t.Errorf("Unexpected subscribed classes %v", classes)
	}
	if msg := readQueued(t, conn); msg.Type != MessageTypeSuccess {
		t.Errorf("Expected success, got %s", msg.Type)
	}

	if _, err := conn.HandleClientMessage(&ClientMessage{Type: "unsubscribe", AssetClass: "forex"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	readQueued(t, conn)
	if conn.IsSubscribed(models.AssetClassForex) {
		t.Error("Expected forex to be unsubscribed")
	}

	conn.HandleClientMessage(&ClientMessage{Type: "subscribe", AssetClass: "bonds"})
	if msg := readQueued(t, conn); msg.Type != MessageTypeError || msg.Code != "invalid_request" {
		t.Errorf("Expected invalid_request error, got %+v", msg)
	}

	conn.HandleClientMessage(&ClientMessage{Type: "subscribe"})
	if msg := readQueued(t, conn); msg.Code != "invalid_request" {
		t.Errorf("Expected invalid_request error, got %+v", msg)
	}

	conn.HandleClientMessage(&ClientMessage{Type: "ping"})
	if msg := readQueued(t, conn); msg.Type != MessageTypePong {
		t.Errorf("Expected pong, got %s", msg.Type)
	}

	conn.HandleClientMessage(&ClientMessage{Type: "dance"})
	if msg := readQueued(t, conn); msg.Code != "unknown_message_type" {
		t.Errorf("Expected unknown_message_type, got %+v", msg)
	}
}
