package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/SimplyPrint/pcsc"
	"github.com/SimplyPrint/pcsc/internal/monitor"
)

// fakeSession fulfils Session with canned data for handler tests.
type fakeSession struct {
	readers  []string
	listErr  error
	status   *ReaderStatus
	response []byte
	attr     []byte
	lastApdu []byte
	lastCode uint32
	opErr    error
}

func (f *fakeSession) ListReaders() ([]string, error) {
	return f.readers, f.listErr
}

func (f *fakeSession) ReaderStatus(reader string) (*ReaderStatus, error) {
	if f.opErr != nil {
		return nil, f.opErr
	}
	return f.status, nil
}

func (f *fakeSession) Transmit(reader string, apdu []byte) ([]byte, error) {
	f.lastApdu = apdu
	return f.response, f.opErr
}

func (f *fakeSession) Control(reader string, code uint32, payload []byte) ([]byte, error) {
	f.lastCode = code
	return f.response, f.opErr
}

func (f *fakeSession) ReaderAttribute(reader string, attr pcsc.Attribute) ([]byte, error) {
	return f.attr, f.opErr
}

func newTestClient(session Session) *WSClient {
	return &WSClient{
		send:    make(chan []byte, 256),
		session: session,
	}
}

func receive(t *testing.T, client *WSClient) WSMessage {
	t.Helper()
	select {
	case raw := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for response")
		return WSMessage{}
	}
}

func TestNewWSHub(t *testing.T) {
	hub := NewWSHub()

	if hub == nil {
		t.Fatal("NewWSHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("clients map should be initialized")
	}
	if hub.broadcast == nil {
		t.Error("broadcast channel should be initialized")
	}
	if hub.register == nil {
		t.Error("register channel should be initialized")
	}
	if hub.unregister == nil {
		t.Error("unregister channel should be initialized")
	}
}

func TestWSHub_RegisterUnregister(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := newTestClient(&fakeSession{})
	client.hub = hub

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, exists := hub.clients[client]
	hub.mu.RUnlock()
	if !exists {
		t.Error("client should be registered")
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	_, exists = hub.clients[client]
	hub.mu.RUnlock()
	if exists {
		t.Error("client should be unregistered")
	}
}

func TestWSHub_BroadcastEvent(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	clients := make([]*WSClient, 3)
	for i := range clients {
		clients[i] = newTestClient(&fakeSession{})
		clients[i].hub = hub
		hub.register <- clients[i]
	}
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastEvent(monitor.Event{
		Type:   monitor.CardInserted,
		Reader: "Reader A",
		Atr:    "3b8f8001",
	})
	time.Sleep(10 * time.Millisecond)

	for i, client := range clients {
		select {
		case raw := <-client.send:
			var msg WSMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("client %d: unmarshal failed: %v", i, err)
			}
			if msg.Type != "event" {
				t.Errorf("client %d: type = %q, want event", i, msg.Type)
			}
			var ev monitor.Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				t.Fatalf("client %d: payload unmarshal failed: %v", i, err)
			}
			if ev.Type != monitor.CardInserted || ev.Reader != "Reader A" {
				t.Errorf("client %d: event = %+v", i, ev)
			}
		default:
			t.Errorf("client %d did not receive the event", i)
		}
	}
}

func TestWSClient_handleListReaders(t *testing.T) {
	session := &fakeSession{readers: []string{"Reader A", "Reader B"}}
	client := newTestClient(session)

	client.handleListReaders("test-id")

	msg := receive(t, client)
	if msg.Type != "readers" {
		t.Errorf("expected type 'readers', got %q", msg.Type)
	}
	if msg.ID != "test-id" {
		t.Errorf("expected ID 'test-id', got %q", msg.ID)
	}
	var readers []string
	if err := json.Unmarshal(msg.Payload, &readers); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if len(readers) != 2 {
		t.Errorf("expected 2 readers, got %v", readers)
	}
}

func TestWSClient_handleListReadersEmpty(t *testing.T) {
	client := newTestClient(&fakeSession{})
	client.handleListReaders("test-id")

	msg := receive(t, client)
	// No readers must serialize as an empty list, not null.
	if string(msg.Payload) != "[]" {
		t.Errorf("payload = %s, want []", msg.Payload)
	}
}

func TestWSClient_handleReaderStatus(t *testing.T) {
	session := &fakeSession{status: &ReaderStatus{
		Reader:  "Reader A",
		Present: true,
		Atr:     "3b8f8001",
	}}
	client := newTestClient(session)

	client.handleMessage(WSMessage{
		Type:    "reader_status",
		ID:      "42",
		Payload: json.RawMessage(`{"reader":"Reader A"}`),
	})

	msg := receive(t, client)
	if msg.Type != "reader_status" {
		t.Fatalf("expected type 'reader_status', got %q", msg.Type)
	}
	var status ReaderStatus
	if err := json.Unmarshal(msg.Payload, &status); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if !status.Present || status.Atr != "3b8f8001" {
		t.Errorf("status = %+v", status)
	}
}

func TestWSClient_handleTransmit(t *testing.T) {
	session := &fakeSession{response: []byte{0x90, 0x00}}
	client := newTestClient(session)

	client.handleMessage(WSMessage{
		Type:    "transmit",
		ID:      "7",
		Payload: json.RawMessage(`{"reader":"Reader A","apdu":"ffca000000"}`),
	})

	msg := receive(t, client)
	if msg.Type != "response" {
		t.Fatalf("expected type 'response', got %q (error %q)", msg.Type, msg.Error)
	}
	want, _ := hex.DecodeString("ffca000000")
	if string(session.lastApdu) != string(want) {
		t.Errorf("apdu = %x, want %x", session.lastApdu, want)
	}
	var resp map[string]string
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if resp["response"] != "9000" {
		t.Errorf("response = %q, want 9000", resp["response"])
	}
}

func TestWSClient_handleTransmitBadHex(t *testing.T) {
	client := newTestClient(&fakeSession{})

	client.handleMessage(WSMessage{
		Type:    "transmit",
		ID:      "7",
		Payload: json.RawMessage(`{"reader":"Reader A","apdu":"zz"}`),
	})

	msg := receive(t, client)
	if msg.Type != "error" {
		t.Errorf("expected error response, got %q", msg.Type)
	}
}

func TestWSClient_handleTransmitFailure(t *testing.T) {
	session := &fakeSession{opErr: errors.New("the smart card has been removed, so further communication is not possible")}
	client := newTestClient(session)

	client.handleMessage(WSMessage{
		Type:    "transmit",
		ID:      "7",
		Payload: json.RawMessage(`{"reader":"Reader A","apdu":"00b0000020"}`),
	})

	msg := receive(t, client)
	if msg.Type != "error" || msg.Error == "" {
		t.Errorf("expected error response, got %+v", msg)
	}
}

func TestWSClient_handleControl(t *testing.T) {
	session := &fakeSession{response: []byte{0x01}}
	client := newTestClient(session)

	client.handleMessage(WSMessage{
		Type:    "control",
		ID:      "9",
		Payload: json.RawMessage(`{"reader":"Reader A","code":3500,"payload":"02"}`),
	})

	msg := receive(t, client)
	if msg.Type != "response" {
		t.Fatalf("expected type 'response', got %q (error %q)", msg.Type, msg.Error)
	}
	if session.lastCode != pcsc.CtlCode(3500) {
		t.Errorf("code = %#x, want %#x", session.lastCode, pcsc.CtlCode(3500))
	}
}

func TestWSClient_handleGetAttribute(t *testing.T) {
	session := &fakeSession{attr: []byte("ACS")}
	client := newTestClient(session)

	client.handleMessage(WSMessage{
		Type:    "get_attribute",
		ID:      "11",
		Payload: json.RawMessage(`{"reader":"Reader A","attribute":65792}`),
	})

	msg := receive(t, client)
	if msg.Type != "attribute" {
		t.Fatalf("expected type 'attribute', got %q (error %q)", msg.Type, msg.Error)
	}
	var resp map[string]string
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if resp["value"] != hex.EncodeToString([]byte("ACS")) {
		t.Errorf("value = %q", resp["value"])
	}
}

func TestWSClient_handleHealth(t *testing.T) {
	tests := []struct {
		name    string
		listErr error
		want    string
	}{
		{"healthy", nil, "ok"},
		{"degraded", errors.New("the smart card resource manager is not running"), "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&fakeSession{listErr: tt.listErr})
			client.handleMessage(WSMessage{Type: "health", ID: "h"})

			msg := receive(t, client)
			if msg.Type != "health" {
				t.Fatalf("expected type 'health', got %q", msg.Type)
			}
			var resp map[string]string
			if err := json.Unmarshal(msg.Payload, &resp); err != nil {
				t.Fatalf("payload unmarshal failed: %v", err)
			}
			if resp["status"] != tt.want {
				t.Errorf("status = %q, want %q", resp["status"], tt.want)
			}
		})
	}
}

func TestWSClient_handleVersion(t *testing.T) {
	client := newTestClient(&fakeSession{})
	client.handleMessage(WSMessage{Type: "version", ID: "v"})

	msg := receive(t, client)
	if msg.Type != "version" {
		t.Fatalf("expected type 'version', got %q", msg.Type)
	}
	var resp struct {
		Version    string `json:"version"`
		Compatible *bool  `json:"compatible"`
	}
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if resp.Version == "" {
		t.Error("version should not be empty")
	}
	if resp.Compatible != nil {
		t.Error("compatible should be omitted without a min_version")
	}
}

func TestWSClient_handleVersionMinimum(t *testing.T) {
	client := newTestClient(&fakeSession{})
	client.handleMessage(WSMessage{
		Type:    "version",
		ID:      "v",
		Payload: json.RawMessage(`{"min_version":"0.1.0"}`),
	})

	msg := receive(t, client)
	var resp struct {
		Compatible *bool `json:"compatible"`
	}
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	// Dev builds always pass the client's floor.
	if resp.Compatible == nil || !*resp.Compatible {
		t.Error("dev build should report compatible")
	}
}

func TestWSClient_handleMessageInvalid(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
		payload string
	}{
		{"unknown type", "unknown_type", ""},
		{"reader_status invalid payload", "reader_status", "invalid"},
		{"transmit invalid payload", "transmit", "invalid"},
		{"control invalid payload", "control", "invalid"},
		{"get_attribute invalid payload", "get_attribute", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&fakeSession{})

			var payload json.RawMessage
			if tt.payload != "" {
				payload = json.RawMessage(tt.payload)
			}
			client.handleMessage(WSMessage{Type: tt.msgType, ID: "test-id", Payload: payload})

			msg := receive(t, client)
			if msg.Type != "error" {
				t.Errorf("expected error response, got type %q", msg.Type)
			}
		})
	}
}

func TestWSMessage_JSON(t *testing.T) {
	tests := []struct {
		name string
		msg  WSMessage
	}{
		{
			name: "simple message",
			msg:  WSMessage{Type: "test", ID: "123"},
		},
		{
			name: "message with payload",
			msg: WSMessage{
				Type:    "transmit",
				ID:      "456",
				Payload: json.RawMessage(`{"reader":"Reader A","apdu":"ffca000000"}`),
			},
		},
		{
			name: "error message",
			msg:  WSMessage{Type: "error", ID: "789", Error: "something went wrong"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var decoded WSMessage
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if decoded.Type != tt.msg.Type {
				t.Errorf("Type mismatch: got %s, want %s", decoded.Type, tt.msg.Type)
			}
			if decoded.ID != tt.msg.ID {
				t.Errorf("ID mismatch: got %s, want %s", decoded.ID, tt.msg.ID)
			}
			if decoded.Error != tt.msg.Error {
				t.Errorf("Error mismatch: got %s, want %s", decoded.Error, tt.msg.Error)
			}
		})
	}
}
