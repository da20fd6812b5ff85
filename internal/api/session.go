package api

import (
	"fmt"

	"github.com/SimplyPrint/pcsc"
)

// ReaderStatus is a point-in-time snapshot of one reader.
type ReaderStatus struct {
	Reader      string `json:"reader"`
	Present     bool   `json:"present"`
	Atr         string `json:"atr,omitempty"` // hex encoded
	EventCount  uint16 `json:"eventCount"`
	Unavailable bool   `json:"unavailable"`
}

// Session is the card access surface the WebSocket handlers use.
// This allows for dependency injection and mocking in tests.
type Session interface {
	ListReaders() ([]string, error)
	ReaderStatus(reader string) (*ReaderStatus, error)
	Transmit(reader string, apdu []byte) ([]byte, error)
	Control(reader string, code uint32, payload []byte) ([]byte, error)
	ReaderAttribute(reader string, attr pcsc.Attribute) ([]byte, error)
}

// pcscSession implements Session on a live PC/SC context. Each
// operation opens its own card connection, so concurrent requests
// never share a handle.
type pcscSession struct {
	ctx *pcsc.Context
}

// NewSession wraps an established context.
func NewSession(ctx *pcsc.Context) Session {
	return &pcscSession{ctx: ctx}
}

func (s *pcscSession) ListReaders() ([]string, error) {
	return s.ctx.ListReadersAll()
}

func (s *pcscSession) ReaderStatus(reader string) (*ReaderStatus, error) {
	states := []pcsc.ReaderState{pcsc.NewReaderState(reader)}
	// An unaware query returns the current state without waiting.
	if err := s.ctx.GetStatusChange(states, 0); err != nil {
		return nil, fmt.Errorf("querying %s: %w", reader, err)
	}
	rs := &states[0]
	status := &ReaderStatus{
		Reader:      reader,
		Present:     rs.EventState&pcsc.StatePresent != 0,
		EventCount:  rs.EventCount(),
		Unavailable: rs.EventState&(pcsc.StateUnknown|pcsc.StateUnavailable) != 0,
	}
	if status.Present {
		status.Atr = fmt.Sprintf("%x", rs.Atr)
	}
	return status, nil
}

func (s *pcscSession) Transmit(reader string, apdu []byte) ([]byte, error) {
	card, err := s.ctx.Connect(reader, pcsc.ShareShared, pcsc.ProtocolAny)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", reader, err)
	}
	defer card.Close()

	// A transaction keeps other processes from interleaving commands
	// with ours.
	tx, err := card.Transaction()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Close()

	resp, err := tx.Transmit(apdu, make([]byte, pcsc.MaxBufferSizeExtended))
	if err != nil {
		return nil, fmt.Errorf("transmitting: %w", err)
	}
	return resp, nil
}

func (s *pcscSession) Control(reader string, code uint32, payload []byte) ([]byte, error) {
	// Direct mode talks to the reader itself; no card needs to be
	// present.
	card, err := s.ctx.Connect(reader, pcsc.ShareDirect, pcsc.ProtocolUndefined)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", reader, err)
	}
	defer card.Close()

	resp, err := card.Control(code, payload, make([]byte, pcsc.MaxBufferSize))
	if err != nil {
		return nil, fmt.Errorf("control %#x: %w", code, err)
	}
	return resp, nil
}

func (s *pcscSession) ReaderAttribute(reader string, attr pcsc.Attribute) ([]byte, error) {
	card, err := s.ctx.Connect(reader, pcsc.ShareDirect, pcsc.ProtocolUndefined)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", reader, err)
	}
	defer card.Close()

	value, err := card.GetAttributeAll(attr)
	if err != nil {
		return nil, fmt.Errorf("attribute %#x: %w", uint32(attr), err)
	}
	return value, nil
}
