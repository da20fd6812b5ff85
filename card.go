package pcsc

import (
	"errors"
	"sync"
)

// Card is a connection to a card in a reader (or to the reader itself,
// in ShareDirect mode). Methods are safe for concurrent use, but while
// a Transaction is open on the card, other goroutines calling Card
// methods fail with CodeSharingViolation; card access during a
// transaction goes through the Transaction.
type Card struct {
	inner  *contextInner
	handle cardHandle
	proto  Protocol

	mu     sync.Mutex
	txOpen bool
	closed bool
}

// CardStatus is the result of Card.Status.
type CardStatus struct {
	// ReaderNames lists the names the connected reader is known under.
	ReaderNames []string
	// State is the current state of the card in the reader.
	State CardState
	// Protocol is the protocol in use, if a card is connected.
	Protocol Protocol
	// Atr is the card's answer-to-reset.
	Atr []byte
}

// guardLocked rejects the call if the card is disconnected or a
// transaction is open on another handle. Callers hold c.mu for the
// whole operation, so a Transaction cannot start while the service
// call is still in flight.
func (c *Card) guardLocked() error {
	if c.closed {
		return newError(CodeInvalidHandle)
	}
	if c.txOpen {
		return newError(CodeSharingViolation)
	}
	return nil
}

// ActiveProtocol returns the protocol negotiated at Connect or
// Reconnect time. For a ShareDirect connection with no negotiated
// protocol it returns ProtocolUndefined.
func (c *Card) ActiveProtocol() Protocol {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proto
}

// Transaction starts an exclusive transaction on the card. Until the
// returned Transaction is ended, other processes cannot access the
// card and other goroutines using this Card fail with
// CodeSharingViolation.
func (c *Card) Transaction() (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return nil, err
	}
	if code := c.inner.svc.beginTransaction(c.handle); code != codeSuccess {
		return nil, newError(code)
	}
	c.txOpen = true
	return &Transaction{card: c}, nil
}

// Reconnect reestablishes the connection with a new share mode and
// protocol set, applying init to the card first. On success the
// active protocol is updated to the newly negotiated one.
func (c *Card) Reconnect(mode ShareMode, preferred Protocol, init Disposition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	proto, code := c.inner.svc.reconnect(c.handle, mode, preferred, init)
	if code != codeSuccess {
		return newError(code)
	}
	c.proto = proto
	return nil
}

// Disconnect ends the connection, applying d to the card. On failure
// the Card remains connected and usable. Use Close when the error and
// the disposition do not matter.
func (c *Card) Disconnect(d Disposition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	if code := c.inner.svc.disconnect(c.handle, d); code != codeSuccess {
		return newError(code)
	}
	c.closed = true
	c.inner.decref()
	return nil
}

// Close disconnects with ResetCard, ignoring any error from the
// service. Close is idempotent and always returns nil; it exists to
// satisfy io.Closer.
func (c *Card) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.inner.svc.disconnect(c.handle, ResetCard)
	c.closed = true
	c.inner.decref()
	return nil
}

// Status reports the reader names, card state, active protocol and ATR
// for the connection.
func (c *Card) Status() (*CardStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return nil, err
	}
	return c.status()
}

func (c *Card) status() (*CardStatus, error) {
	for {
		readerLen, atrLen, code := c.inner.svc.statusLen(c.handle)
		if code != codeSuccess {
			return nil, newError(code)
		}
		info, code := c.inner.svc.status(c.handle, make([]byte, readerLen), make([]byte, atrLen))
		if code == CodeInsufficientBuffer {
			continue
		}
		if code != codeSuccess {
			return nil, newError(code)
		}
		return &CardStatus{
			ReaderNames: (&ReaderNames{buf: info.readerNames}).Collect(),
			State:       info.state,
			Protocol:    info.protocol,
			Atr:         info.atr,
		}, nil
	}
}

// Transmit sends an APDU to the card and writes the response into
// recv, returning the part of recv that was filled. The connection
// must have an active protocol; a ShareDirect connection without one
// fails with CodeInvalidValue.
//
// If recv is too small the call fails with CodeInsufficientBuffer, but
// the command has still reached the card; the response is lost, not
// retriable.
func (c *Card) Transmit(send, recv []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return nil, err
	}
	return c.transmit(send, recv)
}

// transmit reads c.proto without the lock: callers either hold c.mu or
// are a Transaction, during which Reconnect cannot change the protocol.
func (c *Card) transmit(send, recv []byte) ([]byte, error) {
	proto := c.proto
	if proto == ProtocolUndefined {
		return nil, newError(CodeInvalidValue)
	}
	n, code := c.inner.svc.transmit(c.handle, proto, send, recv)
	if code == CodeInsufficientBuffer {
		return nil, newSizedError(code, n)
	}
	if code != codeSuccess {
		return nil, newError(code)
	}
	return recv[:n], nil
}

// Control sends a control command to the reader and writes the
// response into recv, returning the part of recv that was filled.
// Build portable control codes with CtlCode.
func (c *Card) Control(code uint32, send, recv []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return nil, err
	}
	return c.control(code, send, recv)
}

func (c *Card) control(code uint32, send, recv []byte) ([]byte, error) {
	n, rc := c.inner.svc.control(c.handle, code, send, recv)
	if rc == CodeInsufficientBuffer {
		return nil, newSizedError(rc, n)
	}
	if rc != codeSuccess {
		return nil, newError(rc)
	}
	return recv[:n], nil
}

// GetAttributeLen returns the buffer size needed to fetch attr.
func (c *Card) GetAttributeLen(attr Attribute) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return 0, err
	}
	return c.getAttributeLen(attr)
}

func (c *Card) getAttributeLen(attr Attribute) (int, error) {
	n, code := c.inner.svc.getAttribute(c.handle, attr, nil)
	if code != codeSuccess {
		return 0, newError(code)
	}
	return n, nil
}

// GetAttribute fetches a reader or card attribute into buf and returns
// the part of buf that was filled.
func (c *Card) GetAttribute(attr Attribute, buf []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return nil, err
	}
	return c.getAttribute(attr, buf)
}

func (c *Card) getAttribute(attr Attribute, buf []byte) ([]byte, error) {
	n, code := c.inner.svc.getAttribute(c.handle, attr, buf)
	if code == CodeInsufficientBuffer {
		return nil, newSizedError(code, n)
	}
	if code != codeSuccess {
		return nil, newError(code)
	}
	return buf[:n], nil
}

// GetAttributeAll is GetAttribute with the buffer managed internally.
func (c *Card) GetAttributeAll(attr Attribute) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return nil, err
	}
	return c.getAttributeAll(attr)
}

func (c *Card) getAttributeAll(attr Attribute) ([]byte, error) {
	for {
		n, err := c.getAttributeLen(attr)
		if err != nil {
			return nil, err
		}
		buf, err := c.getAttribute(attr, make([]byte, n))
		if err == nil {
			return buf, nil
		}
		if !errors.Is(err, ErrInsufficientBuffer) {
			return nil, err
		}
	}
}

// SetAttribute sets a reader or card attribute.
func (c *Card) SetAttribute(attr Attribute, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	return c.setAttribute(attr, value)
}

func (c *Card) setAttribute(attr Attribute, value []byte) error {
	if code := c.inner.svc.setAttribute(c.handle, attr, value); code != codeSuccess {
		return newError(code)
	}
	return nil
}
