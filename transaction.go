package pcsc

// Transaction is an exclusive transaction on a Card, started with
// Card.Transaction. While it is open, card access goes through the
// Transaction; the Card's own methods fail with CodeSharingViolation.
// Reconnecting or nesting another transaction requires ending this one
// first.
type Transaction struct {
	card *Card
	done bool
}

// End finishes the transaction, applying d to the card. On failure
// the transaction remains open and usable.
func (tx *Transaction) End(d Disposition) error {
	tx.card.mu.Lock()
	defer tx.card.mu.Unlock()
	if tx.done {
		return newError(CodeNotTransacted)
	}
	if code := tx.card.inner.svc.endTransaction(tx.card.handle, d); code != codeSuccess {
		return newError(code)
	}
	tx.done = true
	tx.card.txOpen = false
	return nil
}

// Close ends the transaction leaving the card untouched, ignoring any
// error from the service. Close is idempotent and always returns nil;
// it exists to satisfy io.Closer.
func (tx *Transaction) Close() error {
	tx.card.mu.Lock()
	defer tx.card.mu.Unlock()
	if tx.done {
		return nil
	}
	tx.card.inner.svc.endTransaction(tx.card.handle, LeaveCard)
	tx.done = true
	tx.card.txOpen = false
	return nil
}

func (tx *Transaction) guard() error {
	tx.card.mu.Lock()
	defer tx.card.mu.Unlock()
	if tx.done {
		return newError(CodeNotTransacted)
	}
	return nil
}

// ActiveProtocol returns the protocol negotiated on the underlying
// card.
func (tx *Transaction) ActiveProtocol() Protocol {
	return tx.card.ActiveProtocol()
}

// Status reports the card status. See Card.Status.
func (tx *Transaction) Status() (*CardStatus, error) {
	if err := tx.guard(); err != nil {
		return nil, err
	}
	return tx.card.status()
}

// Transmit sends an APDU to the card. See Card.Transmit.
func (tx *Transaction) Transmit(send, recv []byte) ([]byte, error) {
	if err := tx.guard(); err != nil {
		return nil, err
	}
	return tx.card.transmit(send, recv)
}

// Control sends a control command to the reader. See Card.Control.
func (tx *Transaction) Control(code uint32, send, recv []byte) ([]byte, error) {
	if err := tx.guard(); err != nil {
		return nil, err
	}
	return tx.card.control(code, send, recv)
}

// GetAttributeLen returns the buffer size needed to fetch attr.
func (tx *Transaction) GetAttributeLen(attr Attribute) (int, error) {
	if err := tx.guard(); err != nil {
		return 0, err
	}
	return tx.card.getAttributeLen(attr)
}

// GetAttribute fetches a reader or card attribute. See
// Card.GetAttribute.
func (tx *Transaction) GetAttribute(attr Attribute, buf []byte) ([]byte, error) {
	if err := tx.guard(); err != nil {
		return nil, err
	}
	return tx.card.getAttribute(attr, buf)
}

// GetAttributeAll is GetAttribute with the buffer managed internally.
func (tx *Transaction) GetAttributeAll(attr Attribute) ([]byte, error) {
	if err := tx.guard(); err != nil {
		return nil, err
	}
	return tx.card.getAttributeAll(attr)
}

// SetAttribute sets a reader or card attribute.
func (tx *Transaction) SetAttribute(attr Attribute, value []byte) error {
	if err := tx.guard(); err != nil {
		return err
	}
	return tx.card.setAttribute(attr, value)
}
