package pcsc

import (
	"sync"
	"time"
)

// Mock data modeled on real hardware:
// ACR122U: MIFARE Classic - ATR 3b8f8001804f0ca000000306030001000000006a
// ACR1252: NTAG213 - ATR 3b8f8001804f0ca0000003060300030000000068

var mockAtrNTAG213 = []byte{
	0x3b, 0x8f, 0x80, 0x01, 0x80, 0x4f, 0x0c, 0xa0, 0x00, 0x00,
	0x03, 0x06, 0x03, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x68,
}

// mockService is an in-memory stand-in for the platform PC/SC service.
// Behavior is shaped with the with* builder methods; tests in this
// package may also poke the exported-in-package fields directly.
type mockService struct {
	mu sync.Mutex

	readers   []string
	noReaders bool

	atr        []byte
	attributes map[Attribute][]byte

	// Forced status codes, codeSuccess meaning "not forced".
	establishCode  Code
	releaseCode    Code
	connectCode    Code
	disconnectCode Code

	// Hooks. statusChangeFn, when set, services getStatusChange
	// synchronously instead of blocking.
	transmitFn     func(send []byte) []byte
	controlFn      func(code uint32, send []byte) []byte
	statusChangeFn func(states []ReaderState) Code

	nextHandle  uintptr
	cancelByCtx map[contextHandle]chan struct{}
	released    map[contextHandle]bool

	txDepth       int
	dispositions  []Disposition
	releaseCalls  int
	transmitProto Protocol
}

func newMockService() *mockService {
	return &mockService{
		attributes:  make(map[Attribute][]byte),
		cancelByCtx: make(map[contextHandle]chan struct{}),
		released:    make(map[contextHandle]bool),
		atr:         mockAtrNTAG213,
	}
}

func (m *mockService) withReaders(names ...string) *mockService {
	m.readers = names
	return m
}

func (m *mockService) withNoReaders() *mockService {
	m.noReaders = true
	return m
}

func (m *mockService) withAtr(atr []byte) *mockService {
	m.atr = atr
	return m
}

func (m *mockService) withAttribute(attr Attribute, value []byte) *mockService {
	m.attributes[attr] = value
	return m
}

func (m *mockService) withTransmit(fn func(send []byte) []byte) *mockService {
	m.transmitFn = fn
	return m
}

func (m *mockService) withStatusChange(fn func(states []ReaderState) Code) *mockService {
	m.statusChangeFn = fn
	return m
}

// multistring encodes names the way the platform returns reader lists.
func multistring(names []string) []byte {
	var buf []byte
	for _, name := range names {
		buf = append(buf, name...)
		buf = append(buf, 0)
	}
	return append(buf, 0)
}

func (m *mockService) establishContext(scope Scope) (contextHandle, Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.establishCode != codeSuccess {
		return 0, m.establishCode
	}
	m.nextHandle++
	handle := contextHandle(m.nextHandle)
	m.cancelByCtx[handle] = make(chan struct{})
	return handle, codeSuccess
}

func (m *mockService) releaseContext(ctx contextHandle) Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	if m.releaseCode != codeSuccess {
		return m.releaseCode
	}
	if m.released[ctx] {
		return CodeInvalidHandle
	}
	m.released[ctx] = true
	return codeSuccess
}

func (m *mockService) isValidContext(ctx contextHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, live := m.cancelByCtx[ctx]
	return live && !m.released[ctx]
}

// cancel delivers only to a currently blocked getStatusChange, like
// the real service; a cancel with no waiter is dropped.
func (m *mockService) cancel(ctx contextHandle) Code {
	m.mu.Lock()
	ch, ok := m.cancelByCtx[ctx]
	m.mu.Unlock()
	if !ok {
		return CodeInvalidHandle
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return codeSuccess
}

func (m *mockService) listReaders(ctx contextHandle, buf []byte) (int, Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noReaders {
		return 0, CodeNoReadersAvailable
	}
	encoded := multistring(m.readers)
	if buf == nil {
		return len(encoded), codeSuccess
	}
	if len(buf) < len(encoded) {
		return len(encoded), CodeInsufficientBuffer
	}
	copy(buf, encoded)
	return len(encoded), codeSuccess
}

func (m *mockService) getStatusChange(ctx contextHandle, timeout time.Duration, states []ReaderState) Code {
	m.mu.Lock()
	fn := m.statusChangeFn
	ch := m.cancelByCtx[ctx]
	m.mu.Unlock()
	if fn != nil {
		return fn(states)
	}

	var timer <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-ch:
		return CodeCancelled
	case <-timer:
		return CodeTimeout
	}
}

func (m *mockService) connect(ctx contextHandle, reader string, mode ShareMode, preferred Protocol) (cardHandle, Protocol, Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectCode != codeSuccess {
		return 0, ProtocolUndefined, m.connectCode
	}
	proto := negotiate(preferred)
	if mode != ShareDirect && proto == ProtocolUndefined && preferred != ProtocolUndefined {
		return 0, ProtocolUndefined, CodeProtoMismatch
	}
	m.nextHandle++
	return cardHandle(m.nextHandle), proto, codeSuccess
}

// negotiate picks T1 over T0 over Raw from the preferred set, like a
// modern contactless reader would.
func negotiate(preferred Protocol) Protocol {
	switch {
	case preferred&ProtocolT1 != 0:
		return ProtocolT1
	case preferred&ProtocolT0 != 0:
		return ProtocolT0
	case preferred&ProtocolRaw != 0:
		return ProtocolRaw
	}
	return ProtocolUndefined
}

func (m *mockService) reconnect(card cardHandle, mode ShareMode, preferred Protocol, init Disposition) (Protocol, Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispositions = append(m.dispositions, init)
	return negotiate(preferred), codeSuccess
}

func (m *mockService) disconnect(card cardHandle, d Disposition) Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disconnectCode != codeSuccess {
		return m.disconnectCode
	}
	m.dispositions = append(m.dispositions, d)
	return codeSuccess
}

func (m *mockService) beginTransaction(card cardHandle) Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txDepth++
	return codeSuccess
}

func (m *mockService) endTransaction(card cardHandle, d Disposition) Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txDepth == 0 {
		return CodeNotTransacted
	}
	m.txDepth--
	m.dispositions = append(m.dispositions, d)
	return codeSuccess
}

func (m *mockService) statusLen(card cardHandle) (int, int, Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.readers) == 0 {
		return 0, 0, CodeReaderUnavailable
	}
	return len(multistring(m.readers[:1])), len(m.atr), codeSuccess
}

func (m *mockService) status(card cardHandle, readerBuf, atrBuf []byte) (cardStatusInfo, Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.readers) == 0 {
		return cardStatusInfo{}, CodeReaderUnavailable
	}
	encoded := multistring(m.readers[:1])
	if len(readerBuf) < len(encoded) || len(atrBuf) < len(m.atr) {
		return cardStatusInfo{}, CodeInsufficientBuffer
	}
	copy(readerBuf, encoded)
	copy(atrBuf, m.atr)
	return cardStatusInfo{
		readerNames: readerBuf[:len(encoded)],
		state:       CardStatePresent | CardStatePowered,
		protocol:    ProtocolT1,
		atr:         atrBuf[:len(m.atr)],
	}, codeSuccess
}

func (m *mockService) transmit(card cardHandle, proto Protocol, send, recv []byte) (int, Code) {
	m.mu.Lock()
	m.transmitProto = proto
	fn := m.transmitFn
	m.mu.Unlock()

	resp := []byte{0x90, 0x00}
	if fn != nil {
		resp = fn(send)
	}
	if len(recv) < len(resp) {
		return len(resp), CodeInsufficientBuffer
	}
	copy(recv, resp)
	return len(resp), codeSuccess
}

func (m *mockService) control(card cardHandle, code uint32, send, recv []byte) (int, Code) {
	resp := send
	if m.controlFn != nil {
		resp = m.controlFn(code, send)
	}
	if len(recv) < len(resp) {
		return len(resp), CodeInsufficientBuffer
	}
	copy(recv, resp)
	return len(resp), codeSuccess
}

func (m *mockService) getAttribute(card cardHandle, attr Attribute, buf []byte) (int, Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.attributes[attr]
	if !ok {
		return 0, CodeUnsupportedFeature
	}
	if buf == nil {
		return len(value), codeSuccess
	}
	if len(buf) < len(value) {
		return len(value), CodeInsufficientBuffer
	}
	copy(buf, value)
	return len(value), codeSuccess
}

func (m *mockService) setAttribute(card cardHandle, attr Attribute, value []byte) Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributes[attr] = append([]byte(nil), value...)
	return codeSuccess
}
