package pcsc

import "time"

// contextHandle and cardHandle are the raw handles given out by the
// platform service. They are only meaningful to the service that
// produced them.
type (
	contextHandle uintptr
	cardHandle    uintptr
)

// cardStatusInfo is the raw result of a status query, before the Card
// wraps it.
type cardStatusInfo struct {
	readerNames []byte // multistring, same encoding as listReaders
	state       CardState
	protocol    Protocol
	atr         []byte
}

// service is the platform PC/SC entry point set. Implementations
// normalize platform quirks (ordinal vs bitmask card states, the raw
// protocol value, control codes) so the rest of the package sees one
// set of semantics. All methods return a Code; codeSuccess means the
// out parameters are valid.
//
// For the sized calls (listReaders, getAttribute and friends), a nil
// buffer asks for the required length only; a non-nil buffer that is
// too small fails with CodeInsufficientBuffer and the required length.
// serviceTimeout converts a Go duration to the millisecond encoding
// expected by the platform API. Negative means block forever.
func serviceTimeout(timeout time.Duration) uint32 {
	if timeout < 0 {
		return infiniteTimeout
	}
	millis := timeout.Milliseconds()
	if millis >= infiniteTimeout {
		return infiniteTimeout - 1
	}
	return uint32(millis)
}

type service interface {
	establishContext(scope Scope) (contextHandle, Code)
	releaseContext(ctx contextHandle) Code
	isValidContext(ctx contextHandle) bool
	cancel(ctx contextHandle) Code

	listReaders(ctx contextHandle, buf []byte) (int, Code)
	getStatusChange(ctx contextHandle, timeout time.Duration, states []ReaderState) Code

	connect(ctx contextHandle, reader string, mode ShareMode, preferred Protocol) (cardHandle, Protocol, Code)
	reconnect(card cardHandle, mode ShareMode, preferred Protocol, init Disposition) (Protocol, Code)
	disconnect(card cardHandle, d Disposition) Code

	beginTransaction(card cardHandle) Code
	endTransaction(card cardHandle, d Disposition) Code

	status(card cardHandle, readerBuf, atrBuf []byte) (cardStatusInfo, Code)
	statusLen(card cardHandle) (readerLen, atrLen int, code Code)

	transmit(card cardHandle, proto Protocol, send, recv []byte) (int, Code)
	control(card cardHandle, code uint32, send, recv []byte) (int, Code)
	getAttribute(card cardHandle, attr Attribute, buf []byte) (int, Code)
	setAttribute(card cardHandle, attr Attribute, value []byte) Code
}
