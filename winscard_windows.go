//go:build windows

package pcsc

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// winscardService talks to winscard.dll. The ANSI entry points are
// used so reader name multistrings stay plain bytes, matching the unix
// encoding. Two platform quirks are normalized here: SCardStatusA
// reports the card state as an ordinal rather than a bitmask, and the
// raw protocol has a different wire value.
type winscardService struct{}

func systemService() service {
	return winscardService{}
}

// CtlCode builds the platform encoding of a reader control code for
// use with Card.Control.
func CtlCode(code uint32) uint32 {
	return 0x31<<16 | code<<2
}

const winProtocolRaw = 0x00010000

func protocolToSys(p Protocol) uint32 {
	raw := uint32(p)
	if p&ProtocolRaw != 0 {
		raw = raw&^uint32(ProtocolRaw) | winProtocolRaw
	}
	return raw
}

func protocolFromSys(raw uint32) Protocol {
	if raw&winProtocolRaw != 0 {
		raw = raw&^uint32(winProtocolRaw) | uint32(ProtocolRaw)
	}
	return Protocol(raw)
}

var (
	modWinscard = windows.NewLazySystemDLL("winscard.dll")

	procEstablishContext = modWinscard.NewProc("SCardEstablishContext")
	procReleaseContext   = modWinscard.NewProc("SCardReleaseContext")
	procIsValidContext   = modWinscard.NewProc("SCardIsValidContext")
	procCancel           = modWinscard.NewProc("SCardCancel")
	procListReaders      = modWinscard.NewProc("SCardListReadersA")
	procGetStatusChange  = modWinscard.NewProc("SCardGetStatusChangeA")
	procConnect          = modWinscard.NewProc("SCardConnectA")
	procReconnect        = modWinscard.NewProc("SCardReconnect")
	procDisconnect       = modWinscard.NewProc("SCardDisconnect")
	procBeginTransaction = modWinscard.NewProc("SCardBeginTransaction")
	procEndTransaction   = modWinscard.NewProc("SCardEndTransaction")
	procStatus           = modWinscard.NewProc("SCardStatusA")
	procTransmit         = modWinscard.NewProc("SCardTransmit")
	procControl          = modWinscard.NewProc("SCardControl")
	procGetAttrib        = modWinscard.NewProc("SCardGetAttrib")
	procSetAttrib        = modWinscard.NewProc("SCardSetAttrib")
)

// winIoRequest is SCARD_IO_REQUEST.
type winIoRequest struct {
	protocol  uint32
	pciLength uint32
}

// winReaderState is SCARD_READERSTATEA.
type winReaderState struct {
	reader       *byte
	userData     uintptr
	currentState uint32
	eventState   uint32
	atrLen       uint32
	atr          [36]byte
}

// ansi returns s as a NUL terminated byte string for the A entry
// points.
func ansi(s string) *byte {
	buf := append([]byte(s), 0)
	return &buf[0]
}

func (winscardService) establishContext(scope Scope) (contextHandle, Code) {
	var handle uintptr
	rc, _, _ := procEstablishContext.Call(uintptr(scope), 0, 0, uintptr(unsafe.Pointer(&handle)))
	return contextHandle(handle), Code(uint32(rc))
}

func (winscardService) releaseContext(ctx contextHandle) Code {
	rc, _, _ := procReleaseContext.Call(uintptr(ctx))
	return Code(uint32(rc))
}

func (winscardService) isValidContext(ctx contextHandle) bool {
	rc, _, _ := procIsValidContext.Call(uintptr(ctx))
	return Code(uint32(rc)) == codeSuccess
}

func (winscardService) cancel(ctx contextHandle) Code {
	rc, _, _ := procCancel.Call(uintptr(ctx))
	return Code(uint32(rc))
}

func (winscardService) listReaders(ctx contextHandle, buf []byte) (int, Code) {
	var ptr *byte
	if len(buf) != 0 {
		ptr = &buf[0]
	}
	n := uint32(len(buf))
	rc, _, _ := procListReaders.Call(uintptr(ctx), 0, uintptr(unsafe.Pointer(ptr)), uintptr(unsafe.Pointer(&n)))
	return int(n), Code(uint32(rc))
}

func (winscardService) getStatusChange(ctx contextHandle, timeout time.Duration, states []ReaderState) Code {
	if len(states) == 0 {
		rc, _, _ := procGetStatusChange.Call(uintptr(ctx), uintptr(serviceTimeout(timeout)), 0, 0)
		return Code(uint32(rc))
	}

	sys := make([]winReaderState, len(states))
	for i := range states {
		sys[i].reader = ansi(states[i].Reader)
		sys[i].currentState = uint32(states[i].CurrentState)
	}

	rc, _, _ := procGetStatusChange.Call(uintptr(ctx), uintptr(serviceTimeout(timeout)),
		uintptr(unsafe.Pointer(&sys[0])), uintptr(len(sys)))

	for i := range states {
		states[i].EventState = StateFlag(sys[i].eventState)
		states[i].Atr = append([]byte(nil), sys[i].atr[:sys[i].atrLen]...)
	}
	return Code(uint32(rc))
}

func (winscardService) connect(ctx contextHandle, reader string, mode ShareMode, preferred Protocol) (cardHandle, Protocol, Code) {
	var handle uintptr
	var proto uint32
	rc, _, _ := procConnect.Call(uintptr(ctx), uintptr(unsafe.Pointer(ansi(reader))),
		uintptr(mode), uintptr(protocolToSys(preferred)),
		uintptr(unsafe.Pointer(&handle)), uintptr(unsafe.Pointer(&proto)))
	return cardHandle(handle), protocolFromSys(proto), Code(uint32(rc))
}

func (winscardService) reconnect(card cardHandle, mode ShareMode, preferred Protocol, init Disposition) (Protocol, Code) {
	var proto uint32
	rc, _, _ := procReconnect.Call(uintptr(card), uintptr(mode), uintptr(protocolToSys(preferred)),
		uintptr(init), uintptr(unsafe.Pointer(&proto)))
	return protocolFromSys(proto), Code(uint32(rc))
}

func (winscardService) disconnect(card cardHandle, d Disposition) Code {
	rc, _, _ := procDisconnect.Call(uintptr(card), uintptr(d))
	return Code(uint32(rc))
}

func (winscardService) beginTransaction(card cardHandle) Code {
	rc, _, _ := procBeginTransaction.Call(uintptr(card))
	return Code(uint32(rc))
}

func (winscardService) endTransaction(card cardHandle, d Disposition) Code {
	rc, _, _ := procEndTransaction.Call(uintptr(card), uintptr(d))
	return Code(uint32(rc))
}

func (winscardService) statusLen(card cardHandle) (int, int, Code) {
	var readerLen, atrLen uint32
	var state, proto uint32
	rc, _, _ := procStatus.Call(uintptr(card), 0, uintptr(unsafe.Pointer(&readerLen)),
		uintptr(unsafe.Pointer(&state)), uintptr(unsafe.Pointer(&proto)),
		0, uintptr(unsafe.Pointer(&atrLen)))
	return int(readerLen), int(atrLen), Code(uint32(rc))
}

func (winscardService) status(card cardHandle, readerBuf, atrBuf []byte) (cardStatusInfo, Code) {
	var readerPtr, atrPtr *byte
	if len(readerBuf) != 0 {
		readerPtr = &readerBuf[0]
	}
	if len(atrBuf) != 0 {
		atrPtr = &atrBuf[0]
	}
	readerLen := uint32(len(readerBuf))
	atrLen := uint32(len(atrBuf))
	var state, proto uint32

	rc, _, _ := procStatus.Call(uintptr(card),
		uintptr(unsafe.Pointer(readerPtr)), uintptr(unsafe.Pointer(&readerLen)),
		uintptr(unsafe.Pointer(&state)), uintptr(unsafe.Pointer(&proto)),
		uintptr(unsafe.Pointer(atrPtr)), uintptr(unsafe.Pointer(&atrLen)))
	if Code(uint32(rc)) != codeSuccess {
		return cardStatusInfo{}, Code(uint32(rc))
	}
	return cardStatusInfo{
		readerNames: readerBuf[:readerLen],
		state:       cardStateFromOrdinal(state),
		protocol:    protocolFromSys(proto),
		atr:         atrBuf[:atrLen],
	}, codeSuccess
}

func (winscardService) transmit(card cardHandle, proto Protocol, send, recv []byte) (int, Code) {
	sendPci := winIoRequest{
		protocol:  protocolToSys(proto),
		pciLength: uint32(unsafe.Sizeof(winIoRequest{})),
	}
	var sendPtr, recvPtr *byte
	if len(send) != 0 {
		sendPtr = &send[0]
	}
	if len(recv) != 0 {
		recvPtr = &recv[0]
	}
	recvLen := uint32(len(recv))

	rc, _, _ := procTransmit.Call(uintptr(card), uintptr(unsafe.Pointer(&sendPci)),
		uintptr(unsafe.Pointer(sendPtr)), uintptr(len(send)), 0,
		uintptr(unsafe.Pointer(recvPtr)), uintptr(unsafe.Pointer(&recvLen)))
	return int(recvLen), Code(uint32(rc))
}

func (winscardService) control(card cardHandle, code uint32, send, recv []byte) (int, Code) {
	var sendPtr, recvPtr *byte
	if len(send) != 0 {
		sendPtr = &send[0]
	}
	if len(recv) != 0 {
		recvPtr = &recv[0]
	}
	var n uint32

	rc, _, _ := procControl.Call(uintptr(card), uintptr(code),
		uintptr(unsafe.Pointer(sendPtr)), uintptr(len(send)),
		uintptr(unsafe.Pointer(recvPtr)), uintptr(len(recv)),
		uintptr(unsafe.Pointer(&n)))
	return int(n), Code(uint32(rc))
}

func (winscardService) getAttribute(card cardHandle, attr Attribute, buf []byte) (int, Code) {
	var ptr *byte
	if len(buf) != 0 {
		ptr = &buf[0]
	}
	n := uint32(len(buf))
	rc, _, _ := procGetAttrib.Call(uintptr(card), uintptr(attr),
		uintptr(unsafe.Pointer(ptr)), uintptr(unsafe.Pointer(&n)))
	return int(n), Code(uint32(rc))
}

func (winscardService) setAttribute(card cardHandle, attr Attribute, value []byte) Code {
	var ptr *byte
	if len(value) != 0 {
		ptr = &value[0]
	}
	rc, _, _ := procSetAttrib.Call(uintptr(card), uintptr(attr),
		uintptr(unsafe.Pointer(ptr)), uintptr(len(value)))
	return Code(uint32(rc))
}
