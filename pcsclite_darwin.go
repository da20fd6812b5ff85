//go:build darwin

package pcsc

// #cgo LDFLAGS: -framework PCSC
// #include <stdlib.h>
// #include <PCSC/winscard.h>
// #include <PCSC/wintypes.h>
import "C"

import (
	"time"
	"unsafe"
)

// pcscLiteService talks to the PCSC framework. The framework uses the
// same card state and protocol encodings as this package, so no value
// translation is needed; only the reader state struct layout differs
// from the other unix systems.
type pcscLiteService struct{}

func systemService() service {
	return pcscLiteService{}
}

// CtlCode builds the platform encoding of a reader control code for
// use with Card.Control.
func CtlCode(code uint32) uint32 {
	return 0x42000000 + code
}

func (pcscLiteService) establishContext(scope Scope) (contextHandle, Code) {
	var ctx C.SCARDCONTEXT
	rc := C.SCardEstablishContext(C.uint32_t(scope), nil, nil, &ctx)
	return contextHandle(ctx), Code(rc)
}

func (pcscLiteService) releaseContext(ctx contextHandle) Code {
	return Code(C.SCardReleaseContext(C.SCARDCONTEXT(ctx)))
}

func (pcscLiteService) isValidContext(ctx contextHandle) bool {
	return C.SCardIsValidContext(C.SCARDCONTEXT(ctx)) == C.SCARD_S_SUCCESS
}

func (pcscLiteService) cancel(ctx contextHandle) Code {
	return Code(C.SCardCancel(C.SCARDCONTEXT(ctx)))
}

func (pcscLiteService) listReaders(ctx contextHandle, buf []byte) (int, Code) {
	var ptr C.LPSTR
	if len(buf) != 0 {
		ptr = (C.LPSTR)(unsafe.Pointer(&buf[0]))
	}
	n := C.uint32_t(len(buf))
	rc := C.SCardListReaders(C.SCARDCONTEXT(ctx), nil, ptr, &n)
	return int(n), Code(rc)
}

// darwinReaderState is SCARD_READERSTATE_A, which the framework
// declares with 1 byte packing. Go would pad cbAtr to a 4 byte
// multiple, so the array handed to the framework is packed by hand.
type darwinReaderState struct {
	szReader       uintptr
	pvUserData     uintptr
	dwCurrentState uint32
	dwEventState   uint32
	cbAtr          uint32
	rgbAtr         [33]byte
}

const darwinReaderStateSize = int(unsafe.Sizeof(darwinReaderState{})) - 3

func (pcscLiteService) getStatusChange(ctx contextHandle, timeout time.Duration, states []ReaderState) Code {
	if len(states) == 0 {
		return Code(C.SCardGetStatusChange(C.SCARDCONTEXT(ctx), C.uint32_t(serviceTimeout(timeout)), nil, 0))
	}

	sys := make([]darwinReaderState, len(states))
	for i := range states {
		sys[i].szReader = uintptr(unsafe.Pointer(C.CString(states[i].Reader)))
		sys[i].dwCurrentState = uint32(states[i].CurrentState)
	}
	defer func() {
		for i := range sys {
			C.free(unsafe.Pointer(sys[i].szReader))
		}
	}()

	const size = darwinReaderStateSize
	buf := make([]byte, size*len(sys))
	for i := range sys {
		copy(buf[i*size:(i+1)*size], (*(*[unsafe.Sizeof(darwinReaderState{})]byte)(unsafe.Pointer(&sys[i])))[:size])
	}

	rc := C.SCardGetStatusChange(C.SCARDCONTEXT(ctx), C.uint32_t(serviceTimeout(timeout)), (C.LPSCARD_READERSTATE_A)(unsafe.Pointer(&buf[0])), C.uint32_t(len(sys)))

	for i := range sys {
		copy((*(*[unsafe.Sizeof(darwinReaderState{})]byte)(unsafe.Pointer(&sys[i])))[:size], buf[i*size:(i+1)*size])
		states[i].EventState = StateFlag(sys[i].dwEventState)
		states[i].Atr = append([]byte(nil), sys[i].rgbAtr[:sys[i].cbAtr]...)
	}
	return Code(rc)
}

func (pcscLiteService) connect(ctx contextHandle, reader string, mode ShareMode, preferred Protocol) (cardHandle, Protocol, Code) {
	creader := C.CString(reader)
	defer C.free(unsafe.Pointer(creader))

	var handle C.SCARDHANDLE
	var proto C.uint32_t
	rc := C.SCardConnect(C.SCARDCONTEXT(ctx), creader, C.uint32_t(mode), C.uint32_t(preferred), &handle, &proto)
	return cardHandle(handle), Protocol(proto), Code(rc)
}

func (pcscLiteService) reconnect(card cardHandle, mode ShareMode, preferred Protocol, init Disposition) (Protocol, Code) {
	var proto C.uint32_t
	rc := C.SCardReconnect(C.SCARDHANDLE(card), C.uint32_t(mode), C.uint32_t(preferred), C.uint32_t(init), &proto)
	return Protocol(proto), Code(rc)
}

func (pcscLiteService) disconnect(card cardHandle, d Disposition) Code {
	return Code(C.SCardDisconnect(C.SCARDHANDLE(card), C.uint32_t(d)))
}

func (pcscLiteService) beginTransaction(card cardHandle) Code {
	return Code(C.SCardBeginTransaction(C.SCARDHANDLE(card)))
}

func (pcscLiteService) endTransaction(card cardHandle, d Disposition) Code {
	return Code(C.SCardEndTransaction(C.SCARDHANDLE(card), C.uint32_t(d)))
}

func (pcscLiteService) statusLen(card cardHandle) (int, int, Code) {
	var readerLen, atrLen C.uint32_t
	var state, proto C.uint32_t
	rc := C.SCardStatus(C.SCARDHANDLE(card), nil, &readerLen, &state, &proto, nil, &atrLen)
	return int(readerLen), int(atrLen), Code(rc)
}

func (pcscLiteService) status(card cardHandle, readerBuf, atrBuf []byte) (cardStatusInfo, Code) {
	var readerPtr C.LPSTR
	if len(readerBuf) != 0 {
		readerPtr = (C.LPSTR)(unsafe.Pointer(&readerBuf[0]))
	}
	var atrPtr *C.uchar
	if len(atrBuf) != 0 {
		atrPtr = (*C.uchar)(unsafe.Pointer(&atrBuf[0]))
	}
	readerLen := C.uint32_t(len(readerBuf))
	atrLen := C.uint32_t(len(atrBuf))
	var state, proto C.uint32_t

	rc := C.SCardStatus(C.SCARDHANDLE(card), readerPtr, &readerLen, &state, &proto, atrPtr, &atrLen)
	if Code(rc) != codeSuccess {
		return cardStatusInfo{}, Code(rc)
	}
	return cardStatusInfo{
		readerNames: readerBuf[:readerLen],
		state:       CardState(state),
		protocol:    Protocol(proto),
		atr:         atrBuf[:atrLen],
	}, codeSuccess
}

func (pcscLiteService) transmit(card cardHandle, proto Protocol, send, recv []byte) (int, Code) {
	var sendPci C.SCARD_IO_REQUEST
	sendPci.dwProtocol = C.uint32_t(proto)
	sendPci.cbPciLength = C.sizeof_SCARD_IO_REQUEST
	var sendPtr *C.uchar
	if len(send) != 0 {
		sendPtr = (*C.uchar)(unsafe.Pointer(&send[0]))
	}
	var recvPtr *C.uchar
	if len(recv) != 0 {
		recvPtr = (*C.uchar)(unsafe.Pointer(&recv[0]))
	}
	recvLen := C.uint32_t(len(recv))

	rc := C.SCardTransmit(C.SCARDHANDLE(card), &sendPci, sendPtr, C.uint32_t(len(send)), nil, recvPtr, &recvLen)
	return int(recvLen), Code(rc)
}

func (pcscLiteService) control(card cardHandle, code uint32, send, recv []byte) (int, Code) {
	var sendPtr unsafe.Pointer
	if len(send) != 0 {
		sendPtr = unsafe.Pointer(&send[0])
	}
	var recvPtr unsafe.Pointer
	if len(recv) != 0 {
		recvPtr = unsafe.Pointer(&recv[0])
	}
	var n C.uint32_t

	rc := C.SCardControl(C.SCARDHANDLE(card), C.uint32_t(code), sendPtr, C.uint32_t(len(send)), recvPtr, C.uint32_t(len(recv)), &n)
	return int(n), Code(rc)
}

func (pcscLiteService) getAttribute(card cardHandle, attr Attribute, buf []byte) (int, Code) {
	var ptr *C.uint8_t
	if len(buf) != 0 {
		ptr = (*C.uint8_t)(unsafe.Pointer(&buf[0]))
	}
	n := C.uint32_t(len(buf))
	rc := C.SCardGetAttrib(C.SCARDHANDLE(card), C.uint32_t(attr), ptr, &n)
	return int(n), Code(rc)
}

func (pcscLiteService) setAttribute(card cardHandle, attr Attribute, value []byte) Code {
	var ptr *C.uint8_t
	if len(value) != 0 {
		ptr = (*C.uint8_t)(unsafe.Pointer(&value[0]))
	}
	return Code(C.SCardSetAttrib(C.SCARDHANDLE(card), C.uint32_t(attr), ptr, C.uint32_t(len(value))))
}
