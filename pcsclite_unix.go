//go:build linux || freebsd

package pcsc

// #cgo linux pkg-config: libpcsclite
// #cgo freebsd CFLAGS: -I/usr/local/include/PCSC
// #cgo freebsd LDFLAGS: -L/usr/local/lib/ -lpcsclite
// #include <stdlib.h>
// #include <winscard.h>
import "C"

import (
	"time"
	"unsafe"
)

// pcscLiteService talks to pcscd through the libpcsclite C API. The
// library already uses the same card state and protocol encodings as
// this package, so no value translation is needed.
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
	rc := C.SCardEstablishContext(C.DWORD(scope), nil, nil, &ctx)
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
	n := C.DWORD(len(buf))
	rc := C.SCardListReaders(C.SCARDCONTEXT(ctx), nil, ptr, &n)
	return int(n), Code(rc)
}

func (pcscLiteService) getStatusChange(ctx contextHandle, timeout time.Duration, states []ReaderState) Code {
	if len(states) == 0 {
		return Code(C.SCardGetStatusChange(C.SCARDCONTEXT(ctx), C.DWORD(serviceTimeout(timeout)), nil, 0))
	}

	sys := make([]C.SCARD_READERSTATE, len(states))
	for i := range states {
		sys[i].szReader = C.CString(states[i].Reader)
		sys[i].dwCurrentState = C.DWORD(states[i].CurrentState)
	}
	defer func() {
		for i := range sys {
			C.free(unsafe.Pointer(sys[i].szReader))
		}
	}()

	rc := C.SCardGetStatusChange(C.SCARDCONTEXT(ctx), C.DWORD(serviceTimeout(timeout)), &sys[0], C.DWORD(len(sys)))

	for i := range states {
		states[i].EventState = StateFlag(sys[i].dwEventState)
		states[i].Atr = C.GoBytes(unsafe.Pointer(&sys[i].rgbAtr[0]), C.int(sys[i].cbAtr))
	}
	return Code(rc)
}

func (pcscLiteService) connect(ctx contextHandle, reader string, mode ShareMode, preferred Protocol) (cardHandle, Protocol, Code) {
	creader := C.CString(reader)
	defer C.free(unsafe.Pointer(creader))

	var handle C.SCARDHANDLE
	var proto C.DWORD
	rc := C.SCardConnect(C.SCARDCONTEXT(ctx), creader, C.DWORD(mode), C.DWORD(preferred), &handle, &proto)
	return cardHandle(handle), Protocol(proto), Code(rc)
}

func (pcscLiteService) reconnect(card cardHandle, mode ShareMode, preferred Protocol, init Disposition) (Protocol, Code) {
	var proto C.DWORD
	rc := C.SCardReconnect(C.SCARDHANDLE(card), C.DWORD(mode), C.DWORD(preferred), C.DWORD(init), &proto)
	return Protocol(proto), Code(rc)
}

func (pcscLiteService) disconnect(card cardHandle, d Disposition) Code {
	return Code(C.SCardDisconnect(C.SCARDHANDLE(card), C.DWORD(d)))
}

func (pcscLiteService) beginTransaction(card cardHandle) Code {
	return Code(C.SCardBeginTransaction(C.SCARDHANDLE(card)))
}

func (pcscLiteService) endTransaction(card cardHandle, d Disposition) Code {
	return Code(C.SCardEndTransaction(C.SCARDHANDLE(card), C.DWORD(d)))
}

func (pcscLiteService) statusLen(card cardHandle) (int, int, Code) {
	var readerLen, atrLen C.DWORD
	var state, proto C.DWORD
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
	readerLen := C.DWORD(len(readerBuf))
	atrLen := C.DWORD(len(atrBuf))
	var state, proto C.DWORD

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
	sendPci := C.SCARD_IO_REQUEST{
		dwProtocol:  C.ulong(proto),
		cbPciLength: C.sizeof_SCARD_IO_REQUEST,
	}
	var sendPtr *C.uchar
	if len(send) != 0 {
		sendPtr = (*C.uchar)(unsafe.Pointer(&send[0]))
	}
	var recvPtr *C.uchar
	if len(recv) != 0 {
		recvPtr = (*C.uchar)(unsafe.Pointer(&recv[0]))
	}
	recvLen := C.DWORD(len(recv))

	rc := C.SCardTransmit(C.SCARDHANDLE(card), &sendPci, sendPtr, C.DWORD(len(send)), nil, recvPtr, &recvLen)
	return int(recvLen), Code(rc)
}

func (pcscLiteService) control(card cardHandle, code uint32, send, recv []byte) (int, Code) {
	var sendPtr C.LPCVOID
	if len(send) != 0 {
		sendPtr = C.LPCVOID(unsafe.Pointer(&send[0]))
	}
	var recvPtr C.LPVOID
	if len(recv) != 0 {
		recvPtr = C.LPVOID(unsafe.Pointer(&recv[0]))
	}
	var n C.DWORD

	rc := C.SCardControl(C.SCARDHANDLE(card), C.DWORD(code), sendPtr, C.DWORD(len(send)), recvPtr, C.DWORD(len(recv)), &n)
	return int(n), Code(rc)
}

func (pcscLiteService) getAttribute(card cardHandle, attr Attribute, buf []byte) (int, Code) {
	var ptr C.LPBYTE
	if len(buf) != 0 {
		ptr = C.LPBYTE(unsafe.Pointer(&buf[0]))
	}
	n := C.DWORD(len(buf))
	rc := C.SCardGetAttrib(C.SCARDHANDLE(card), C.DWORD(attr), ptr, &n)
	return int(n), Code(rc)
}

func (pcscLiteService) setAttribute(card cardHandle, attr Attribute, value []byte) Code {
	var ptr C.LPBYTE
	if len(value) != 0 {
		ptr = C.LPBYTE(unsafe.Pointer(&value[0]))
	}
	return Code(C.SCardSetAttrib(C.SCARDHANDLE(card), C.DWORD(attr), ptr, C.DWORD(len(value))))
}
