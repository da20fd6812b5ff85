package pcsc

import "fmt"

// Code is a PC/SC status code. Zero means success; every other value
// the service can return maps to one of the constants below.
type Code uint32

const (
	codeSuccess Code = 0x00000000

	CodeInternalError          Code = 0x80100001
	CodeCancelled              Code = 0x80100002
	CodeInvalidHandle          Code = 0x80100003
	CodeInvalidParameter       Code = 0x80100004
	CodeInvalidTarget          Code = 0x80100005
	CodeNoMemory               Code = 0x80100006
	CodeWaitedTooLong          Code = 0x80100007
	CodeInsufficientBuffer     Code = 0x80100008
	CodeUnknownReader          Code = 0x80100009
	CodeTimeout                Code = 0x8010000A
	CodeSharingViolation       Code = 0x8010000B
	CodeNoSmartcard            Code = 0x8010000C
	CodeUnknownCard            Code = 0x8010000D
	CodeCantDispose            Code = 0x8010000E
	CodeProtoMismatch          Code = 0x8010000F
	CodeNotReady               Code = 0x80100010
	CodeInvalidValue           Code = 0x80100011
	CodeSystemCancelled        Code = 0x80100012
	CodeCommError              Code = 0x80100013
	CodeUnknownError           Code = 0x80100014
	CodeInvalidAtr             Code = 0x80100015
	CodeNotTransacted          Code = 0x80100016
	CodeReaderUnavailable      Code = 0x80100017
	CodeShutdown               Code = 0x80100018
	CodePciTooSmall            Code = 0x80100019
	CodeReaderUnsupported      Code = 0x8010001A
	CodeDuplicateReader        Code = 0x8010001B
	CodeCardUnsupported        Code = 0x8010001C
	CodeNoService              Code = 0x8010001D
	CodeServiceStopped         Code = 0x8010001E
	CodeUnsupportedFeature     Code = 0x8010001F
	CodeIccInstallation        Code = 0x80100020
	CodeIccCreateOrder         Code = 0x80100021
	CodeDirNotFound            Code = 0x80100023
	CodeFileNotFound           Code = 0x80100024
	CodeNoDir                  Code = 0x80100025
	CodeNoFile                 Code = 0x80100026
	CodeNoAccess               Code = 0x80100027
	CodeWriteTooMany           Code = 0x80100028
	CodeBadSeek                Code = 0x80100029
	CodeInvalidChv             Code = 0x8010002A
	CodeUnknownResMng          Code = 0x8010002B
	CodeNoSuchCertificate      Code = 0x8010002C
	CodeCertificateUnavailable Code = 0x8010002D
	CodeNoReadersAvailable     Code = 0x8010002E
	CodeCommDataLost           Code = 0x8010002F
	CodeNoKeyContainer         Code = 0x80100030
	CodeServerTooBusy          Code = 0x80100031

	CodeUnsupportedCard       Code = 0x80100065
	CodeUnresponsiveCard      Code = 0x80100066
	CodeUnpoweredCard         Code = 0x80100067
	CodeResetCard             Code = 0x80100068
	CodeRemovedCard           Code = 0x80100069
	CodeSecurityViolation     Code = 0x8010006A
	CodeWrongChv              Code = 0x8010006B
	CodeChvBlocked            Code = 0x8010006C
	CodeEOF                   Code = 0x8010006D
	CodeCancelledByUser       Code = 0x8010006E
	CodeCardNotAuthenticated  Code = 0x8010006F
	CodeCacheItemNotFound     Code = 0x80100070
	CodeCacheItemStale        Code = 0x80100071
	CodeCacheItemTooBig       Code = 0x80100072
)

// Windows reports 0x80100022 for an unsupported feature where pcsclite
// reports 0x8010001F; both collapse to CodeUnsupportedFeature.
const codeUnsupportedFeatureWindows Code = 0x80100022

// Messages are the MSDN descriptions of the status codes.
var codeMessages = map[Code]string{
	CodeInternalError:          "an internal consistency check failed",
	CodeCancelled:              "the action was cancelled by a cancel request",
	CodeInvalidHandle:          "the supplied handle was invalid",
	CodeInvalidParameter:       "one or more of the supplied parameters could not be properly interpreted",
	CodeInvalidTarget:          "registry startup information is missing or invalid",
	CodeNoMemory:               "not enough memory available to complete this command",
	CodeWaitedTooLong:          "an internal consistency timer has expired",
	CodeInsufficientBuffer:     "the data buffer to receive returned data is too small for the returned data",
	CodeUnknownReader:          "the specified reader name is not recognized",
	CodeTimeout:                "the user-specified timeout value has expired",
	CodeSharingViolation:       "the smart card cannot be accessed because of other connections outstanding",
	CodeNoSmartcard:            "the operation requires a smart card, but no smart card is currently in the device",
	CodeUnknownCard:            "the specified smart card name is not recognized",
	CodeCantDispose:            "the system could not dispose of the media in the requested manner",
	CodeProtoMismatch:          "the requested protocols are incompatible with the protocol currently in use with the smart card",
	CodeNotReady:               "the reader or smart card is not ready to accept commands",
	CodeInvalidValue:           "one or more of the supplied parameter values could not be properly interpreted",
	CodeSystemCancelled:        "the action was cancelled by the system, presumably to log off or shut down",
	CodeCommError:              "an internal communications error has been detected",
	CodeUnknownError:           "an internal error has been detected, but the source is unknown",
	CodeInvalidAtr:             "an ATR obtained from the registry is not a valid ATR string",
	CodeNotTransacted:          "an attempt was made to end a non-existent transaction",
	CodeReaderUnavailable:      "the specified reader is not currently available for use",
	CodeShutdown:               "the operation has been aborted to allow the server application to exit",
	CodePciTooSmall:            "the PCI receive buffer was too small",
	CodeReaderUnsupported:      "the reader driver does not meet minimal requirements for support",
	CodeDuplicateReader:        "the reader driver did not produce a unique reader name",
	CodeCardUnsupported:        "the smart card does not meet minimal requirements for support",
	CodeNoService:              "the smart card resource manager is not running",
	CodeServiceStopped:         "the smart card resource manager has shut down",
	CodeUnsupportedFeature:     "this smart card does not support the requested feature",
	CodeIccInstallation:        "no primary provider can be found for the smart card",
	CodeIccCreateOrder:         "the requested order of object creation is not supported",
	CodeDirNotFound:            "the identified directory does not exist in the smart card",
	CodeFileNotFound:           "the identified file does not exist in the smart card",
	CodeNoDir:                  "the supplied path does not represent a smart card directory",
	CodeNoFile:                 "the supplied path does not represent a smart card file",
	CodeNoAccess:               "access is denied to this file",
	CodeWriteTooMany:           "the smart card does not have enough memory to store the information",
	CodeBadSeek:                "there was an error trying to set the smart card file object pointer",
	CodeInvalidChv:             "the supplied PIN is incorrect",
	CodeUnknownResMng:          "an unrecognized error code was returned from a layered component",
	CodeNoSuchCertificate:      "the requested certificate does not exist",
	CodeCertificateUnavailable: "the requested certificate could not be obtained",
	CodeNoReadersAvailable:     "cannot find a smart card reader",
	CodeCommDataLost:           "a communications error with the smart card has been detected",
	CodeNoKeyContainer:         "the requested key container does not exist on the smart card",
	CodeServerTooBusy:          "the smart card resource manager is too busy to complete this operation",
	CodeUnsupportedCard:        "the reader cannot communicate with the card, due to ATR configuration conflicts",
	CodeUnresponsiveCard:       "the smart card is not responding to a reset",
	CodeUnpoweredCard:          "power has been removed from the smart card, so that further communication is not possible",
	CodeResetCard:              "the smart card has been reset, so any shared state information is invalid",
	CodeRemovedCard:            "the smart card has been removed, so further communication is not possible",
	CodeSecurityViolation:      "access was denied because of a security violation",
	CodeWrongChv:               "the card cannot be accessed because the wrong PIN was presented",
	CodeChvBlocked:             "the card cannot be accessed because the maximum number of PIN entry attempts has been reached",
	CodeEOF:                    "the end of the smart card file has been reached",
	CodeCancelledByUser:        "the user pressed Cancel on a smart card selection dialog",
	CodeCardNotAuthenticated:   "no PIN was presented to the smart card",
	CodeCacheItemNotFound:      "the requested item could not be found in the cache",
	CodeCacheItemStale:         "the requested cache item is too old and was deleted from the cache",
	CodeCacheItemTooBig:        "the new cache item exceeds the maximum per-item size defined for the cache",
}

// Error is a failure reported by the PC/SC service or by this package.
type Error struct {
	// Code identifies the failure condition.
	Code Code
	// Size is the required buffer size accompanying a
	// CodeInsufficientBuffer failure, when the service reported one.
	// Zero otherwise.
	Size int

	raw Code // original value for codes outside the known set
}

func (e *Error) Error() string {
	msg := codeMessages[e.Code]
	if e.raw != 0 {
		return fmt.Sprintf("%s (service returned 0x%08x)", msg, uint32(e.raw))
	}
	return msg
}

// Is reports whether target is a *Error with the same Code, so that
// errors.Is(err, pcsc.ErrTimeout) works across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Temporary reports whether the failure is transient and the same call
// may succeed if simply retried.
func (e *Error) Temporary() bool {
	switch e.Code {
	case CodeTimeout, CodeNotReady, CodeServerTooBusy, CodeCommDataLost:
		return true
	}
	return false
}

// newError maps a non-zero status code to an *Error. Codes outside the
// known set degrade to CodeUnknownError instead of propagating an
// invalid enumeration value.
func newError(code Code) *Error {
	if code == codeUnsupportedFeatureWindows {
		code = CodeUnsupportedFeature
	}
	if _, ok := codeMessages[code]; !ok {
		return &Error{Code: CodeUnknownError, raw: code}
	}
	return &Error{Code: code}
}

// newSizedError is newError plus the required buffer size reported by
// the service for insufficient-buffer failures.
func newSizedError(code Code, size int) *Error {
	err := newError(code)
	if err.Code == CodeInsufficientBuffer {
		err.Size = size
	}
	return err
}

// Sentinel values for errors.Is. Matching is by Code only.
var (
	ErrCancelled          = &Error{Code: CodeCancelled}
	ErrTimeout            = &Error{Code: CodeTimeout}
	ErrCantDispose        = &Error{Code: CodeCantDispose}
	ErrInsufficientBuffer = &Error{Code: CodeInsufficientBuffer}
	ErrInvalidHandle      = &Error{Code: CodeInvalidHandle}
	ErrNoService          = &Error{Code: CodeNoService}
	ErrNoSmartcard        = &Error{Code: CodeNoSmartcard}
	ErrNoReadersAvailable = &Error{Code: CodeNoReadersAvailable}
	ErrProtoMismatch      = &Error{Code: CodeProtoMismatch}
	ErrReaderUnavailable  = &Error{Code: CodeReaderUnavailable}
	ErrRemovedCard        = &Error{Code: CodeRemovedCard}
	ErrResetCard          = &Error{Code: CodeResetCard}
	ErrSharingViolation   = &Error{Code: CodeSharingViolation}
	ErrUnknownError       = &Error{Code: CodeUnknownError}
)
