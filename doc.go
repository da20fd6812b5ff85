// Package pcsc provides safe access to smart cards through the
// platform PC/SC service.
//
// PC/SC (Personal Computer/Smart Card) is the standard API for
// enumerating card readers, connecting to smart cards and exchanging
// commands with them. This package wraps the native implementations:
// WinSCard.dll and the "Smart Card" service on Windows, the PCSC
// framework on macOS, and pcsclite/pcscd on Linux and the BSDs.
//
// The entry point is EstablishContext, which opens a session with the
// card service. From a Context you can list readers, wait for reader
// and card state changes with GetStatusChange, and Connect to a card.
// A Card supports transmitting APDUs, reading and writing reader
// attributes, and driver control commands. Use Card.Transaction to get
// uninterrupted access to a card for a series of commands; other
// applications and even system services can get in the way otherwise.
//
// A Context can be cloned and shared between goroutines. Operations on
// one session are serialized by the card service: while one goroutine
// is blocked in GetStatusChange, other calls on the same session wait
// for it to finish. The blocked call can be woken early from another
// goroutine with Cancel. For truly concurrent work (monitoring readers
// while talking to a card) establish a separate Context per goroutine.
//
// All failures are reported as *Error values carrying the PC/SC status
// code; nothing in this package panics on a service error. Close
// methods are best-effort cleanup that swallow errors - call Release,
// Disconnect or End explicitly where the outcome matters.
package pcsc
