package pcsc

import (
	"errors"
	"sync/atomic"
	"time"
)

// Context is an open session with the PC/SC service. A Context may be
// shared across goroutines by cloning it; every method is safe for
// concurrent use. Each clone must be closed independently, and the
// session itself is released when the last clone goes away.
type Context struct {
	inner  *contextInner
	closed atomic.Bool
}

// contextInner is the shared state behind a Context and its clones.
// refs counts live clones plus one per connected Card.
type contextInner struct {
	svc    service
	handle contextHandle
	refs   atomic.Int32
}

// EstablishContext opens a session with the system PC/SC service.
func EstablishContext(scope Scope) (*Context, error) {
	return establishContext(systemService(), scope)
}

func establishContext(svc service, scope Scope) (*Context, error) {
	handle, code := svc.establishContext(scope)
	if code != codeSuccess {
		return nil, newError(code)
	}
	inner := &contextInner{svc: svc, handle: handle}
	inner.refs.Store(1)
	return &Context{inner: inner}, nil
}

// Clone returns a new handle to the same session, for handing to
// another goroutine. Cancel called on any handle wakes blocked
// GetStatusChange calls on all of them. Cloning a closed handle yields
// a closed handle; it does not revive the session.
func (ctx *Context) Clone() *Context {
	clone := &Context{inner: ctx.inner}
	if ctx.closed.Load() {
		clone.closed.Store(true)
		return clone
	}
	ctx.inner.refs.Add(1)
	return clone
}

// Release closes the session, failing with CodeCantDispose if other
// clones or connected cards still reference it. On failure the
// Context remains usable. Use Close when the strict check is not
// wanted.
func (ctx *Context) Release() error {
	if ctx.closed.Load() {
		return newError(CodeInvalidHandle)
	}
	if !ctx.inner.refs.CompareAndSwap(1, 0) {
		return newError(CodeCantDispose)
	}
	if code := ctx.inner.svc.releaseContext(ctx.inner.handle); code != codeSuccess {
		ctx.inner.refs.Store(1)
		return newError(code)
	}
	ctx.closed.Store(true)
	return nil
}

// Close drops this handle. The last handle to go releases the session,
// ignoring any error from the service. Close is idempotent and always
// returns nil; it exists to satisfy io.Closer.
func (ctx *Context) Close() error {
	if ctx.closed.Swap(true) {
		return nil
	}
	ctx.inner.decref()
	return nil
}

func (inner *contextInner) decref() {
	if inner.refs.Add(-1) == 0 {
		inner.svc.releaseContext(inner.handle)
	}
}

// IsValid asks the service whether the session is still live. A false
// result usually means the smart card service was restarted and the
// Context must be re-established.
func (ctx *Context) IsValid() bool {
	if ctx.closed.Load() {
		return false
	}
	return ctx.inner.svc.isValidContext(ctx.inner.handle)
}

// Cancel wakes every GetStatusChange call blocked on this session;
// they fail with CodeCancelled. A Cancel with no blocked call has no
// effect on future calls.
func (ctx *Context) Cancel() error {
	if ctx.closed.Load() {
		return newError(CodeInvalidHandle)
	}
	if code := ctx.inner.svc.cancel(ctx.inner.handle); code != codeSuccess {
		return newError(code)
	}
	return nil
}

// ListReadersLen returns the buffer size needed by ListReaders. The
// size may be stale by the time it is used; a reader can plug in
// between the two calls.
func (ctx *Context) ListReadersLen() (int, error) {
	if ctx.closed.Load() {
		return 0, newError(CodeInvalidHandle)
	}
	n, code := ctx.inner.svc.listReaders(ctx.inner.handle, nil)
	switch code {
	case codeSuccess:
		return n, nil
	case CodeNoReadersAvailable:
		return 0, nil
	}
	return 0, newError(code)
}

// ListReaders fills buf with the connected reader names and returns an
// iterator over them. No connected readers is not an error; the
// iterator is simply empty.
func (ctx *Context) ListReaders(buf []byte) (*ReaderNames, error) {
	if ctx.closed.Load() {
		return nil, newError(CodeInvalidHandle)
	}
	n, code := ctx.inner.svc.listReaders(ctx.inner.handle, buf)
	switch code {
	case codeSuccess:
		return &ReaderNames{buf: buf[:n]}, nil
	case CodeNoReadersAvailable:
		return &ReaderNames{}, nil
	case CodeInsufficientBuffer:
		return nil, newSizedError(code, n)
	}
	return nil, newError(code)
}

// ListReadersAll is ListReaders with the buffer managed internally,
// retrying if a reader appears between sizing and filling.
func (ctx *Context) ListReadersAll() ([]string, error) {
	for {
		n, err := ctx.ListReadersLen()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		names, err := ctx.ListReaders(make([]byte, n))
		if err == nil {
			return names.Collect(), nil
		}
		if !errors.Is(err, ErrInsufficientBuffer) {
			return nil, err
		}
	}
}

// GetStatusChange blocks until the state of one of the given readers
// differs from its CurrentState, the timeout expires, or Cancel is
// called on the session. A negative timeout blocks forever. On return
// the EventState and Atr fields of each entry are updated in place.
func (ctx *Context) GetStatusChange(states []ReaderState, timeout time.Duration) error {
	if ctx.closed.Load() {
		return newError(CodeInvalidHandle)
	}
	if code := ctx.inner.svc.getStatusChange(ctx.inner.handle, timeout, states); code != codeSuccess {
		return newError(code)
	}
	return nil
}

// Connect opens a connection to the card in the named reader,
// negotiating one of the preferred protocols. In ShareDirect mode the
// reader can be connected with no card present, with
// ProtocolUndefined as the preferred set.
func (ctx *Context) Connect(reader string, mode ShareMode, preferred Protocol) (*Card, error) {
	if ctx.closed.Load() {
		return nil, newError(CodeInvalidHandle)
	}
	handle, proto, code := ctx.inner.svc.connect(ctx.inner.handle, reader, mode, preferred)
	if code != codeSuccess {
		return nil, newError(code)
	}
	ctx.inner.refs.Add(1)
	return &Card{inner: ctx.inner, handle: handle, proto: proto}, nil
}
