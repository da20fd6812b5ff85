package pcsc

// ReaderState is one entry in a GetStatusChange query. Reader and
// CurrentState are inputs; EventState and Atr are filled in by the
// call. UserData is carried through untouched.
type ReaderState struct {
	// Reader is the reader name to watch, or PnPNotification to watch
	// for reader arrival and removal.
	Reader string
	// UserData is an opaque value for the caller's own bookkeeping.
	UserData any
	// CurrentState is the state the caller believes the reader is in.
	// GetStatusChange returns when the actual state differs.
	CurrentState StateFlag
	// EventState is the state reported by the last GetStatusChange.
	EventState StateFlag
	// Atr is the card ATR reported by the last GetStatusChange, if a
	// card is present.
	Atr []byte
}

// NewReaderState returns a query entry for the named reader with an
// Unaware current state, so the first GetStatusChange reports the
// actual state immediately.
func NewReaderState(reader string) ReaderState {
	return ReaderState{Reader: reader, CurrentState: StateUnaware}
}

// EventCount returns the number of card insertions and removals the
// service has seen on this reader, from the last reported event state.
// Not all platforms maintain the count; it may stay zero.
func (rs *ReaderState) EventCount() uint16 {
	return uint16((rs.EventState & stateCounterMask) >> 16)
}

// Changed reports whether the last GetStatusChange flagged a state
// change on this reader.
func (rs *ReaderState) Changed() bool {
	return rs.EventState&StateChanged != 0
}

// Ignored reports whether the service flagged the reader as unknown in
// the last GetStatusChange.
func (rs *ReaderState) Ignored() bool {
	return rs.EventState&StateIgnore != 0
}

// SyncCurrentState copies the last reported event state into the
// current state, acknowledging the event before the next
// GetStatusChange call. The whole state word is copied, including the
// event counter in the upper 16 bits; syncing only the flag bits makes
// the next call return immediately with a phantom change whenever the
// counter moved.
func (rs *ReaderState) SyncCurrentState() {
	rs.CurrentState = rs.EventState
}
