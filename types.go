package pcsc

// Scope selects the namespace of readers visible to a session.
type Scope uint32

const (
	ScopeUser     Scope = 0x0000
	ScopeTerminal Scope = 0x0001
	ScopeSystem   Scope = 0x0002
	ScopeGlobal   Scope = 0x0003
)

// ShareMode controls how a reader connection is shared with other
// applications.
type ShareMode uint32

const (
	ShareExclusive ShareMode = 0x0001
	ShareShared    ShareMode = 0x0002
	ShareDirect    ShareMode = 0x0003
)

// Protocol is a smart card communication protocol. Values can be OR-ed
// together to form a mask of acceptable protocols for Connect and
// Reconnect; the negotiated result is always a single protocol, or
// ProtocolUndefined for direct connections.
//
// The values are the pcsclite ones on every platform; the Windows
// encoding of ProtocolRaw is translated at the boundary.
type Protocol uint32

const (
	ProtocolUndefined Protocol = 0x0000
	ProtocolT0        Protocol = 0x0001
	ProtocolT1        Protocol = 0x0002
	ProtocolRaw       Protocol = 0x0004
	ProtocolAny                = ProtocolT0 | ProtocolT1
)

func (p Protocol) String() string {
	switch p {
	case ProtocolUndefined:
		return "UNDEFINED"
	case ProtocolT0:
		return "T0"
	case ProtocolT1:
		return "T1"
	case ProtocolRaw:
		return "RAW"
	default:
		return "UNKNOWN"
	}
}

// Disposition is the action taken on the card when disconnecting or
// ending a transaction.
type Disposition uint32

const (
	LeaveCard   Disposition = 0x0000
	ResetCard   Disposition = 0x0001
	UnpowerCard Disposition = 0x0002
	EjectCard   Disposition = 0x0003
)

// StateFlag is a bitmask describing the state of a reader, as used by
// GetStatusChange. The upper 16 bits of an event state carry the card
// event counter, see ReaderState.EventCount.
type StateFlag uint32

const (
	StateUnaware     StateFlag = 0x0000
	StateIgnore      StateFlag = 0x0001
	StateChanged     StateFlag = 0x0002
	StateUnknown     StateFlag = 0x0004
	StateUnavailable StateFlag = 0x0008
	StateEmpty       StateFlag = 0x0010
	StatePresent     StateFlag = 0x0020
	StateAtrMatch    StateFlag = 0x0040
	StateExclusive   StateFlag = 0x0080
	StateInUse       StateFlag = 0x0100
	StateMute        StateFlag = 0x0200
	StateUnpowered   StateFlag = 0x0400
)

// stateCounterMask covers the event counter bits of an event state.
const stateCounterMask StateFlag = 0xFFFF0000

// CardState is a bitmask describing the presence and power state of a
// card in a reader, as reported by Card.Status.
//
// Windows reports these as mutually exclusive ordinal codes; they are
// translated to this bitmask form so the meaning is the same on every
// platform (exactly one bit set on Windows).
type CardState uint32

const (
	CardStateUnknown    CardState = 0x0001
	CardStateAbsent     CardState = 0x0002
	CardStatePresent    CardState = 0x0004
	CardStateSwallowed  CardState = 0x0008
	CardStatePowered    CardState = 0x0010
	CardStateNegotiable CardState = 0x0020
	CardStateSpecific   CardState = 0x0040
)

// cardStateFromOrdinal translates an ordinal-style card state (the
// Windows SCardStatus encoding, 0..6) into the bitmask form.
func cardStateFromOrdinal(raw uint32) CardState {
	if raw > 6 {
		return 0
	}
	return CardState(1) << raw
}

// Attribute identifies a reader or card property for GetAttribute and
// SetAttribute. The value encodes an attribute class in the upper half
// and a tag in the lower half.
type Attribute uint32

const (
	attrClassVendorInfo     = 1
	attrClassCommunications = 2
	attrClassProtocol       = 3
	attrClassPowerMgmt      = 4
	attrClassSecurity       = 5
	attrClassMechanical     = 6
	attrClassVendorDefined  = 7
	attrClassIfdProtocol    = 8
	attrClassIccState       = 9
	attrClassSystem         = 0
)

const (
	AttrVendorName           Attribute = attrClassVendorInfo<<16 | 0x0100
	AttrVendorIfdType        Attribute = attrClassVendorInfo<<16 | 0x0101
	AttrVendorIfdVersion     Attribute = attrClassVendorInfo<<16 | 0x0102
	AttrVendorIfdSerialNo    Attribute = attrClassVendorInfo<<16 | 0x0103
	AttrChannelId            Attribute = attrClassCommunications<<16 | 0x0110
	AttrAsyncProtocolTypes   Attribute = attrClassProtocol<<16 | 0x0120
	AttrDefaultClk           Attribute = attrClassProtocol<<16 | 0x0121
	AttrMaxClk               Attribute = attrClassProtocol<<16 | 0x0122
	AttrDefaultDataRate      Attribute = attrClassProtocol<<16 | 0x0123
	AttrMaxDataRate          Attribute = attrClassProtocol<<16 | 0x0124
	AttrMaxIfsd              Attribute = attrClassProtocol<<16 | 0x0125
	AttrSyncProtocolTypes    Attribute = attrClassProtocol<<16 | 0x0126
	AttrPowerMgmtSupport     Attribute = attrClassPowerMgmt<<16 | 0x0131
	AttrUserToCardAuthDevice Attribute = attrClassSecurity<<16 | 0x0140
	AttrUserAuthInputDevice  Attribute = attrClassSecurity<<16 | 0x0142
	AttrCharacteristics      Attribute = attrClassMechanical<<16 | 0x0150

	AttrCurrentProtocolType Attribute = attrClassIfdProtocol<<16 | 0x0201
	AttrCurrentClk          Attribute = attrClassIfdProtocol<<16 | 0x0202
	AttrCurrentF            Attribute = attrClassIfdProtocol<<16 | 0x0203
	AttrCurrentD            Attribute = attrClassIfdProtocol<<16 | 0x0204
	AttrCurrentN            Attribute = attrClassIfdProtocol<<16 | 0x0205
	AttrCurrentW            Attribute = attrClassIfdProtocol<<16 | 0x0206
	AttrCurrentIfsc         Attribute = attrClassIfdProtocol<<16 | 0x0207
	AttrCurrentIfsd         Attribute = attrClassIfdProtocol<<16 | 0x0208
	AttrCurrentBwt          Attribute = attrClassIfdProtocol<<16 | 0x0209
	AttrCurrentCwt          Attribute = attrClassIfdProtocol<<16 | 0x020a
	AttrCurrentEbcEncoding  Attribute = attrClassIfdProtocol<<16 | 0x020b
	AttrExtendedBwt         Attribute = attrClassIfdProtocol<<16 | 0x020c

	AttrIccPresence        Attribute = attrClassIccState<<16 | 0x0300
	AttrIccInterfaceStatus Attribute = attrClassIccState<<16 | 0x0301
	AttrCurrentIoState     Attribute = attrClassIccState<<16 | 0x0302
	AttrAtrString          Attribute = attrClassIccState<<16 | 0x0303
	AttrIccTypePerAtr      Attribute = attrClassIccState<<16 | 0x0304

	AttrEscReset       Attribute = attrClassVendorDefined<<16 | 0xA000
	AttrEscCancel      Attribute = attrClassVendorDefined<<16 | 0xA003
	AttrEscAuthRequest Attribute = attrClassVendorDefined<<16 | 0xA005
	AttrMaxInput       Attribute = attrClassVendorDefined<<16 | 0xA007

	AttrDeviceUnit           Attribute = attrClassSystem<<16 | 0x0001
	AttrDeviceInUse          Attribute = attrClassSystem<<16 | 0x0002
	AttrDeviceFriendlyName   Attribute = attrClassSystem<<16 | 0x0003
	AttrDeviceSystemName     Attribute = attrClassSystem<<16 | 0x0004
	AttrSupressT1IfsRequest  Attribute = attrClassSystem<<16 | 0x0007
)

const (
	// MaxAtrSize is the maximum length of an ATR in bytes.
	MaxAtrSize = 33
	// MaxBufferSize is the maximum length of a short APDU command or
	// response.
	MaxBufferSize = 264
	// MaxBufferSizeExtended is the maximum length of an extended APDU
	// command or response.
	MaxBufferSizeExtended = 4 + 3 + (1 << 16) + 3 + 2
)

// PnPNotification is a reserved reader name. A ReaderState entry using
// it makes GetStatusChange report reader insertions and removals, as
// opposed to card state changes of one specific reader.
const PnPNotification = `\\?PnP?\Notification`

// infiniteTimeout is the service encoding of an unbounded wait.
const infiniteTimeout = 0xFFFFFFFF
