package certs

import (
	"crypto/tls"
	"net"
)

// MuxListener serves TLS and plain HTTP on the same port by sniffing the
// first byte of each connection. A TLS ClientHello starts with the handshake
// record type 0x16, HTTP starts with ASCII.
type MuxListener struct {
	net.Listener
	tlsConfig *tls.Config
}

// NewMuxListener wraps a listener so each accepted connection is routed to
// TLS or plain HTTP.
func NewMuxListener(ln net.Listener, tlsConfig *tls.Config) *MuxListener {
	return &MuxListener{Listener: ln, tlsConfig: tlsConfig}
}

// Accept waits for and returns the next connection.
func (m *MuxListener) Accept() (net.Conn, error) {
	conn, err := m.Listener.Accept()
	if err != nil {
		return nil, err
	}

	sc := &sniffConn{Conn: conn}
	first, err := sc.sniff()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if first == 0x16 {
		return tls.Server(sc, m.tlsConfig), nil
	}
	return sc, nil
}

// sniffConn buffers the first byte of a connection so it can be inspected
// before being handed to the protocol handler.
type sniffConn struct {
	net.Conn
	buffered bool
	first    byte
	err      error
}

func (s *sniffConn) sniff() (byte, error) {
	if s.buffered || s.err != nil {
		return s.first, s.err
	}

	var buf [1]byte
	n, err := s.Conn.Read(buf[:])
	if err != nil {
		s.err = err
		return 0, err
	}
	if n > 0 {
		s.first = buf[0]
		s.buffered = true
	}
	return s.first, nil
}

func (s *sniffConn) Read(b []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.buffered {
		s.buffered = false
		if len(b) == 0 {
			return 0, nil
		}
		b[0] = s.first
		if len(b) == 1 {
			return 1, nil
		}
		n, err := s.Conn.Read(b[1:])
		return n + 1, err
	}
	return s.Conn.Read(b)
}
