package telemetry

import (
	"encoding/json"
	"net"
	"sync/atomic"

	"github.com/banshee-data/gnss-track/internal/dsp"
	"github.com/banshee-data/gnss-track/internal/gnss"
)

// UDPSender sends tracking diagnostics as JSON datagrams.
type UDPSender struct {
	conn    net.Conn
	session string
	dropped atomic.Uint64
}

// NewUDPSender dials the collector address, e.g. "127.0.0.1:9901".
func NewUDPSender(addr string) (*UDPSender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &UDPSender{conn: conn, session: newSessionID()}, nil
}

// SendCorrelations marshals and sends one diagnostic datagram. Failures
// are counted, never surfaced to the tick.
func (s *UDPSender) SendCorrelations(sid gnss.SignalID, cs [3]dsp.Correlation, cn0 float64) {
	msg := newMessage(s.session, sid, cs, cn0)
	buf, err := json.Marshal(msg)
	if err != nil {
		s.dropped.Add(1)
		return
	}
	if _, err := s.conn.Write(buf); err != nil {
		s.dropped.Add(1)
	}
}

// Dropped returns the number of messages that could not be sent.
func (s *UDPSender) Dropped() uint64 { return s.dropped.Load() }

// Close closes the underlying socket.
func (s *UDPSender) Close() error { return s.conn.Close() }
