package telemetry

import (
	"encoding/json"
	"sync/atomic"

	"go.bug.st/serial"

	"github.com/banshee-data/gnss-track/internal/dsp"
	"github.com/banshee-data/gnss-track/internal/gnss"
)

// SerialSender writes tracking diagnostics as JSON lines to a serial
// port, for bench setups where the collector sits on a UART instead of
// the network.
type SerialSender struct {
	port    serial.Port
	session string
	dropped atomic.Uint64
}

// NewSerialSender opens portName at 115200 8N1.
func NewSerialSender(portName string) (*SerialSender, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	return &SerialSender{port: port, session: newSessionID()}, nil
}

// SendCorrelations writes one JSON line. Write errors are counted, never
// surfaced to the tick.
func (s *SerialSender) SendCorrelations(sid gnss.SignalID, cs [3]dsp.Correlation, cn0 float64) {
	msg := newMessage(s.session, sid, cs, cn0)
	buf, err := json.Marshal(msg)
	if err != nil {
		s.dropped.Add(1)
		return
	}
	buf = append(buf, '\n')
	if _, err := s.port.Write(buf); err != nil {
		s.dropped.Add(1)
	}
}

// Dropped returns the number of messages that could not be sent.
func (s *SerialSender) Dropped() uint64 { return s.dropped.Load() }

// Close closes the serial port.
func (s *SerialSender) Close() error { return s.port.Close() }
