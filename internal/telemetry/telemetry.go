// Package telemetry emits per-tick tracking diagnostics as JSON messages
// over UDP or a serial port. Sends are fire and forget: the tracking tick
// never waits on the sink and delivery is not guaranteed.
package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gnss-track/internal/dsp"
	"github.com/banshee-data/gnss-track/internal/gnss"
)

// CorrelationTap is one correlator tap in a diagnostic message.
type CorrelationTap struct {
	I int64 `json:"i"`
	Q int64 `json:"q"`
}

// TrackingMessage is one per-tick diagnostic record.
type TrackingMessage struct {
	Session      string            `json:"session"`
	Time         time.Time         `json:"time"`
	Sat          uint16            `json:"sat"`
	Code         string            `json:"code"`
	CN0          float64           `json:"cn0"`
	Correlations [3]CorrelationTap `json:"correlations"`
}

func newMessage(session string, sid gnss.SignalID, cs [3]dsp.Correlation, cn0 float64) TrackingMessage {
	m := TrackingMessage{
		Session: session,
		Time:    time.Now().UTC(),
		Sat:     sid.Sat,
		Code:    sid.Code.String(),
		CN0:     cn0,
	}
	for i, c := range cs {
		m.Correlations[i] = CorrelationTap{I: c.I, Q: c.Q}
	}
	return m
}

// newSessionID labels every message from one process run so captures can
// be separated after the fact.
func newSessionID() string {
	return uuid.NewString()
}
