// Package session owns the single live outbound call: it issues the
// connection, joins the media room, supervises the microphone publish,
// reacts to room events, and tears the room down exactly once when the call
// ends for any reason.
package session

import "log/slog"

// CallSession is a snapshot of the one call attempt currently owned by the
// orchestrator. It exists from the moment a join is attempted until the room
// disconnects or is torn down.
type CallSession struct {
	RoomName               string
	DialedNumber           string
	LocalMicEnabled        bool
	SIPParticipantIdentity string
	// Status is the orchestrator lifecycle state at snapshot time: idle,
	// starting, active, or ending.
	Status string
}

// Alerter surfaces user-facing alerts. The original UI renders these as
// toasts; the default implementation logs them.
type Alerter interface {
	Alert(title, detail string)
}

// LogAlerter writes alerts to a slog.Logger.
type LogAlerter struct {
	Logger *slog.Logger
}

func (a *LogAlerter) Alert(title, detail string) {
	a.Logger.Warn("alert", "title", title, "detail", detail)
}
