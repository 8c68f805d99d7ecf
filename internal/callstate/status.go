// Package callstate derives a call-status state machine from the signaling
// attributes and track events the media room pushes for the SIP participant.
// The status is owned by the signaling plane; this package only mirrors it.
package callstate

// AttributeCallStatus is the participant attribute key the signaling plane
// sets on the SIP leg.
const AttributeCallStatus = "sip.callStatus"

// Status is the SIP call status reported by the signaling plane. Values
// outside the enumerated set parse to StatusUnknown and are treated as
// "no status".
type Status int

const (
	StatusUnknown Status = iota
	StatusIdle
	StatusDialing
	StatusRinging
	StatusActive
	StatusHangup
)

// ParseStatus maps the raw attribute value onto the Status enum.
func ParseStatus(raw string) Status {
	switch raw {
	case "idle":
		return StatusIdle
	case "dialing":
		return StatusDialing
	case "ringing":
		return StatusRinging
	case "active":
		return StatusActive
	case "hangup":
		return StatusHangup
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusDialing:
		return "dialing"
	case StatusRinging:
		return "ringing"
	case StatusActive:
		return "active"
	case StatusHangup:
		return "hangup"
	default:
		return "unknown"
	}
}

// rank orders statuses along the forward progression of a call attempt.
// Attribute updates may arrive reordered by the network; an update ranked
// below the current status is a stale regression and is ignored.
func (s Status) rank() int {
	switch s {
	case StatusIdle:
		return 1
	case StatusDialing:
		return 2
	case StatusRinging:
		return 3
	case StatusActive:
		return 4
	case StatusHangup:
		return 5
	default:
		return 0
	}
}
