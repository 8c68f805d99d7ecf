package callstate

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/dialbridge/dialbridge/internal/room"
)

// Phase is the derived call phase that drives UI affordances and audio-track
// selection.
type Phase int

const (
	// PhaseDialing covers everything before ringing: no SIP participant yet,
	// an explicit dialing status, or an active status whose audio track has
	// not been subscribed yet.
	PhaseDialing Phase = iota
	PhaseRinging
	// PhaseActive means the call is connected and the SIP participant's
	// microphone track is subscribed and renderable.
	PhaseActive
	// PhaseEnded is terminal: the signaling plane reported hangup.
	PhaseEnded
	// PhaseParticipantLost means the SIP participant left the room without a
	// hangup status, after having been seen in the room at all.
	PhaseParticipantLost
)

func (p Phase) String() string {
	switch p {
	case PhaseDialing:
		return "dialing"
	case PhaseRinging:
		return "ringing"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	case PhaseParticipantLost:
		return "participant-lost"
	default:
		return "unknown"
	}
}

// View is an immutable snapshot of the observed call state.
type View struct {
	Phase               Phase
	Status              Status
	ParticipantIdentity string
	ParticipantName     string
	// TrackID is the SIP participant's subscribed microphone track, set only
	// while the phase is active.
	TrackID string
	// EverPresent is sticky: set once the SIP participant has been seen in
	// the room, it distinguishes "participant left without hangup" from
	// "participant never joined".
	EverPresent bool
}

// Observer consumes room events and maintains the call-state view. It only
// reads signaling state, never drives it. Safe for concurrent use.
type Observer struct {
	localIdentity string
	onChange      func(View)
	logger        *slog.Logger

	mu          sync.Mutex
	present     bool
	identity    string
	name        string
	status      Status
	trackID     string
	everPresent bool
}

// NewObserver creates an observer for a session joined as localIdentity.
// onChange, if non-nil, is invoked after every event that changed the view.
func NewObserver(localIdentity string, onChange func(View), logger *slog.Logger) *Observer {
	return &Observer{
		localIdentity: localIdentity,
		onChange:      onChange,
		logger:        logger.With("subsystem", "callstate"),
	}
}

// Run applies events from a room subscription until the channel closes.
func (o *Observer) Run(events <-chan room.Event) {
	for ev := range events {
		o.Apply(ev)
	}
}

// Apply folds one room event into the observed state.
func (o *Observer) Apply(ev room.Event) {
	o.mu.Lock()
	before := o.viewLocked()

	// Hangup is terminal: no further transitions are accepted for this
	// session, whatever arrives afterwards.
	if o.status == StatusHangup {
		o.mu.Unlock()
		return
	}

	switch e := ev.(type) {
	case room.ParticipantJoined:
		if o.isSIP(e.Identity) {
			o.present = true
			o.everPresent = true
			o.identity = e.Identity
			o.name = e.Name
		}

	case room.ParticipantLeft:
		if o.isSIP(e.Identity) {
			o.present = false
			o.trackID = ""
		}

	case room.AttributesChanged:
		if o.isSIP(e.Identity) {
			o.applyStatusLocked(ParseStatus(e.Attributes[AttributeCallStatus]))
		}

	case room.TrackSubscribed:
		if o.isSIP(e.Identity) && e.Source == room.SourceMicrophone {
			o.trackID = e.TrackID
		}

	case room.TrackUnsubscribed:
		if o.isSIP(e.Identity) && e.Source == room.SourceMicrophone {
			o.trackID = ""
		}
	}

	after := o.viewLocked()
	o.mu.Unlock()

	if after != before && o.onChange != nil {
		o.onChange(after)
	}
}

// applyStatusLocked accepts a status update only if it does not regress the
// forward progression; a late "ringing" after "active" is stale reordering,
// not a state change.
func (o *Observer) applyStatusLocked(next Status) {
	if next.rank() < o.status.rank() {
		o.logger.Debug("ignoring out-of-order call status",
			"current", o.status.String(),
			"stale", next.String(),
		)
		return
	}
	o.status = next
}

// isSIP reports whether identity is the SIP-originated participant. The
// local participant also carries a sip_ prefix and is excluded explicitly.
func (o *Observer) isSIP(identity string) bool {
	return identity != o.localIdentity && strings.HasPrefix(identity, "sip_")
}

// Snapshot returns the current view.
func (o *Observer) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.viewLocked()
}

func (o *Observer) viewLocked() View {
	v := View{
		Status:              o.status,
		ParticipantIdentity: o.identity,
		ParticipantName:     o.name,
		EverPresent:         o.everPresent,
	}

	switch {
	case o.status == StatusHangup:
		v.Phase = PhaseEnded
	case !o.present && o.everPresent:
		v.Phase = PhaseParticipantLost
	case !o.present:
		v.Phase = PhaseDialing
	case o.status == StatusRinging:
		v.Phase = PhaseRinging
	case o.status == StatusActive && o.trackID != "":
		v.Phase = PhaseActive
		v.TrackID = o.trackID
	default:
		v.Phase = PhaseDialing
	}
	return v
}
