// Package room abstracts the media-room runtime the call session runs over.
// The concrete runtime (join handshake, codec negotiation, track transport)
// is an external collaborator; this package defines the command surface and
// the typed event stream that session code consumes.
package room

// TrackSource identifies what a published track captures.
type TrackSource int

const (
	SourceUnknown TrackSource = iota
	SourceMicrophone
)

func (s TrackSource) String() string {
	switch s {
	case SourceMicrophone:
		return "microphone"
	default:
		return "unknown"
	}
}

// Event is a signal pushed by the room runtime. Concrete event types below
// cover the lifecycle the session engine reacts to: connection state,
// participant membership, attribute updates, track subscription, and local
// media-device failures.
type Event interface {
	isEvent()
}

// Connected is emitted once the join handshake completes. It is the
// authoritative "session is live" signal.
type Connected struct{}

// Disconnected is emitted when the room connection ends for any reason,
// including server-side room deletion.
type Disconnected struct {
	Reason string
}

// ParticipantJoined is emitted when a remote participant enters the room.
type ParticipantJoined struct {
	Identity string
	Name     string
}

// ParticipantLeft is emitted when a remote participant leaves the room.
type ParticipantLeft struct {
	Identity string
}

// AttributesChanged carries the latest attribute set pushed by the signaling
// plane for a remote participant. Values are last-write-wins; no history is
// retained.
type AttributesChanged struct {
	Identity   string
	Attributes map[string]string
}

// TrackSubscribed is emitted when a remote participant's track becomes
// locally subscribed and renderable.
type TrackSubscribed struct {
	Identity string
	Source   TrackSource
	TrackID  string
}

// TrackUnsubscribed is emitted when a subscribed track goes away.
type TrackUnsubscribed struct {
	Identity string
	Source   TrackSource
	TrackID  string
}

// MediaDevicesError reports a local capture-device failure. It is advisory;
// the session continues.
type MediaDevicesError struct {
	Err error
}

func (Connected) isEvent()         {}
func (Disconnected) isEvent()      {}
func (ParticipantJoined) isEvent() {}
func (ParticipantLeft) isEvent()   {}
func (AttributesChanged) isEvent() {}
func (TrackSubscribed) isEvent()   {}
func (TrackUnsubscribed) isEvent() {}
func (MediaDevicesError) isEvent() {}
