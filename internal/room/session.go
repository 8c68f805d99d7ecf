package room

import "context"

// MicrophoneOptions configures local microphone publication.
type MicrophoneOptions struct {
	// PreConnectBuffer captures audio while the join handshake is still in
	// flight, so early speech is not dropped.
	PreConnectBuffer bool
}

// Session is one connection to a media room. Implementations are provided by
// the runtime adapter; tests use fakes. All blocking operations take a
// context. Disconnect is the universal cancellation signal: it unblocks
// anything waiting on call progress and ends the event stream.
type Session interface {
	// Connect joins the room at serverURL using the issued credential.
	Connect(ctx context.Context, serverURL, token string) error

	// Disconnect leaves the room. Safe to call more than once.
	Disconnect()

	// SetMicrophoneEnabled publishes or mutes the local microphone.
	SetMicrophoneEnabled(ctx context.Context, enabled bool, opts MicrophoneOptions) error

	// PublishDTMF sends an in-band DTMF signal over the established media
	// session. Delivery is not acknowledged by the protocol.
	PublishDTMF(ctx context.Context, code int, digit string) error

	// Events returns the runtime's event stream. The channel is closed after
	// a Disconnected event has been delivered.
	Events() <-chan Event
}
