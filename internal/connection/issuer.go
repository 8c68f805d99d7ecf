// Package connection issues scoped, short-lived media-room credentials for
// outbound calls, and provides the matching HTTP client used by call-session
// code running against a remote dialbridge server.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dialbridge/dialbridge/internal/config"
	"github.com/dialbridge/dialbridge/internal/livekit"
)

// Details is the credential bundle for joining one freshly created room.
// It is immutable once issued; every call produces a new room and identity,
// so stale sessions can never collide. ParticipantToken is opaque and must
// not be logged.
type Details struct {
	ServerURL           string    `json:"serverUrl"`
	RoomName            string    `json:"roomName"`
	ParticipantIdentity string    `json:"participantIdentity"`
	ParticipantName     string    `json:"participantName"`
	ParticipantToken    string    `json:"participantToken"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

// participantName is the display name of the browser-side participant.
const participantName = "user"

// Dialer initiates a SIP dial-out into a room.
type Dialer interface {
	Dial(ctx context.Context, phoneNumber, roomName string) (*livekit.SIPParticipantInfo, error)
}

// Issuer builds room credentials and, when a phone number is requested,
// initiates dial-out into the same room before returning. A caller therefore
// never receives connection details for a call nobody can reach.
type Issuer struct {
	cfg    *config.Config
	minter *livekit.TokenMinter
	dialer Dialer
	logger *slog.Logger
}

// NewIssuer creates a credential issuer.
func NewIssuer(cfg *config.Config, minter *livekit.TokenMinter, dialer Dialer, logger *slog.Logger) *Issuer {
	return &Issuer{
		cfg:    cfg,
		minter: minter,
		dialer: dialer,
		logger: logger.With("subsystem", "connection-issuer"),
	}
}

// IssueConnection mints a credential for a fresh room/identity pair and, if
// requestedPhoneNumber is non-empty, dials it out into that room. Fails with
// config.MissingError when provider settings are absent and with
// dialout.Error when dial-out initiation fails; no partial credential is
// issued in either case.
func (i *Issuer) IssueConnection(ctx context.Context, requestedPhoneNumber string) (*Details, error) {
	if err := i.cfg.ValidateProvider(); err != nil {
		return nil, err
	}

	// UUID suffixes keep room names and identities collision-resistant; the
	// one-session-per-room invariant depends on them never repeating.
	roomName := fmt.Sprintf("sip_room_%s", uuid.NewString())
	identity := fmt.Sprintf("sip_user_%s", uuid.NewString())

	token, expiresAt, err := i.minter.RoomJoinToken(identity, participantName, roomName, i.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("minting participant token: %w", err)
	}

	if requestedPhoneNumber != "" {
		// Dial-out is initiated before the credential leaves this function,
		// so the client never races its own join against it.
		if _, err := i.dialer.Dial(ctx, requestedPhoneNumber, roomName); err != nil {
			return nil, err
		}
	}

	i.logger.Info("connection issued",
		"room", roomName,
		"identity", identity,
		"dialed", requestedPhoneNumber != "",
		"expires_at", expiresAt,
	)

	return &Details{
		ServerURL:           i.cfg.LiveKitURL,
		RoomName:            roomName,
		ParticipantIdentity: identity,
		ParticipantName:     participantName,
		ParticipantToken:    token,
		ExpiresAt:           expiresAt,
	}, nil
}
