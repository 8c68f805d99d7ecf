// Package dialout initiates outbound SIP calls through the media provider's
// trunk, placing the far end into a media room as a participant.
package dialout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dialbridge/dialbridge/internal/config"
	"github.com/dialbridge/dialbridge/internal/livekit"
)

// Error is a dial-out failure. The user-facing message is provider-agnostic;
// the underlying provider error is logged, never surfaced, so trunk
// configuration details do not leak to end users.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return "failed to create SIP participant, check your SIP trunk configuration"
}

func (e *Error) Unwrap() error { return e.cause }

// SIPDialer creates a SIP-originated participant on the provider.
type SIPDialer interface {
	CreateSIPParticipant(ctx context.Context, req *livekit.CreateSIPParticipantRequest) (*livekit.SIPParticipantInfo, error)
}

// Coordinator dials phone numbers on a configured trunk. It performs no
// deduplication: dialing twice into the same room is the caller's bug, and
// the issuer invokes it at most once per room lifetime.
type Coordinator struct {
	sip    SIPDialer
	cfg    *config.Config
	logger *slog.Logger
}

// NewCoordinator creates a dial-out coordinator. The trunk may be left
// unconfigured; the check is deferred to Dial so a server without a trunk
// can still issue credential-only rooms.
func NewCoordinator(sip SIPDialer, cfg *config.Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		sip:    sip,
		cfg:    cfg,
		logger: logger.With("subsystem", "dialout"),
	}
}

// Dial asks the provider to originate a call to phoneNumber on the configured
// trunk and bridge it into roomName. With wait-for-answer enabled (the
// default) the call blocks until the far end answers or the call terminates,
// bounded by the configured dial timeout.
func (c *Coordinator) Dial(ctx context.Context, phoneNumber, roomName string) (*livekit.SIPParticipantInfo, error) {
	// Checked before any provider call; dialing without a trunk is meaningless.
	if err := c.cfg.RequireTrunk(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	c.logger.Info("initiating dial-out",
		"room", roomName,
		"number", phoneNumber,
		"wait_for_answer", c.cfg.DialWaitForAnswer,
	)

	info, err := c.sip.CreateSIPParticipant(ctx, &livekit.CreateSIPParticipantRequest{
		SIPTrunkID:          c.cfg.SIPTrunkID,
		SIPCallTo:           phoneNumber,
		RoomName:            roomName,
		ParticipantIdentity: ParticipantIdentity(phoneNumber),
		ParticipantName:     fmt.Sprintf("Phone: %s", phoneNumber),
		PlayDialtone:        true,
		WaitUntilAnswered:   c.cfg.DialWaitForAnswer,
	})
	if err != nil {
		c.logger.Error("dial-out failed",
			"room", roomName,
			"number", phoneNumber,
			"error", err,
		)
		return nil, &Error{cause: err}
	}

	c.logger.Info("dial-out initiated",
		"room", roomName,
		"participant_identity", info.ParticipantIdentity,
		"sip_call_id", info.SIPCallID,
	)

	return info, nil
}

// ParticipantIdentity returns the room identity assigned to the SIP leg for
// a dialed number.
func ParticipantIdentity(phoneNumber string) string {
	return "sip_" + phoneNumber
}
