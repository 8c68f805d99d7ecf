package livekit

import (
	"context"
)

// sipService is the Twirp service name for SIP operations.
const sipService = "livekit.SIP"

// CreateSIPParticipantRequest asks the provider to originate a SIP call on a
// trunk and place the resulting participant into a room. Field names follow
// the provider's protobuf JSON mapping.
type CreateSIPParticipantRequest struct {
	SIPTrunkID          string `json:"sip_trunk_id"`
	SIPCallTo           string `json:"sip_call_to"`
	RoomName            string `json:"room_name"`
	ParticipantIdentity string `json:"participant_identity,omitempty"`
	ParticipantName     string `json:"participant_name,omitempty"`
	PlayDialtone        bool   `json:"play_dialtone,omitempty"`
	// WaitUntilAnswered blocks the request until the far end answers or the
	// call terminates, so a 200-level response means the call is actually
	// progressing, not merely accepted.
	WaitUntilAnswered bool `json:"wait_until_answered,omitempty"`
}

// SIPParticipantInfo describes the SIP-originated participant the provider
// created.
type SIPParticipantInfo struct {
	ParticipantID       string `json:"participant_id"`
	ParticipantIdentity string `json:"participant_identity"`
	RoomName            string `json:"room_name"`
	SIPCallID           string `json:"sip_call_id"`
}

// SIPClient creates SIP-originated participants via the provider.
type SIPClient struct {
	client *Client
}

// NewSIPClient creates a SIP dial-out client.
func NewSIPClient(client *Client) *SIPClient {
	return &SIPClient{client: client}
}

// CreateSIPParticipant originates an outbound call on the given trunk and
// bridges it into the target room as a participant.
func (s *SIPClient) CreateSIPParticipant(ctx context.Context, req *CreateSIPParticipantRequest) (*SIPParticipantInfo, error) {
	var info SIPParticipantInfo
	if err := s.client.call(ctx, sipService, "CreateSIPParticipant", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
