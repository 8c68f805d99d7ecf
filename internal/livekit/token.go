package livekit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// VideoGrant mirrors the provider's room permission claim. Pointer booleans
// distinguish "unset" from "explicitly false" in the encoded claim, matching
// the provider's token format.
type VideoGrant struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	RoomCreate     bool   `json:"roomCreate,omitempty"`
	RoomAdmin      bool   `json:"roomAdmin,omitempty"`
	RoomList       bool   `json:"roomList,omitempty"`
	CanPublish     *bool  `json:"canPublish,omitempty"`
	CanPublishData *bool  `json:"canPublishData,omitempty"`
	CanSubscribe   *bool  `json:"canSubscribe,omitempty"`
}

// SIPGrant mirrors the provider's SIP permission claim.
type SIPGrant struct {
	Admin bool `json:"admin,omitempty"`
	Call  bool `json:"call,omitempty"`
}

// accessClaims is the full claim set of a provider access token.
type accessClaims struct {
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
	SIP   *SIPGrant   `json:"sip,omitempty"`
	jwt.RegisteredClaims
}

// TokenMinter signs provider access tokens with the API key pair.
// The key is the token issuer; the secret signs with HS256.
type TokenMinter struct {
	apiKey    string
	apiSecret string
}

// NewTokenMinter creates a minter for the given API key pair.
func NewTokenMinter(apiKey, apiSecret string) *TokenMinter {
	return &TokenMinter{apiKey: apiKey, apiSecret: apiSecret}
}

// RoomJoinToken mints a credential scoped to exactly one room: join it,
// publish audio and data, subscribe. No other room is reachable with the
// resulting token. Returns the signed token and its expiry.
func (m *TokenMinter) RoomJoinToken(identity, name, room string, ttl time.Duration) (string, time.Time, error) {
	yes := true
	grant := &VideoGrant{
		Room:           room,
		RoomJoin:       true,
		CanPublish:     &yes,
		CanPublishData: &yes,
		CanSubscribe:   &yes,
	}
	return m.mint(identity, name, grant, nil, ttl)
}

// ServerToken mints a short-lived server-to-server credential for room
// administration and SIP participant creation.
func (m *TokenMinter) ServerToken(ttl time.Duration) (string, time.Time, error) {
	grant := &VideoGrant{
		RoomCreate: true,
		RoomAdmin:  true,
		RoomList:   true,
	}
	return m.mint(m.apiKey, "", grant, &SIPGrant{Admin: true, Call: true}, ttl)
}

func (m *TokenMinter) mint(identity, name string, video *VideoGrant, sip *SIPGrant, ttl time.Duration) (string, time.Time, error) {
	if m.apiKey == "" || m.apiSecret == "" {
		return "", time.Time{}, fmt.Errorf("minting token: api key pair not set")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := accessClaims{
		Name:  name,
		Video: video,
		SIP:   sip,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.apiSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return signed, expiresAt, nil
}
