// Package livekit contains thin clients for a LiveKit-compatible media
// provider: access-token minting, room administration, and SIP dial-out.
// The provider's server API is Twirp JSON over HTTP; each call is a single
// POST authenticated with a short-lived server token.
package livekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// serverTokenTTL bounds the server-to-server credential minted per API call.
const serverTokenTTL = 10 * time.Minute

// ErrRoomNotFound is returned when the provider reports the target room does
// not exist (already deleted or never created).
var ErrRoomNotFound = errors.New("room not found")

// APIError is a non-OK response from the provider, carrying the Twirp error
// code and message.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider api error (status %d, code %s): %s", e.Status, e.Code, e.Msg)
}

// twirpError is the wire format of a Twirp failure response.
type twirpError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Client issues authenticated Twirp calls against the provider's server API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	minter     *TokenMinter
}

// NewClient creates a provider API client. serverURL may use a ws:// or
// wss:// scheme (as handed to media clients); it is normalized to the
// corresponding HTTP scheme for API calls.
func NewClient(serverURL string, minter *TokenMinter) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    normalizeServerURL(serverURL),
		minter:     minter,
	}
}

// normalizeServerURL maps ws(s):// signaling URLs onto the http(s)://
// endpoints the Twirp API listens on, and strips any trailing slash.
func normalizeServerURL(serverURL string) string {
	u := strings.TrimSuffix(strings.TrimSpace(serverURL), "/")
	switch {
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	default:
		return u
	}
}

// call POSTs a Twirp request and decodes the response into out (which may be
// nil when the response body is irrelevant).
func (c *Client) call(ctx context.Context, service, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s/%s: marshalling request: %w", service, method, err)
	}

	url := fmt.Sprintf("%s/twirp/%s/%s", c.baseURL, service, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s/%s: creating request: %w", service, method, err)
	}

	token, _, err := c.minter.ServerToken(serverTokenTTL)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", service, method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s/%s: sending request: %w", service, method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s/%s: reading response: %w", service, method, err)
	}

	if resp.StatusCode != http.StatusOK {
		var te twirpError
		if json.Unmarshal(respBody, &te) == nil && te.Code != "" {
			if te.Code == "not_found" {
				return ErrRoomNotFound
			}
			return &APIError{Status: resp.StatusCode, Code: te.Code, Msg: te.Msg}
		}
		return &APIError{Status: resp.StatusCode, Code: "unknown", Msg: http.StatusText(resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s/%s: decoding response: %w", service, method, err)
	}
	return nil
}
