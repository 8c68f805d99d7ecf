package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a dialbridge server's public endpoints. It is the
// programmatic counterpart of the browser's fetch calls: session code uses it
// to obtain connection details and to request room deletion on hangup.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the dialbridge server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// IssueConnection requests a fresh room credential, dialing out to
// phoneNumber when it is non-empty. Server-side failures arrive as a plain
// message with status 500 and are returned verbatim.
func (c *Client) IssueConnection(ctx context.Context, phoneNumber string) (*Details, error) {
	u := c.baseURL + "/connection-details"
	if phoneNumber != "" {
		u += "?phoneNumber=" + url.QueryEscape(phoneNumber)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("connection details: creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection details: sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("connection details: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("connection details: %s", msg)
	}

	var details Details
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("connection details: decoding response: %w", err)
	}
	return &details, nil
}

// deleteRoomRequest is the body of POST /delete-room.
type deleteRoomRequest struct {
	RoomName string `json:"roomName"`
}

// deleteRoomResponse is the success/error body of POST /delete-room.
type deleteRoomResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// DeleteRoom asks the server to delete roomName. It satisfies the teardown
// package's RoomDeleter, so a remote-backed orchestrator tears rooms down
// through the same path a browser client does.
func (c *Client) DeleteRoom(ctx context.Context, roomName string) error {
	body, err := json.Marshal(deleteRoomRequest{RoomName: roomName})
	if err != nil {
		return fmt.Errorf("delete room: marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/delete-room", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delete room: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete room: sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("delete room: reading response: %w", err)
	}

	var decoded deleteRoomResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return fmt.Errorf("delete room: decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != "" {
			return fmt.Errorf("delete room: %s", decoded.Error)
		}
		return fmt.Errorf("delete room: server returned status %d", resp.StatusCode)
	}
	return nil
}
