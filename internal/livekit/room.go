package livekit

import (
	"context"
)

// roomService is the Twirp service name for room administration.
const roomService = "livekit.RoomService"

// deleteRoomRequest is the wire request for RoomService/DeleteRoom.
type deleteRoomRequest struct {
	Room string `json:"room"`
}

// RoomClient administers rooms on the provider.
type RoomClient struct {
	client *Client
}

// NewRoomClient creates a room administration client.
func NewRoomClient(client *Client) *RoomClient {
	return &RoomClient{client: client}
}

// DeleteRoom deletes the named room server-side, dropping every participant
// in it. Returns ErrRoomNotFound if the room does not exist.
func (r *RoomClient) DeleteRoom(ctx context.Context, roomName string) error {
	return r.client.call(ctx, roomService, "DeleteRoom", deleteRoomRequest{Room: roomName}, nil)
}
