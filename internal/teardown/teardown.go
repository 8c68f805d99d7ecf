// Package teardown deletes call rooms server-side when a session ends,
// making sure no orphaned billable room or trunk leg outlives the call.
package teardown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dialbridge/dialbridge/internal/livekit"
)

// RoomDeleter deletes a room on the media provider.
type RoomDeleter interface {
	DeleteRoom(ctx context.Context, roomName string) error
}

// Teardown removes call rooms. Deletion is idempotent: a room that is
// already gone — for example deleted by the provider in a race with the
// client — counts as success.
type Teardown struct {
	rooms  RoomDeleter
	logger *slog.Logger
}

// New creates a teardown helper.
func New(rooms RoomDeleter, logger *slog.Logger) *Teardown {
	return &Teardown{
		rooms:  rooms,
		logger: logger.With("subsystem", "teardown"),
	}
}

// Run deletes roomName. A missing room is success. A provider failure is
// logged and returned; callers surface it as a non-blocking alert and still
// return the UI to idle, since the user-visible call has already ended.
func (t *Teardown) Run(ctx context.Context, roomName string) error {
	err := t.rooms.DeleteRoom(ctx, roomName)
	switch {
	case err == nil:
		t.logger.Info("room deleted", "room", roomName)
		return nil
	case errors.Is(err, livekit.ErrRoomNotFound):
		t.logger.Info("room already deleted", "room", roomName)
		return nil
	default:
		t.logger.Error("room deletion failed", "room", roomName, "error", err)
		return fmt.Errorf("deleting room %s: %w", roomName, err)
	}
}
