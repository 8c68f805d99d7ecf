package teardown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dialbridge/dialbridge/internal/livekit"
)

type fakeDeleter struct {
	errs  []error // returned in order; nil past the end
	calls int
}

func (f *fakeDeleter) DeleteRoom(ctx context.Context, roomName string) error {
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunDeletesRoom(t *testing.T) {
	deleter := &fakeDeleter{}
	td := New(deleter, testLogger())

	if err := td.Run(context.Background(), "sip_room_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleter.calls != 1 {
		t.Errorf("DeleteRoom called %d times, want 1", deleter.calls)
	}
}

func TestRunTwiceBothSucceed(t *testing.T) {
	// Second deletion hits a room that no longer exists; idempotence demands
	// both calls report success.
	deleter := &fakeDeleter{errs: []error{nil, livekit.ErrRoomNotFound}}
	td := New(deleter, testLogger())

	if err := td.Run(context.Background(), "sip_room_1"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := td.Run(context.Background(), "sip_room_1"); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestRunMissingRoomIsSuccess(t *testing.T) {
	deleter := &fakeDeleter{errs: []error{livekit.ErrRoomNotFound}}
	td := New(deleter, testLogger())

	if err := td.Run(context.Background(), "sip_room_gone"); err != nil {
		t.Fatalf("missing room should be success, got %v", err)
	}
}

func TestRunSurfacesProviderFailure(t *testing.T) {
	cause := errors.New("provider unavailable")
	deleter := &fakeDeleter{errs: []error{cause}}
	td := New(deleter, testLogger())

	err := td.Run(context.Background(), "sip_room_1")
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want provider failure wrapped", err)
	}
}
