package callstate

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dialbridge/dialbridge/internal/room"
)

const (
	localID = "sip_user_abc"
	sipID   = "sip_+15551234567"
)

func newTestObserver(onChange func(View)) *Observer {
	return NewObserver(localID, onChange, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func status(value string) room.AttributesChanged {
	return room.AttributesChanged{
		Identity:   sipID,
		Attributes: map[string]string{AttributeCallStatus: value},
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"idle", StatusIdle},
		{"dialing", StatusDialing},
		{"ringing", StatusRinging},
		{"active", StatusActive},
		{"hangup", StatusHangup},
		{"", StatusUnknown},
		{"automation", StatusUnknown},
		{"ACTIVE", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.raw); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestInitialViewIsDialingPlaceholder(t *testing.T) {
	o := newTestObserver(nil)
	v := o.Snapshot()
	if v.Phase != PhaseDialing {
		t.Errorf("phase = %v, want dialing placeholder", v.Phase)
	}
	if v.EverPresent {
		t.Error("EverPresent should start false")
	}
}

func TestFullForwardProgression(t *testing.T) {
	o := newTestObserver(nil)

	o.Apply(room.ParticipantJoined{Identity: sipID, Name: "Phone: +15551234567"})
	o.Apply(status("dialing"))
	if v := o.Snapshot(); v.Phase != PhaseDialing {
		t.Errorf("after dialing: phase = %v", v.Phase)
	}

	o.Apply(status("ringing"))
	if v := o.Snapshot(); v.Phase != PhaseRinging {
		t.Errorf("after ringing: phase = %v", v.Phase)
	}

	// Active without a subscribed track keeps the placeholder; audio binding
	// requires the track.
	o.Apply(status("active"))
	if v := o.Snapshot(); v.Phase != PhaseDialing {
		t.Errorf("active without track: phase = %v, want dialing placeholder", v.Phase)
	}

	o.Apply(room.TrackSubscribed{Identity: sipID, Source: room.SourceMicrophone, TrackID: "TR_mic"})
	v := o.Snapshot()
	if v.Phase != PhaseActive {
		t.Fatalf("after track: phase = %v, want active", v.Phase)
	}
	if v.TrackID != "TR_mic" {
		t.Errorf("TrackID = %q, want TR_mic", v.TrackID)
	}
	if v.ParticipantName != "Phone: +15551234567" {
		t.Errorf("ParticipantName = %q", v.ParticipantName)
	}

	o.Apply(status("hangup"))
	v = o.Snapshot()
	if v.Phase != PhaseEnded {
		t.Fatalf("after hangup: phase = %v, want ended", v.Phase)
	}
	if !v.EverPresent {
		t.Error("EverPresent = false after the participant joined")
	}
}

func TestHangupIsTerminal(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(room.ParticipantJoined{Identity: sipID})
	o.Apply(status("ringing"))
	o.Apply(status("hangup"))

	// Nothing moves the machine after hangup.
	o.Apply(status("active"))
	o.Apply(room.TrackSubscribed{Identity: sipID, Source: room.SourceMicrophone, TrackID: "TR_mic"})
	o.Apply(room.ParticipantLeft{Identity: sipID})

	if v := o.Snapshot(); v.Phase != PhaseEnded {
		t.Errorf("phase = %v, want ended to stick", v.Phase)
	}
}

func TestLeftWithoutHangupAfterProgress(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(room.ParticipantJoined{Identity: sipID})
	o.Apply(status("dialing"))
	o.Apply(status("ringing"))
	o.Apply(room.ParticipantLeft{Identity: sipID})

	v := o.Snapshot()
	if v.Phase != PhaseParticipantLost {
		t.Errorf("phase = %v, want participant-lost", v.Phase)
	}
}

func TestLeftWhileDialingIsParticipantLost(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(room.ParticipantJoined{Identity: sipID})
	o.Apply(status("dialing"))
	o.Apply(room.ParticipantLeft{Identity: sipID})

	// The participant was seen in the room, so dropping without a hangup is
	// an unexpected disconnect, not the "never joined" placeholder.
	if v := o.Snapshot(); v.Phase != PhaseParticipantLost {
		t.Errorf("phase = %v, want participant-lost", v.Phase)
	}
}

func TestNeverJoinedStaysDialing(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(status("dialing"))

	if v := o.Snapshot(); v.Phase != PhaseDialing {
		t.Errorf("phase = %v, want dialing placeholder", v.Phase)
	}
	if v := o.Snapshot(); v.EverPresent {
		t.Error("EverPresent must stay false while the participant has never joined")
	}
}

func TestOutOfOrderStatusIgnored(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(room.ParticipantJoined{Identity: sipID})
	o.Apply(status("active"))
	o.Apply(room.TrackSubscribed{Identity: sipID, Source: room.SourceMicrophone, TrackID: "TR_mic"})

	// A network-reordered late "ringing" must not regress the call.
	o.Apply(status("ringing"))

	v := o.Snapshot()
	if v.Status != StatusActive {
		t.Errorf("status = %v, want active retained", v.Status)
	}
	if v.Phase != PhaseActive {
		t.Errorf("phase = %v, want active retained", v.Phase)
	}
}

func TestUnknownStatusDoesNotCrashOrRegress(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(room.ParticipantJoined{Identity: sipID})
	o.Apply(status("??garbage??"))
	if v := o.Snapshot(); v.Phase != PhaseDialing {
		t.Errorf("garbage status: phase = %v, want placeholder", v.Phase)
	}

	o.Apply(status("ringing"))
	o.Apply(status("??garbage??"))
	if v := o.Snapshot(); v.Phase != PhaseRinging {
		t.Errorf("garbage after ringing: phase = %v, want ringing retained", v.Phase)
	}
}

func TestLocalParticipantIgnored(t *testing.T) {
	o := newTestObserver(nil)

	// The local identity also carries the sip_ prefix but is not the SIP leg.
	o.Apply(room.ParticipantJoined{Identity: localID, Name: "user"})
	o.Apply(room.AttributesChanged{Identity: localID, Attributes: map[string]string{AttributeCallStatus: "active"}})
	o.Apply(room.TrackSubscribed{Identity: localID, Source: room.SourceMicrophone, TrackID: "TR_local"})

	v := o.Snapshot()
	if v.Phase != PhaseDialing || v.Status != StatusUnknown {
		t.Errorf("local participant events leaked into call state: %+v", v)
	}
}

func TestNonSIPParticipantIgnored(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(room.ParticipantJoined{Identity: "agent_1", Name: "Agent"})
	o.Apply(room.AttributesChanged{Identity: "agent_1", Attributes: map[string]string{AttributeCallStatus: "active"}})

	if v := o.Snapshot(); v.Status != StatusUnknown {
		t.Errorf("non-sip participant changed status to %v", v.Status)
	}
}

func TestTrackUnsubscribedDropsActiveBinding(t *testing.T) {
	o := newTestObserver(nil)
	o.Apply(room.ParticipantJoined{Identity: sipID})
	o.Apply(status("active"))
	o.Apply(room.TrackSubscribed{Identity: sipID, Source: room.SourceMicrophone, TrackID: "TR_mic"})
	o.Apply(room.TrackUnsubscribed{Identity: sipID, Source: room.SourceMicrophone, TrackID: "TR_mic"})

	v := o.Snapshot()
	if v.Phase != PhaseDialing || v.TrackID != "" {
		t.Errorf("after unsubscribe: %+v, want placeholder with no track", v)
	}
}

func TestOnChangeFiresOnlyOnViewChanges(t *testing.T) {
	var views []View
	o := newTestObserver(func(v View) { views = append(views, v) })

	o.Apply(room.ParticipantJoined{Identity: sipID, Name: "Phone"})
	o.Apply(status("dialing")) // phase stays dialing, but Status changes
	o.Apply(status("dialing")) // no change at all
	o.Apply(status("ringing"))

	if len(views) != 3 {
		t.Fatalf("onChange fired %d times, want 3", len(views))
	}
	if views[len(views)-1].Phase != PhaseRinging {
		t.Errorf("last view phase = %v, want ringing", views[len(views)-1].Phase)
	}
}
