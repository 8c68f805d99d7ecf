package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/dialbridge/dialbridge/internal/callstate"
	"github.com/dialbridge/dialbridge/internal/connection"
	"github.com/dialbridge/dialbridge/internal/metrics"
	"github.com/dialbridge/dialbridge/internal/room"
)

// teardownTimeout bounds the room deletion triggered by a session ending.
const teardownTimeout = 10 * time.Second

// ConnectionProvider issues connection details for a new call. Implemented
// in-process by connection.Issuer and remotely by connection.Client.
type ConnectionProvider interface {
	IssueConnection(ctx context.Context, phoneNumber string) (*connection.Details, error)
}

// RoomCleaner deletes the call room server-side, treating an already-deleted
// room as success.
type RoomCleaner interface {
	Run(ctx context.Context, roomName string) error
}

// SessionFactory produces a fresh room session for each call attempt.
type SessionFactory func() room.Session

// Options configures an Orchestrator.
type Options struct {
	Connections ConnectionProvider
	Cleaner     RoomCleaner
	NewSession  SessionFactory
	Alerts      Alerter // defaults to LogAlerter
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	// AnswerTimeout abandons a dialed call whose SIP leg shows no signaling
	// progress for this long. Zero disables the watchdog.
	AnswerTimeout time.Duration

	// OnCallViewChange, if set, receives every change of the observed call
	// state (for UI binding).
	OnCallViewChange func(callstate.View)
}

// active bundles everything owned by one in-flight call.
type active struct {
	info          CallSession
	localIdentity string
	sess          room.Session
	hub           *room.Hub
	observer      *callstate.Observer
	teardownOnce  sync.Once
}

// Orchestrator owns at most one live CallSession and the room connection
// under it. All mutation goes through its public operations; other
// components only read derived state or subscribe to the event hub.
type Orchestrator struct {
	conns         ConnectionProvider
	cleaner       RoomCleaner
	newSession    SessionFactory
	alerts        Alerter
	metrics       *metrics.Metrics
	logger        *slog.Logger
	answerTimeout time.Duration
	onViewChange  func(callstate.View)

	mu    sync.Mutex
	state *fsm.FSM
	cur   *active
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger.With("subsystem", "session")
	alerts := opts.Alerts
	if alerts == nil {
		alerts = &LogAlerter{Logger: logger}
	}

	return &Orchestrator{
		conns:         opts.Connections,
		cleaner:       opts.Cleaner,
		newSession:    opts.NewSession,
		alerts:        alerts,
		metrics:       opts.Metrics,
		logger:        logger,
		answerTimeout: opts.AnswerTimeout,
		onViewChange:  opts.OnCallViewChange,
		state: fsm.NewFSM(
			"idle",
			fsm.Events{
				{Name: "start", Src: []string{"idle"}, Dst: "starting"},
				{Name: "connected", Src: []string{"starting"}, Dst: "active"},
				{Name: "abort", Src: []string{"starting"}, Dst: "idle"},
				{Name: "hangup", Src: []string{"starting", "active"}, Dst: "ending"},
				{Name: "reset", Src: []string{"ending"}, Dst: "idle"},
			},
			fsm.Callbacks{},
		),
	}
}

// Start begins an outbound call. phoneNumber may be empty for a bare room
// with no SIP leg. While a session is live, Start is a no-op: repeated UI
// triggers must not create a second CallSession or a second dial-out.
func (o *Orchestrator) Start(ctx context.Context, phoneNumber string) error {
	// Reserve the session under the lock, then release it: the dial-out can
	// block on wait-until-answered, and Stop, SendDTMF, and the snapshot
	// reads must not stall behind it. The "starting" state keeps any second
	// Start out until this one commits or aborts.
	o.mu.Lock()
	if o.state.Current() != "idle" {
		o.mu.Unlock()
		o.logger.Info("start ignored, session already in flight")
		return nil
	}
	if err := o.state.Event(ctx, "start"); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("starting session: %w", err)
	}
	o.mu.Unlock()

	details, err := o.conns.IssueConnection(ctx, phoneNumber)
	if err != nil {
		o.abortStart(ctx, fmt.Errorf("requesting connection details: %w", err))
		return err
	}

	cur := &active{
		info: CallSession{
			RoomName:     details.RoomName,
			DialedNumber: phoneNumber,
		},
		localIdentity: details.ParticipantIdentity,
		sess:          o.newSession(),
		hub:           room.NewHub(),
	}
	cur.observer = callstate.NewObserver(details.ParticipantIdentity, o.onViewChange, o.logger)

	// Subscribe both listeners before any event can flow, then start the
	// fan-out from the session's stream.
	loopCh, _ := cur.hub.Subscribe()
	obsCh, _ := cur.hub.Subscribe()
	go cur.hub.Run(cur.sess.Events())
	go cur.observer.Run(obsCh)

	// Microphone enable and room connect race deliberately; the pre-connect
	// buffer keeps early speech while the join handshake completes. Both
	// must succeed for the session to count as started.
	micErr := make(chan error, 1)
	connErr := make(chan error, 1)
	go func() {
		micErr <- cur.sess.SetMicrophoneEnabled(ctx, true, room.MicrophoneOptions{PreConnectBuffer: true})
	}()
	go func() {
		connErr <- cur.sess.Connect(ctx, details.ServerURL, details.ParticipantToken)
	}()

	if err := firstError(<-micErr, <-connErr); err != nil {
		// Disconnect covers the partially-connected case; the room may or
		// may not have been joined when the other half failed.
		cur.sess.Disconnect()
		o.abortStart(ctx, err)
		return err
	}

	cur.info.LocalMicEnabled = true

	o.mu.Lock()
	o.cur = cur
	if err := o.state.Event(ctx, "connected"); err != nil {
		o.mu.Unlock()
		return fmt.Errorf("marking session active: %w", err)
	}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.CallsStarted.Inc()
		o.metrics.ActiveSessions.Inc()
	}

	o.logger.Info("call session started",
		"room", cur.info.RoomName,
		"dialed", phoneNumber != "",
	)

	go o.eventLoop(cur, loopCh)
	return nil
}

// abortStart rolls a failed start back to idle and surfaces the failure.
func (o *Orchestrator) abortStart(ctx context.Context, err error) {
	o.alerts.Alert("There was an error connecting to the call", err.Error())
	if o.metrics != nil {
		o.metrics.CallStartFailures.Inc()
	}
	o.mu.Lock()
	if ferr := o.state.Event(ctx, "abort"); ferr != nil {
		o.logger.Error("failed to abort starting session", "error", ferr)
	}
	o.mu.Unlock()
	o.logger.Error("call session start failed", "error", err)
}

// Stop is the explicit hangup: it disconnects the room, tears it down
// exactly once, and resets to a clean idle state. Stopping an idle
// orchestrator is a no-op.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.mu.Lock()
	cur := o.cur
	o.mu.Unlock()
	if cur == nil {
		return
	}

	cur.sess.Disconnect()
	o.finish(cur, "hangup")
}

// eventLoop is the orchestrator's subscription to the room event stream for
// one call. It ends when the room disconnects or the stream closes.
func (o *Orchestrator) eventLoop(cur *active, events <-chan room.Event) {
	// Watchdog: a dialed call whose SIP leg never reports progress is
	// abandoned rather than left ringing forever. It guards call setup only
	// and is disarmed once the call is answered; an established call goes
	// quiet on the signaling plane while the parties talk.
	var watchdogC <-chan time.Time
	var watchdog *time.Timer
	if o.answerTimeout > 0 && cur.info.DialedNumber != "" {
		watchdog = time.NewTimer(o.answerTimeout)
		watchdogC = watchdog.C
		defer watchdog.Stop()
	}
	disarm := func() {
		if watchdog != nil {
			watchdog.Stop()
			watchdog = nil
			watchdogC = nil
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				o.finish(cur, "event stream closed")
				return
			}

			switch e := ev.(type) {
			case room.Disconnected:
				// Disconnect does not imply the room was already deleted
				// server-side; teardown still runs exactly once.
				o.finish(cur, e.Reason)
				return

			case room.MediaDevicesError:
				// Advisory only; the session continues.
				o.alerts.Alert("Encountered an error with your media devices", e.Err.Error())
				o.logger.Warn("media devices error", "error", e.Err)

			case room.ParticipantJoined:
				if o.isSIPLeg(cur, e.Identity) {
					o.mu.Lock()
					cur.info.SIPParticipantIdentity = e.Identity
					o.mu.Unlock()
				}

			case room.AttributesChanged:
				if o.isSIPLeg(cur, e.Identity) &&
					callstate.ParseStatus(e.Attributes[callstate.AttributeCallStatus]) == callstate.StatusActive {
					disarm()
				}
			}

			if watchdog != nil && o.isSIPProgress(cur, ev) {
				if !watchdog.Stop() {
					select {
					case <-watchdog.C:
					default:
					}
				}
				watchdog.Reset(o.answerTimeout)
			}

		case <-watchdogC:
			o.logger.Warn("no signaling progress from SIP leg, abandoning call",
				"room", cur.info.RoomName,
				"timeout", o.answerTimeout,
			)
			o.alerts.Alert("Call timed out", "No answer from the dialed number")
			// Disconnect is the universal cancellation signal; the resulting
			// Disconnected event completes the shutdown.
			cur.sess.Disconnect()
			watchdog = nil
			watchdogC = nil
		}
	}
}

// finish ends the given call: it clears the live session, tears the room
// down exactly once, and resets transient state so the next Start begins
// from a clean slate. Safe to call from both Stop and the event loop.
func (o *Orchestrator) finish(cur *active, reason string) {
	o.mu.Lock()
	if o.cur != cur {
		// Already finished by the other path; teardownOnce below still
		// guards the delete itself.
		o.mu.Unlock()
		cur.teardownOnce.Do(func() { o.teardown(cur) })
		return
	}
	o.cur = nil

	ctx := context.Background()
	if err := o.state.Event(ctx, "hangup"); err != nil {
		o.logger.Debug("hangup transition skipped", "error", err)
	}
	if err := o.state.Event(ctx, "reset"); err != nil {
		o.logger.Debug("reset transition skipped", "error", err)
	}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.ActiveSessions.Dec()
	}

	o.logger.Info("call session ended",
		"room", cur.info.RoomName,
		"reason", reason,
	)

	cur.teardownOnce.Do(func() { o.teardown(cur) })
}

// teardown deletes the call room. Failures are logged and surfaced as a
// non-blocking alert; they never keep the orchestrator from returning to
// idle, since the user-visible call has already ended.
func (o *Orchestrator) teardown(cur *active) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := o.cleaner.Run(ctx, cur.info.RoomName); err != nil {
		o.alerts.Alert("Error deleting room", err.Error())
		if o.metrics != nil {
			o.metrics.RoomDeletions.WithLabelValues(metrics.ResultError).Inc()
		}
		return
	}
	if o.metrics != nil {
		o.metrics.RoomDeletions.WithLabelValues(metrics.ResultOK).Inc()
	}
}

// SendDTMF publishes an in-band DTMF signal for the given keypad code and
// display character. Protocol-level failures are logged, not returned: the
// signaling carries no acknowledgment either way.
func (o *Orchestrator) SendDTMF(ctx context.Context, code int, digit string) error {
	if err := validateDTMF(code, digit); err != nil {
		return err
	}

	o.mu.Lock()
	cur := o.cur
	o.mu.Unlock()
	if cur == nil {
		return fmt.Errorf("no active call session")
	}

	if err := cur.sess.PublishDTMF(ctx, code, digit); err != nil {
		o.logger.Error("failed to send DTMF tone",
			"digit", digit,
			"code", code,
			"error", err,
		)
	}
	return nil
}

// Snapshot returns the live CallSession, if any.
func (o *Orchestrator) Snapshot() (CallSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return CallSession{}, false
	}
	info := o.cur.info
	info.Status = o.state.Current()
	return info, true
}

// CallView returns the observer's current view of the call, for UI and
// audio-track binding. The zero View is returned while idle.
func (o *Orchestrator) CallView() callstate.View {
	o.mu.Lock()
	cur := o.cur
	o.mu.Unlock()
	if cur == nil {
		return callstate.View{}
	}
	return cur.observer.Snapshot()
}

// isSIPLeg reports whether identity is the dialed SIP participant.
func (o *Orchestrator) isSIPLeg(cur *active, identity string) bool {
	return identity != cur.localIdentity && strings.HasPrefix(identity, "sip_")
}

// isSIPProgress reports whether ev is a signaling-progress signal from the
// SIP leg, for the answer watchdog.
func (o *Orchestrator) isSIPProgress(cur *active, ev room.Event) bool {
	switch e := ev.(type) {
	case room.ParticipantJoined:
		return o.isSIPLeg(cur, e.Identity)
	case room.AttributesChanged:
		return o.isSIPLeg(cur, e.Identity)
	case room.TrackSubscribed:
		return o.isSIPLeg(cur, e.Identity)
	default:
		return false
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
