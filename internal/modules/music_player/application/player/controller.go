// Package player implements the per-guild playback state machine and the
// registry that owns one controller per guild.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

const (
	// DefaultInboxSize is the default buffer size of a controller inbox.
	DefaultInboxSize = 64

	defaultLeaveTimeout = 5 * time.Second
)

// Dependencies are the ports a Controller drives.
type Dependencies struct {
	Resolver  ports.TrackResolver
	Sink      ports.AudioSink
	Voice     ports.VoiceConnection
	Publisher ports.EventPublisher
}

// Options tune controller behavior. Zero values disable the queue bound,
// the idle timeout and the resolve timeout.
type Options struct {
	MaxQueueLength int
	IdleTimeout    time.Duration
	ResolveTimeout time.Duration
	LeaveTimeout   time.Duration
	InboxSize      int
}

// EnqueueResult describes where an accepted entry landed.
type EnqueueResult struct {
	Entry domain.QueueEntry
	// Position is 0 when the entry went straight to the now-playing slot,
	// otherwise its 1-based position in the pending queue.
	Position           int
	StartedImmediately bool
}

// SkipResult describes a successful skip.
type SkipResult struct {
	Skipped domain.NowPlaying
	Next    *domain.QueueEntry // nil when the queue ran out
}

// Snapshot is a consistent read-only view of a controller.
type Snapshot struct {
	State                 domain.PlaybackState
	VoiceChannelID        snowflake.ID
	NotificationChannelID snowflake.ID
	NowPlaying            *domain.NowPlaying
	Pending               []domain.QueueEntry
}

// Controller serializes every transition of one guild's playback.
//
// A single goroutine owns the queue and the state. Commands and the results
// of resolver and sink calls arrive as messages on the inbox and are applied
// one at a time, in arrival order. Resolver and sink calls run on their own
// goroutines so the inbox keeps accepting commands while they are in flight.
// Each resolve/play cycle carries a token; results tagged with an older token
// are dropped.
type Controller struct {
	guildID   snowflake.ID
	deps      Dependencies
	opts      Options
	inbox     chan message
	done      chan struct{}
	state     atomic.Int32
	onStopped func(*Controller)
	logger    *slog.Logger

	// ctx is cancelled on teardown and parents every in-flight operation.
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the run loop.
	queue                 *domain.GuildQueue
	voiceChannelID        snowflake.ID
	notificationChannelID snowflake.ID
	token                 uint64
	currentCtx            context.Context
	cancelCurrent         context.CancelFunc
	idleTimer             *time.Timer
}

func newController(
	guildID snowflake.ID,
	deps Dependencies,
	opts Options,
	onStopped func(*Controller),
) *Controller {
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}
	if opts.LeaveTimeout <= 0 {
		opts.LeaveTimeout = defaultLeaveTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		guildID:   guildID,
		deps:      deps,
		opts:      opts,
		inbox:     make(chan message, opts.InboxSize),
		done:      make(chan struct{}),
		onStopped: onStopped,
		logger:    slog.Default().With("guild", guildID),
		ctx:       ctx,
		cancel:    cancel,
		queue:     domain.NewGuildQueue(opts.MaxQueueLength),
	}
	c.state.Store(int32(domain.StateIdle))

	go c.run()

	return c
}

// GuildID returns the guild this controller plays for.
func (c *Controller) GuildID() snowflake.ID {
	return c.guildID
}

// State returns the current state. It may be stale by the time the caller looks at it.
func (c *Controller) State() domain.PlaybackState {
	return domain.PlaybackState(c.state.Load())
}

// Done is closed once the controller has stopped and its run loop exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Attach records the voice channel the bot is connected to and, when
// non-zero, the text channel used for notifications.
func (c *Controller) Attach(ctx context.Context, voiceChannelID, notificationChannelID snowflake.ID) error {
	reply := make(chan struct{}, 1)
	_, err := request(ctx, c, attachMsg{
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		reply:                 reply,
	}, reply)
	return err
}

// Enqueue appends entry to the queue and starts playback when idle.
// It never waits for resolution.
func (c *Controller) Enqueue(
	ctx context.Context,
	entry domain.QueueEntry,
	notificationChannelID snowflake.ID,
) (EnqueueResult, error) {
	reply := make(chan enqueueReply, 1)
	r, err := request(ctx, c, enqueueMsg{
		entry:                 entry,
		notificationChannelID: notificationChannelID,
		reply:                 reply,
	}, reply)
	if err != nil {
		return EnqueueResult{}, err
	}
	return r.result, r.err
}

// Skip discards the resolving or playing track and advances.
// Returns domain.ErrNothingToSkip when idle.
func (c *Controller) Skip(ctx context.Context, notificationChannelID snowflake.ID) (SkipResult, error) {
	reply := make(chan skipReply, 1)
	r, err := request(ctx, c, skipMsg{
		notificationChannelID: notificationChannelID,
		reply:                 reply,
	}, reply)
	if err != nil {
		return SkipResult{}, err
	}
	return r.result, r.err
}

// Stop clears the queue, leaves the voice channel and tears the controller down.
// The returned error only reports a failed voice disconnect; the controller
// is stopped either way.
func (c *Controller) Stop(ctx context.Context) error {
	return c.stop(ctx, domain.StopReasonCommand, true)
}

// Disconnected tears the controller down after the bot lost its voice
// connection. No leave call is made.
func (c *Controller) Disconnected(ctx context.Context) error {
	return c.stop(ctx, domain.StopReasonDisconnected, false)
}

// ReleaseIfUnused stops the controller only while it has no voice channel
// and nothing resolving, playing or pending. It reports whether it stopped.
func (c *Controller) ReleaseIfUnused(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	return request(ctx, c, releaseMsg{reply: reply}, reply)
}

func (c *Controller) stop(ctx context.Context, reason domain.StopReason, leave bool) error {
	reply := make(chan error, 1)
	leaveErr, err := request(ctx, c, stopMsg{reason: reason, leave: leave, reply: reply}, reply)
	if err != nil {
		return err
	}
	return leaveErr
}

// Snapshot returns the state and queue as seen between two transitions.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	return request(ctx, c, snapshotMsg{reply: reply}, reply)
}

// request delivers msg to the run loop and waits for its reply.
func request[T any](ctx context.Context, c *Controller, msg message, reply <-chan T) (T, error) {
	var zero T

	select {
	case c.inbox <- msg:
	case <-c.done:
		return zero, domain.ErrControllerStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-reply:
		return r, nil
	case <-c.done:
		// The stop reply is sent right before the loop exits.
		select {
		case r := <-reply:
			return r, nil
		default:
			return zero, domain.ErrControllerStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// post delivers an internal result to the run loop unless the controller is gone.
func (c *Controller) post(msg message) {
	select {
	case c.inbox <- msg:
	case <-c.ctx.Done():
	}
}

func (c *Controller) run() {
	defer close(c.done)

	c.armIdleTimer()

	for {
		var idle <-chan time.Time
		if c.idleTimer != nil {
			idle = c.idleTimer.C
		}

		select {
		case msg := <-c.inbox:
			c.handle(msg)
		case <-idle:
			c.idleTimer = nil
			c.handleIdleTimeout()
		}

		if c.State() == domain.StateStopped {
			return
		}
	}
}

func (c *Controller) handle(msg message) {
	switch m := msg.(type) {
	case attachMsg:
		c.voiceChannelID = m.voiceChannelID
		c.setNotificationChannel(m.notificationChannelID)
		m.reply <- struct{}{}
	case enqueueMsg:
		m.reply <- c.handleEnqueue(m)
	case skipMsg:
		m.reply <- c.handleSkip(m)
	case stopMsg:
		m.reply <- c.teardown(m.reason, m.leave)
	case snapshotMsg:
		m.reply <- c.snapshot()
	case releaseMsg:
		m.reply <- c.handleRelease()
	case resolvedMsg:
		c.handleResolved(m)
	case playbackDoneMsg:
		c.handlePlaybackDone(m)
	default:
		c.logger.Warn("dropping unknown controller message", "kind", msg.kind())
	}
}

func (c *Controller) handleEnqueue(m enqueueMsg) enqueueReply {
	c.setNotificationChannel(m.notificationChannelID)

	if c.voiceChannelID == 0 {
		return enqueueReply{err: domain.ErrNotConnected}
	}

	if err := c.queue.Enqueue(m.entry); err != nil {
		c.logger.Debug("rejected queue entry", "query", m.entry.Query, "error", err)
		return enqueueReply{err: err}
	}

	// Idle implies an empty pending queue, so advancing picks up this entry.
	if c.State() == domain.StateIdle {
		c.advance()
		return enqueueReply{result: EnqueueResult{
			Entry:              m.entry,
			Position:           0,
			StartedImmediately: true,
		}}
	}

	return enqueueReply{result: EnqueueResult{
		Entry:    m.entry,
		Position: c.queue.Len(),
	}}
}

func (c *Controller) handleSkip(m skipMsg) skipReply {
	c.setNotificationChannel(m.notificationChannelID)

	np := c.queue.NowPlaying()
	if !c.State().IsActive() || np == nil {
		return skipReply{err: domain.ErrNothingToSkip}
	}
	skipped := *np

	c.logger.Debug("skipping track", "query", skipped.Entry.Query, "state", c.State().String())

	c.publish(domain.TrackEndedEvent{
		GuildID:               c.guildID,
		Entry:                 skipped.Entry,
		Track:                 skipped.Track,
		Reason:                domain.TrackEndSkipped,
		NotificationChannelID: c.notificationChannelID,
	})

	c.advance()

	result := SkipResult{Skipped: skipped}
	if next := c.queue.NowPlaying(); next != nil {
		entry := next.Entry
		result.Next = &entry
	}
	return skipReply{result: result}
}

func (c *Controller) handleResolved(m resolvedMsg) {
	np := c.queue.NowPlaying()
	if m.token != c.token || c.State() != domain.StateResolving || np == nil {
		c.logger.Debug("ignoring stale resolve result", "token", m.token, "current", c.token)
		return
	}

	err := m.err
	if err == nil && (m.track == nil || !m.track.IsValid()) {
		err = fmt.Errorf("%w: resolver returned an unplayable track", domain.ErrTrackNotFound)
	}
	if err != nil {
		c.logger.Warn("failed to resolve track", "query", np.Entry.Query, "error", err)
		c.publish(domain.TrackEndedEvent{
			GuildID:               c.guildID,
			Entry:                 np.Entry,
			Reason:                domain.TrackEndResolveFailed,
			Err:                   err,
			NotificationChannelID: c.notificationChannelID,
		})
		c.advance()
		return
	}

	track := m.track.WithRequester(np.Entry.RequesterID, np.Entry.RequesterName)
	c.queue.SetNowPlayingTrack(track)
	c.setState(domain.StatePlaying)

	c.logger.Debug("starting track", "title", track.Title, "token", c.token)

	c.publish(domain.TrackStartedEvent{
		GuildID:               c.guildID,
		Entry:                 np.Entry,
		Track:                 track,
		NotificationChannelID: c.notificationChannelID,
	})

	go c.play(c.currentCtx, c.token, track)
}

func (c *Controller) handlePlaybackDone(m playbackDoneMsg) {
	np := c.queue.NowPlaying()
	if m.token != c.token || c.State() != domain.StatePlaying || np == nil {
		c.logger.Debug("ignoring stale playback outcome",
			"token", m.token,
			"current", c.token,
			"outcome", m.outcome.Kind.String(),
		)
		return
	}

	event := domain.TrackEndedEvent{
		GuildID:               c.guildID,
		Entry:                 np.Entry,
		Track:                 np.Track,
		NotificationChannelID: c.notificationChannelID,
	}

	switch m.outcome.Kind {
	case domain.OutcomeFailed:
		event.Reason = domain.TrackEndPlaybackFailed
		event.Err = m.outcome.Err
		if event.Err == nil || !errors.Is(event.Err, domain.ErrPlaybackFailed) {
			event.Err = fmt.Errorf("%w: %v", domain.ErrPlaybackFailed, m.outcome.Err)
		}
		c.logger.Warn("playback failed", "title", np.Title(), "error", event.Err)
	case domain.OutcomeCancelled:
		event.Reason = domain.TrackEndCancelled
	default:
		event.Reason = domain.TrackEndFinished
	}

	c.publish(event)
	c.advance()
}

func (c *Controller) handleRelease() bool {
	if c.voiceChannelID != 0 || c.State() != domain.StateIdle ||
		c.queue.NowPlaying() != nil || !c.queue.IsEmpty() {
		return false
	}

	_ = c.teardown(domain.StopReasonDisconnected, false)
	return true
}

func (c *Controller) handleIdleTimeout() {
	if c.State() != domain.StateIdle || !c.queue.IsEmpty() {
		return
	}

	c.logger.Info("leaving voice channel after idle timeout", "timeout", c.opts.IdleTimeout)
	_ = c.teardown(domain.StopReasonIdle, true)
}

// advance drops the current track and starts the next pending entry, or goes idle.
func (c *Controller) advance() {
	c.cancelInFlight()
	c.queue.ClearNowPlaying()

	next, ok := c.queue.PopNext()
	if !ok {
		c.setState(domain.StateIdle)
		c.publish(domain.QueueEndedEvent{
			GuildID:               c.guildID,
			NotificationChannelID: c.notificationChannelID,
		})
		c.armIdleTimer()
		return
	}

	c.startResolve(next)
}

func (c *Controller) startResolve(entry domain.QueueEntry) {
	c.stopIdleTimer()

	c.token++
	token := c.token

	ctx, cancel := context.WithCancel(c.ctx)
	c.currentCtx = ctx
	c.cancelCurrent = cancel

	c.queue.SetNowPlaying(entry)
	c.setState(domain.StateResolving)

	go c.resolve(ctx, token, entry.Query)
}

func (c *Controller) resolve(ctx context.Context, token uint64, query string) {
	resolveCtx := ctx
	if c.opts.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		resolveCtx, cancel = context.WithTimeout(ctx, c.opts.ResolveTimeout)
		defer cancel()
	}

	track, err := c.deps.Resolver.Resolve(resolveCtx, query)
	if ctx.Err() != nil {
		// Skipped or stopped while resolving.
		return
	}

	c.post(resolvedMsg{token: token, track: track, err: err})
}

func (c *Controller) play(ctx context.Context, token uint64, track *domain.Track) {
	outcomes, err := c.deps.Sink.Play(ctx, c.guildID, track)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.post(playbackDoneMsg{token: token, outcome: domain.Failed(err)})
		return
	}

	select {
	case outcome, ok := <-outcomes:
		if !ok {
			outcome = domain.Cancelled()
		}
		c.post(playbackDoneMsg{token: token, outcome: outcome})
	case <-ctx.Done():
	}
}

// teardown moves to Stopped. It runs on the loop and is terminal.
func (c *Controller) teardown(reason domain.StopReason, leave bool) error {
	c.cancelInFlight()
	c.stopIdleTimer()
	c.queue.Clear()
	c.setState(domain.StateStopped)

	var leaveErr error
	if leave && c.voiceChannelID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.LeaveTimeout)
		leaveErr = c.deps.Voice.LeaveChannel(ctx, c.guildID)
		cancel()
		if leaveErr != nil {
			c.logger.Warn("failed to leave voice channel", "error", leaveErr)
		}
	}
	c.voiceChannelID = 0

	c.publish(domain.PlayerStoppedEvent{
		GuildID:               c.guildID,
		Reason:                reason,
		NotificationChannelID: c.notificationChannelID,
	})

	c.cancel()

	if c.onStopped != nil {
		c.onStopped(c)
	}

	c.logger.Info("stopped player", "reason", string(reason))

	return leaveErr
}

func (c *Controller) cancelInFlight() {
	if c.cancelCurrent != nil {
		c.cancelCurrent()
		c.cancelCurrent = nil
		c.currentCtx = nil
	}
	// Invalidate results of whatever was in flight.
	c.token++
}

func (c *Controller) snapshot() Snapshot {
	q := c.queue.Peek()
	return Snapshot{
		State:                 c.State(),
		VoiceChannelID:        c.voiceChannelID,
		NotificationChannelID: c.notificationChannelID,
		NowPlaying:            q.NowPlaying,
		Pending:               q.Pending,
	}
}

func (c *Controller) armIdleTimer() {
	if c.opts.IdleTimeout <= 0 {
		return
	}
	c.stopIdleTimer()
	c.idleTimer = time.NewTimer(c.opts.IdleTimeout)
}

func (c *Controller) stopIdleTimer() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
}

func (c *Controller) setState(s domain.PlaybackState) {
	c.state.Store(int32(s))
}

func (c *Controller) setNotificationChannel(channelID snowflake.ID) {
	if channelID != 0 {
		c.notificationChannelID = channelID
	}
}

func (c *Controller) publish(event domain.Event) {
	if c.deps.Publisher == nil {
		return
	}
	if err := c.deps.Publisher.Publish(event); err != nil {
		c.logger.Warn("failed to publish event", "event", fmt.Sprintf("%T", event), "error", err)
	}
}
