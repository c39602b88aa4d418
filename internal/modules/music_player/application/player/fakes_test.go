package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

const waitTimeout = 2 * time.Second

// fakeResolver resolves every query to a track titled after it.
// Queries listed in fail return that error; queries listed in block wait
// until released or cancelled.
type fakeResolver struct {
	mu        sync.Mutex
	fail      map[string]error
	block     map[string]chan struct{}
	calls     []string
	cancelled []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		fail:  make(map[string]error),
		block: make(map[string]chan struct{}),
	}
}

func (r *fakeResolver) failOn(query string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[query] = err
}

func (r *fakeResolver) blockOn(query string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.block[query] = ch
	return ch
}

func (r *fakeResolver) Resolve(ctx context.Context, query string) (*domain.Track, error) {
	r.mu.Lock()
	r.calls = append(r.calls, query)
	err := r.fail[query]
	gate := r.block[query]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			r.mu.Lock()
			r.cancelled = append(r.cancelled, query)
			r.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return &domain.Track{
		Encoded:    "enc-" + query,
		Identifier: query,
		Title:      query,
		Duration:   3 * time.Minute,
	}, nil
}

func (r *fakeResolver) cancelledQueries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cancelled...)
}

type fakePlay struct {
	ctx   context.Context
	track *domain.Track
	out   chan domain.PlaybackOutcome
}

func (p *fakePlay) finish(outcome domain.PlaybackOutcome) {
	p.out <- outcome
}

// fakeSink records every Play call and lets the test decide how it ends.
type fakeSink struct {
	mu      sync.Mutex
	plays   []*fakePlay
	started chan *fakePlay
	playErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{started: make(chan *fakePlay, 128)}
}

func (s *fakeSink) Play(
	ctx context.Context,
	_ snowflake.ID,
	track *domain.Track,
) (<-chan domain.PlaybackOutcome, error) {
	s.mu.Lock()
	err := s.playErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	p := &fakePlay{ctx: ctx, track: track, out: make(chan domain.PlaybackOutcome, 1)}

	s.mu.Lock()
	s.plays = append(s.plays, p)
	s.mu.Unlock()

	s.started <- p
	return p.out, nil
}

func (s *fakeSink) next(t *testing.T) *fakePlay {
	t.Helper()
	select {
	case p := <-s.started:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for playback to start")
		return nil
	}
}

func (s *fakeSink) expectNoPlay(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case p := <-s.started:
		t.Fatalf("unexpected playback of %q", p.track.Title)
	case <-time.After(d):
	}
}

func (s *fakeSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.plays))
	for _, p := range s.plays {
		titles = append(titles, p.track.Title)
	}
	return titles
}

type fakeVoice struct {
	mu       sync.Mutex
	joins    []snowflake.ID
	leaves   int
	leaveErr error
}

func (v *fakeVoice) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.joins = append(v.joins, channelID)
	return nil
}

func (v *fakeVoice) LeaveChannel(context.Context, snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves++
	return v.leaveErr
}

func (v *fakeVoice) leaveCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leaves
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) snapshot() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

// waitEvent polls until an event matching pred has been published.
func (p *recordingPublisher) waitEvent(t *testing.T, pred func(domain.Event) bool) domain.Event {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		for _, e := range p.snapshot() {
			if pred(e) {
				return e
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for event")
	return nil
}

func (p *recordingPublisher) trackEnded(reason domain.TrackEndReason) []domain.TrackEndedEvent {
	var out []domain.TrackEndedEvent
	for _, e := range p.snapshot() {
		if ended, ok := e.(domain.TrackEndedEvent); ok && ended.Reason == reason {
			out = append(out, ended)
		}
	}
	return out
}

func isQueueEnded(e domain.Event) bool {
	_, ok := e.(domain.QueueEndedEvent)
	return ok
}

func isPlayerStopped(e domain.Event) bool {
	_, ok := e.(domain.PlayerStoppedEvent)
	return ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

type harness struct {
	resolver  *fakeResolver
	sink      *fakeSink
	voice     *fakeVoice
	publisher *recordingPublisher
}

func newHarness() *harness {
	return &harness{
		resolver:  newFakeResolver(),
		sink:      newFakeSink(),
		voice:     &fakeVoice{},
		publisher: &recordingPublisher{},
	}
}

func (h *harness) deps() Dependencies {
	return Dependencies{
		Resolver:  h.resolver,
		Sink:      h.sink,
		Voice:     h.voice,
		Publisher: h.publisher,
	}
}

const (
	testGuild        = snowflake.ID(1)
	testVoiceChannel = snowflake.ID(10)
	testTextChannel  = snowflake.ID(20)
)

// connected returns a controller attached to a voice channel.
func (h *harness) connected(t *testing.T, opts Options) *Controller {
	t.Helper()

	c := newController(testGuild, h.deps(), opts, nil)
	t.Cleanup(func() {
		_ = c.Stop(context.Background())
		<-c.Done()
	})

	if err := c.Attach(context.Background(), testVoiceChannel, testTextChannel); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	return c
}

func entry(query string) domain.QueueEntry {
	return domain.NewQueueEntry(query, snowflake.ID(99), "listener")
}

func mustEnqueue(t *testing.T, c *Controller, query string) EnqueueResult {
	t.Helper()
	res, err := c.Enqueue(context.Background(), entry(query), 0)
	if err != nil {
		t.Fatalf("Enqueue(%q) error = %v", query, err)
	}
	return res
}
