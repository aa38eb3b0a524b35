package playlist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
	"github.com/Organization5762/heart/internal/log"
	"github.com/Organization5762/heart/internal/metrics"
)

// registration is a registered template and its live runs.
type registration struct {
	handle   Handle
	playlist Playlist
	subs     *event.Subscriber
	active   map[RunID]*run
}

// Manager registers playlists and executes their runs.
//
// Runs belong to the manager rather than to the context passed to Start:
// they continue after the caller returns and end through completion,
// an interrupt event, Cancel, Unregister or Close.
type Manager struct {
	bus    *event.Bus
	cfg    managerConfig
	logger zerolog.Logger

	base       context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu        sync.Mutex
	playlists map[string]*registration
	runs      map[RunID]*run
	finished  []RunID
	closed    bool
}

// NewManager creates a playlist manager emitting on bus.
func NewManager(bus *event.Bus, opts ...ManagerOption) *Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		bus:        bus,
		cfg:        cfg,
		logger:     cfg.logger,
		base:       base,
		cancelBase: cancel,
		playlists:  make(map[string]*registration),
		runs:       make(map[RunID]*run),
	}
}

// Register stores a validated private copy of p. Nothing starts until
// Start is called or the trigger event arrives.
func (m *Manager) Register(p Playlist) (Handle, error) {
	if err := p.Validate(); err != nil {
		return Handle{}, err
	}

	reg := &registration{
		handle:   Handle{ID: uuid.NewString(), Name: p.Name},
		playlist: p.clone(),
		subs:     event.NewSubscriber(m.bus),
		active:   make(map[RunID]*run),
	}

	if t := reg.playlist.TriggerEventType; t != "" {
		_, err := reg.subs.SubscribeFunc(t, func(ctx context.Context, evt event.Event) error {
			_, err := m.start(ctx, reg, &evt)
			return err
		})
		if err != nil {
			_ = reg.subs.Close()
			return Handle{}, fmt.Errorf("subscribing trigger for %s: %w", p.Name, err)
		}
	}

	interrupt := func(ctx context.Context, evt event.Event) error {
		m.interrupt(reg, evt)
		return nil
	}
	for _, t := range reg.playlist.InterruptEvents {
		if _, err := reg.subs.SubscribeFunc(t, interrupt); err != nil {
			_ = reg.subs.Close()
			return Handle{}, fmt.Errorf("subscribing interrupt for %s: %w", p.Name, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		_ = reg.subs.Close()
		return Handle{}, ErrManagerClosed
	}
	m.playlists[reg.handle.ID] = reg

	m.logger.Debug().
		Str(log.FieldPlaylist, p.Name).
		Int("steps", len(p.Steps)).
		Msg("playlist registered")
	return reg.handle, nil
}

// Unregister removes the playlist and cancels its active runs.
func (m *Manager) Unregister(h Handle) error {
	m.mu.Lock()
	reg, ok := m.playlists[h.ID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPlaylist, h.Name)
	}
	delete(m.playlists, h.ID)
	active := activeRuns(reg)
	m.mu.Unlock()

	_ = reg.subs.Close()
	for _, r := range active {
		r.stop(ReasonCancelled, nil)
	}
	return nil
}

// Start begins a new run of the playlist on its own goroutine and returns
// its ID. playlist.created is published before Start returns.
func (m *Manager) Start(ctx context.Context, h Handle) (RunID, error) {
	reg, err := m.lookup(h)
	if err != nil {
		return "", err
	}
	return m.start(ctx, reg, nil)
}

// StartWithTrigger is Start with the event that caused the run, reported in
// the run's CreatedPayload.
func (m *Manager) StartWithTrigger(ctx context.Context, h Handle, trigger event.Event) (RunID, error) {
	reg, err := m.lookup(h)
	if err != nil {
		return "", err
	}
	trigger = trigger.Clone()
	return m.start(ctx, reg, &trigger)
}

func (m *Manager) lookup(h Handle) (*registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	reg, ok := m.playlists[h.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlaylist, h.Name)
	}
	return reg, nil
}

func (m *Manager) start(ctx context.Context, reg *registration, trigger *event.Event) (RunID, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrManagerClosed
	}
	if _, ok := m.playlists[reg.handle.ID]; !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrUnknownPlaylist, reg.handle.Name)
	}
	r := newRun(m.base, RunID(uuid.NewString()), reg, trigger)
	reg.active[r.id] = r
	m.runs[r.id] = r
	m.wg.Add(1)
	m.mu.Unlock()

	if m.cfg.metricsEnabled {
		metrics.IncPlaylistStarted(reg.handle.Name)
	}
	m.logger.Debug().
		Str(log.FieldPlaylist, reg.handle.Name).
		Str(log.FieldRunID, string(r.id)).
		Bool("triggered", trigger != nil).
		Msg("playlist run started")

	m.publish(ctx, EventCreated, CreatedPayload{
		PlaylistID:   r.id,
		Playlist:     reg.handle.Name,
		TriggerEvent: trigger,
		Metadata:     cloneMetadata(reg.playlist.Metadata),
		Steps:        snapshotSteps(reg.playlist.Steps),
	})

	go m.execute(r)
	return r.id, nil
}

func (m *Manager) execute(r *run) {
	defer m.wg.Done()

	r.setRunning()
	if m.play(r) && r.complete() {
		if t := r.reg.playlist.CompletionEventType; t != "" {
			m.publish(r.ctx, t, CompletionPayload{
				PlaylistID: r.id,
				Metadata:   cloneMetadata(r.reg.playlist.Metadata),
			})
		}
	}
	m.finish(r)
}

// play walks the steps. It returns false if the run was stopped early.
func (m *Manager) play(r *run) bool {
	p := r.reg.playlist
	for i, step := range p.Steps {
		if !r.sleep(step.Offset) {
			return false
		}
		for k := 0; k < step.repeats(); k++ {
			if k > 0 && !r.sleep(step.Interval) {
				return false
			}
			if err := m.bus.Emit(r.ctx, step.EventType, event.CopyPayload(step.Data),
				event.WithProducerOf(step.Producer)); err != nil {
				m.logger.Warn().Err(err).
					Str(log.FieldPlaylist, p.Name).
					Str(log.FieldRunID, string(r.id)).
					Msg("playlist step emit failed")
			}
			m.publish(r.ctx, EventEmitted, EmittedPayload{
				PlaylistID:  r.id,
				Playlist:    p.Name,
				EventType:   step.EventType,
				StepIndex:   i,
				RepeatIndex: k,
				Data:        event.CopyPayload(step.Data),
				Metadata:    cloneMetadata(p.Metadata),
			})
		}
	}
	return true
}

func (m *Manager) finish(r *run) {
	reason, interrupt := r.terminate()
	r.cancel()

	m.mu.Lock()
	delete(r.reg.active, r.id)
	m.finished = append(m.finished, r.id)
	for len(m.finished) > m.cfg.historyLimit {
		delete(m.runs, m.finished[0])
		m.finished = m.finished[1:]
	}
	m.mu.Unlock()

	if m.cfg.metricsEnabled {
		metrics.IncPlaylistStopped(r.reg.handle.Name, string(reason))
	}
	m.logger.Debug().
		Str(log.FieldPlaylist, r.reg.handle.Name).
		Str(log.FieldRunID, string(r.id)).
		Str(log.FieldReason, string(reason)).
		Msg("playlist run stopped")

	m.publish(context.WithoutCancel(r.ctx), EventStopped, StoppedPayload{
		PlaylistID:     r.id,
		Playlist:       r.reg.handle.Name,
		Reason:         reason,
		InterruptEvent: interrupt,
		Metadata:       cloneMetadata(r.reg.playlist.Metadata),
	})
	close(r.done)
}

func (m *Manager) interrupt(reg *registration, evt event.Event) {
	m.mu.Lock()
	active := activeRuns(reg)
	m.mu.Unlock()

	for _, r := range active {
		ie := &InterruptEvent{EventType: evt.Type, Data: event.CopyPayload(evt.Data)}
		if r.stop(ReasonInterrupted, ie) {
			m.logger.Debug().
				Str(log.FieldPlaylist, reg.handle.Name).
				Str(log.FieldRunID, string(r.id)).
				Str(log.FieldEventType, evt.Type.String()).
				Msg("playlist run interrupted")
		}
	}
}

func (m *Manager) publish(ctx context.Context, t topic.Topic, payload any) {
	if err := m.bus.Emit(ctx, t, payload); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldEventType, t.String()).Msg("playlist telemetry emit failed")
	}
}

// Cancel stops a run with reason "cancelled". It returns false when the
// run is unknown, already finished or already stopping.
func (m *Manager) Cancel(id RunID) bool {
	m.mu.Lock()
	r, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return r.stop(ReasonCancelled, nil)
}

// Join blocks until the run reaches a terminal state or timeout elapses,
// and reports whether it finished. A timeout of zero only polls.
func (m *Manager) Join(id RunID, timeout time.Duration) bool {
	m.mu.Lock()
	r, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return r.wait(timeout)
}

// Status returns the current status of a run, including finished runs
// still within the history limit.
func (m *Manager) Status(id RunID) (RunStatus, bool) {
	m.mu.Lock()
	r, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return RunStatus{}, false
	}
	return r.status(), true
}

// ActiveRuns returns the runs that have not finished, oldest first.
func (m *Manager) ActiveRuns() []RunStatus {
	m.mu.Lock()
	var active []*run
	for _, reg := range m.playlists {
		active = append(active, activeRuns(reg)...)
	}
	m.mu.Unlock()

	out := make([]RunStatus, 0, len(active))
	for _, r := range active {
		out = append(out, r.status())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Close cancels every active run, removes all subscriptions and waits for
// the run goroutines to exit or ctx to end.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	regs := make([]*registration, 0, len(m.playlists))
	var active []*run
	for _, reg := range m.playlists {
		regs = append(regs, reg)
		active = append(active, activeRuns(reg)...)
	}
	m.mu.Unlock()

	for _, reg := range regs {
		_ = reg.subs.Close()
	}
	for _, r := range active {
		r.stop(ReasonCancelled, nil)
	}
	m.cancelBase()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activeRuns must be called with m.mu held.
func activeRuns(reg *registration) []*run {
	out := make([]*run, 0, len(reg.active))
	for _, r := range reg.active {
		out = append(out, r)
	}
	return out
}
