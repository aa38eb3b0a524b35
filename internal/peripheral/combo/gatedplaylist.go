package combo

import (
	"context"
	"fmt"
	"sync"

	"github.com/Organization5762/heart/internal/event"
	"github.com/Organization5762/heart/internal/event/topic"
	"github.com/Organization5762/heart/internal/log"
	"github.com/Organization5762/heart/internal/peripheral"
	"github.com/Organization5762/heart/internal/playlist"
)

// Resource names declared by GatedPlaylist definitions.
const (
	ResourcePlaylists = "playlists"
	ResourcePlaylist  = "playlist"
)

// GatedPlaylistConfig configures GatedPlaylist.
type GatedPlaylistConfig struct {
	Name           string
	GateEventTypes []topic.Topic

	Playlists *playlist.Manager
	Playlist  playlist.Handle

	// CancelActiveRuns cancels runs this instance started before starting
	// a new one.
	CancelActiveRuns bool

	// Predicate, when set, selects which gate events start a run.
	Predicate func(event.Event) bool

	// OutputEventType, when set, is emitted with a GatedPlaylistPayload
	// after each started run.
	OutputEventType topic.Topic

	Metadata map[string]any
}

// GatedPlaylist starts a playlist run for every gate event, passing the
// event as the run's trigger. Shutdown cancels the runs it started.
func GatedPlaylist(cfg GatedPlaylistConfig) (peripheral.Definition, error) {
	if cfg.Name == "" {
		cfg.Name = "gated_playlist"
	}
	if cfg.Playlists == nil {
		return peripheral.Definition{}, fmt.Errorf("%w: %s has no playlist manager", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	if len(cfg.GateEventTypes) == 0 {
		return peripheral.Definition{}, fmt.Errorf("%w: %s has no gate event types", peripheral.ErrInvalidDefinition, cfg.Name)
	}
	if cfg.OutputEventType != "" && !cfg.OutputEventType.IsValid() {
		return peripheral.Definition{}, fmt.Errorf("%w: %s output event type %q", peripheral.ErrInvalidDefinition, cfg.Name, cfg.OutputEventType)
	}

	return peripheral.Definition{
		Name:       cfg.Name,
		EventTypes: topic.Unique(cfg.GateEventTypes...),
		Metadata:   cfg.Metadata,
		Priority:   event.PriorityHigh,
		Filter:     cfg.Predicate,
		Resources: map[string]peripheral.Resolver{
			ResourcePlaylists: func(*peripheral.Context) (any, error) {
				return cfg.Playlists, nil
			},
			ResourcePlaylist: func(*peripheral.Context) (any, error) {
				return cfg.Playlist, nil
			},
		},
		Factory: func(c *peripheral.Context) (peripheral.Instance, error) {
			manager, err := peripheral.ResourceAs[*playlist.Manager](c, ResourcePlaylists)
			if err != nil {
				return nil, err
			}
			handle, err := peripheral.ResourceAs[playlist.Handle](c, ResourcePlaylist)
			if err != nil {
				return nil, err
			}
			return &gatedPlaylist{cfg: cfg, pctx: c, manager: manager, handle: handle}, nil
		},
	}, nil
}

type gatedPlaylist struct {
	cfg     GatedPlaylistConfig
	pctx    *peripheral.Context
	manager *playlist.Manager
	handle  playlist.Handle

	mu   sync.Mutex
	runs []playlist.RunID
}

func (g *gatedPlaylist) Handle(ctx context.Context, evt event.Event) error {
	g.mu.Lock()
	var previous []playlist.RunID
	if g.cfg.CancelActiveRuns {
		previous = g.runs
		g.runs = nil
	}
	g.mu.Unlock()

	var cancelled []string
	for _, id := range previous {
		if g.manager.Cancel(id) {
			cancelled = append(cancelled, string(id))
		}
	}

	id, err := g.manager.StartWithTrigger(ctx, g.handle, evt)
	if err != nil {
		return fmt.Errorf("starting %s: %w", g.handle.Name, err)
	}

	g.mu.Lock()
	g.runs = append(g.pruneLocked(), id)
	g.mu.Unlock()

	logger := g.pctx.Logger()
	logger.Debug().
		Str(log.FieldPlaylist, g.handle.Name).
		Str(log.FieldRunID, string(id)).
		Int("cancelled", len(cancelled)).
		Msg("gated playlist started")

	if g.cfg.OutputEventType == "" {
		return nil
	}
	return g.pctx.Emit(ctx, g.pctx.Publisher(event.NoProducer), g.cfg.OutputEventType, GatedPlaylistPayload{
		VirtualPeripheral: describe(g.pctx),
		RunID:             string(id),
		Trigger:           evt,
		Cancelled:         cancelled,
	})
}

// pruneLocked drops runs that already finished.
func (g *gatedPlaylist) pruneLocked() []playlist.RunID {
	live := g.runs[:0]
	for _, id := range g.runs {
		if st, ok := g.manager.Status(id); ok && !st.State.IsTerminal() {
			live = append(live, id)
		}
	}
	return live
}

// Runs returns the runs started by this instance that have not finished.
func (g *gatedPlaylist) Runs() []playlist.RunID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.runs = g.pruneLocked()
	return append([]playlist.RunID(nil), g.runs...)
}

// Shutdown cancels every run this instance started.
func (g *gatedPlaylist) Shutdown() {
	g.mu.Lock()
	runs := g.runs
	g.runs = nil
	g.mu.Unlock()

	for _, id := range runs {
		g.manager.Cancel(id)
	}
}
