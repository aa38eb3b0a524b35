package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlaylistRunsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heart_playlist_runs_started_total",
		Help: "Total number of playlist runs started",
	}, []string{"playlist"})

	PlaylistRunsStoppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heart_playlist_runs_stopped_total",
		Help: "Total number of playlist runs that reached a terminal state, by reason",
	}, []string{"playlist", "reason"})

	PlaylistActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "heart_playlist_active_runs",
		Help: "Number of playlist runs currently pending or running",
	})
)

// IncPlaylistStarted records a run start.
func IncPlaylistStarted(playlist string) {
	PlaylistRunsStartedTotal.WithLabelValues(label(playlist)).Inc()
	PlaylistActiveRuns.Inc()
}

// IncPlaylistStopped records a run reaching a terminal state.
func IncPlaylistStopped(playlist, reason string) {
	PlaylistRunsStoppedTotal.WithLabelValues(label(playlist), label(reason)).Inc()
	PlaylistActiveRuns.Dec()
}
