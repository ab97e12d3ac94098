package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "arena",
		Subsystem: "game",
		Name:      "active_rooms",
		Help:      "Rooms currently live, ended-but-uncollected ones excluded.",
	})

	matchesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "game",
		Name:      "matches_started_total",
		Help:      "Rooms created, by difficulty.",
	}, []string{"difficulty"})

	gamesEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "game",
		Name:      "games_ended_total",
		Help:      "Games ended, by end reason.",
	}, []string{"reason"})
)
