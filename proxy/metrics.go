package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_players_online",
		Help: "The number of players known to the relay",
	})
	switchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_connection_switches_total",
		Help: "The results of connection switches",
	}, []string{"result"})
)
