package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_frames_total",
		Help: "Plugin messages handled by the relay, by the way they were handled",
	}, []string{"kind"})
	redirectOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_redirect_outcomes_total",
		Help: "Redirect requests by outcome and by who asked for them",
	}, []string{"outcome", "origin"})
)
