package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var backendsConnected = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "relay_backends_connected",
	Help: "The number of backend servers connected to the relay",
})

var connectionsDenied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "relay_backend_connections_denied_total",
	Help: "Backend connections refused by the connection limiter",
})
