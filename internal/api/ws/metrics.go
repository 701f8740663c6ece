package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "widgetboard",
		Subsystem: "cable",
		Name:      "connections",
		Help:      "Open cable websocket connections.",
	})
	metricSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "widgetboard",
		Subsystem: "cable",
		Name:      "subscriptions",
		Help:      "Confirmed widget subscriptions across all connections.",
	})
	metricRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "widgetboard",
		Subsystem: "cable",
		Name:      "subscriptions_rejected_total",
		Help:      "Subscriptions rejected, by reason.",
	}, []string{"reason"})
	metricRedraws = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "widgetboard",
		Subsystem: "cable",
		Name:      "redraws_total",
		Help:      "Redraw requests, by outcome.",
	}, []string{"outcome"})
)
