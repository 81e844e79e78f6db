package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ids_top_frames_received_total",
			Help: "Total number of frames read from the alert channel",
		},
	)

	AlertsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ids_top_alerts_received_total",
			Help: "Total number of alerts decoded from the alert channel",
		},
		[]string{"severity"},
	)

	DecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ids_top_decode_errors_total",
			Help: "Total number of frames dropped because they could not be decoded",
		},
	)

	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ids_top_reconnects_total",
			Help: "Total number of scheduled reconnect attempts",
		},
	)

	ChannelConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ids_top_channel_connected",
			Help: "1 when the alert channel is open, 0 otherwise",
		},
	)

	BufferedAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ids_top_buffered_alerts",
			Help: "Number of alerts currently held in the alert buffer",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ids_top_notifications_sent_total",
			Help: "Total number of desktop notifications shown",
		},
		[]string{"severity"},
	)

	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ids_top_notifications_suppressed_total",
			Help: "Total number of notifications not shown",
		},
		[]string{"reason"},
	)

	StatsPollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ids_top_stats_poll_errors_total",
			Help: "Total number of failed stats polls",
		},
	)

	BandwidthBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ids_top_bandwidth_bytes",
			Help: "Bytes processed by the backend since the previous stats sample",
		},
	)
)
