package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlineConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "yuchat_online_conns",
		Help: "Current open websocket connections.",
	})
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "yuchat_online_users",
		Help: "Current users with at least one open connection.",
	})

	FanoutQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yuchat_fanout_queued_total",
		Help: "Total envelopes queued on a connection successfully.",
	})
	FanoutDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yuchat_fanout_dropped_total",
		Help: "Total envelopes dropped because a connection queue was full.",
	})
	FanoutOffline = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yuchat_fanout_offline_total",
		Help: "Total member targets skipped because the user had no connection.",
	})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yuchat_events_published_total",
		Help: "Total event envelopes published, by type.",
	}, []string{"type"})
)

func Register() {
	prometheus.MustRegister(
		OnlineConns, OnlineUsers,
		FanoutQueued, FanoutDropped, FanoutOffline,
		EventsPublished,
	)
}
