package metrics

import "github.com/prometheus/client_golang/prometheus"

// BroadcastMetrics counts fan-out results of the live event layer.
type BroadcastMetrics struct {
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// NewBroadcastMetrics registers the broadcast metrics on the provided registerer.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	if reg == nil {
		return &BroadcastMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_delivered",
		Help: "Events handed to a subscriber.",
	}, []string{"event"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcast_dropped",
		Help: "Events dropped because a subscriber was full or gone.",
	}, []string{"event"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_subscribers",
		Help: "Currently connected subscriptions.",
	})
	reg.MustRegister(delivered, dropped, subscribers)
	return &BroadcastMetrics{
		delivered:   delivered,
		dropped:     dropped,
		subscribers: subscribers,
	}
}

func (b *BroadcastMetrics) IncDelivered(event string) {
	if b == nil || b.delivered == nil {
		return
	}
	b.delivered.WithLabelValues(normalizeLabel(event)).Inc()
}

func (b *BroadcastMetrics) IncDropped(event string) {
	if b == nil || b.dropped == nil {
		return
	}
	b.dropped.WithLabelValues(normalizeLabel(event)).Inc()
}

func (b *BroadcastMetrics) AddSubscribers(delta int) {
	if b == nil || b.subscribers == nil {
		return
	}
	b.subscribers.Add(float64(delta))
}
