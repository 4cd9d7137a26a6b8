package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultMetricsNamespace = "collab_realtime"

// Config contains metrics configuration.
type Config struct {
	// Namespace is the prometheus namespace for all metrics. If empty, defaults to "collab_realtime".
	Namespace string
	// Registerer is the prometheus registerer to use. If nil, prometheus.DefaultRegisterer is used.
	Registerer prometheus.Registerer
}

// Registry holds the realtime instruments. A nil *Registry is valid and records nothing.
type Registry struct {
	connections     prometheus.Gauge
	rooms           prometheus.Gauge
	broadcastsTotal *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	inboundTotal    *prometheus.CounterVec
	inboundRejected *prometheus.CounterVec
}

func New(cfg Config) (*Registry, error) {
	registerer := cfg.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultMetricsNamespace
	}

	r := &Registry{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "hub",
			Name:      "connections",
			Help:      "Number of live realtime connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "hub",
			Name:      "rooms",
			Help:      "Number of rooms with at least one member.",
		}),
		broadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "router",
			Name:      "broadcasts_total",
			Help:      "Number of broadcast calls by event name.",
		}, []string{"event"}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "router",
			Name:      "deliveries_total",
			Help:      "Number of frames queued to member connections by event name.",
		}, []string{"event"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "router",
			Name:      "dropped_total",
			Help:      "Number of frames dropped because of backpressure by event name.",
		}, []string{"event"}),
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "signal",
			Name:      "inbound_total",
			Help:      "Number of accepted client requests by event name.",
		}, []string{"event"}),
		inboundRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "signal",
			Name:      "inbound_rejected_total",
			Help:      "Number of rejected client frames by reason.",
		}, []string{"reason"}),
	}

	var err error
	if r.connections, err = register(registerer, r.connections); err != nil {
		return nil, err
	}
	if r.rooms, err = register(registerer, r.rooms); err != nil {
		return nil, err
	}
	for _, vec := range []**prometheus.CounterVec{
		&r.broadcastsTotal, &r.deliveriesTotal, &r.droppedTotal, &r.inboundTotal, &r.inboundRejected,
	} {
		if *vec, err = register(registerer, *vec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// register returns the already registered collector when an identical one
// exists, so several hubs in one process share instruments.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (r *Registry) SetConnections(n int) {
	if r == nil {
		return
	}
	r.connections.Set(float64(n))
}

func (r *Registry) SetRooms(n int) {
	if r == nil {
		return
	}
	r.rooms.Set(float64(n))
}

func (r *Registry) ObserveBroadcast(event string, delivered, dropped int) {
	if r == nil {
		return
	}
	r.broadcastsTotal.WithLabelValues(event).Inc()
	r.deliveriesTotal.WithLabelValues(event).Add(float64(delivered))
	if dropped > 0 {
		r.droppedTotal.WithLabelValues(event).Add(float64(dropped))
	}
}

func (r *Registry) IncInbound(event string) {
	if r == nil {
		return
	}
	r.inboundTotal.WithLabelValues(event).Inc()
}

func (r *Registry) IncRejected(reason string) {
	if r == nil {
		return
	}
	r.inboundRejected.WithLabelValues(reason).Inc()
}
