package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r, err := New(Config{Namespace: "test", Registerer: reg})
	require.NoError(t, err)

	r.SetConnections(3)
	r.ObserveBroadcast("task_created", 2, 1)
	r.ObserveBroadcast("task_created", 0, 0)
	r.IncRejected("rate_limited")

	require.Equal(t, 3.0, testutil.ToFloat64(r.connections))
	require.Equal(t, 2.0, testutil.ToFloat64(r.broadcastsTotal.WithLabelValues("task_created")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.deliveriesTotal.WithLabelValues("task_created")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.droppedTotal.WithLabelValues("task_created")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.inboundRejected.WithLabelValues("rate_limited")))

	_, err = New(Config{Namespace: "test", Registerer: reg})
	require.NoError(t, err, "registering twice is tolerated")
}

func TestNilRegistry(t *testing.T) {
	t.Parallel()

	var r *Registry
	r.SetConnections(1)
	r.SetRooms(1)
	r.ObserveBroadcast("x", 1, 1)
	r.IncInbound("x")
	r.IncRejected("x")
}
