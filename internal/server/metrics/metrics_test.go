package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRPC("/workoutlog.v1.Data/Read", "OK", 10*time.Millisecond)
	m.ObserveRPC("/workoutlog.v1.Data/Read", "OK", 20*time.Millisecond)
	m.CountRPC("/workoutlog.v1.Data/Subscribe", "Canceled")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("/workoutlog.v1.Data/Read", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("/workoutlog.v1.Data/Subscribe", "Canceled")))

	m.SubscriptionOpened()
	m.SubscriptionOpened()
	m.SubscriptionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscriptions))

	m.Write("append")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("append")))

	at := time.Unix(1714584600, 0)
	m.Backup(nil, at)
	m.Backup(errors.New("s3 down"), at.Add(time.Hour))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backups.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backups.WithLabelValues("error")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastBackup))

	assert.Panics(t, func() { New(reg) }, "collectors register once per registry")
}
