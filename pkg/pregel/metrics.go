package pregel

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	updates    *prometheus.CounterVec
	changes    *prometheus.CounterVec
	emptyReads *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pregel_channel_updates_total",
			Help: "Total number of update batches applied to a channel",
		}, []string{"channel"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pregel_channel_changes_total",
			Help: "Total number of update batches that changed a channel's value",
		}, []string{"channel"}),
		emptyReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pregel_channel_empty_reads_total",
			Help: "Total number of reads that found a channel empty",
		}, []string{"channel"}),
	}

	var err error
	if m.updates, err = register(reg, m.updates); err != nil {
		return nil, err
	}
	if m.changes, err = register(reg, m.changes); err != nil {
		return nil, err
	}
	if m.emptyReads, err = register(reg, m.emptyReads); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses a collector that an earlier set already registered.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *metrics) observeUpdate(channel string, changed bool) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(channel).Inc()
	if changed {
		m.changes.WithLabelValues(channel).Inc()
	}
}

func (m *metrics) observeEmptyRead(channel string) {
	if m == nil {
		return
	}
	m.emptyReads.WithLabelValues(channel).Inc()
}
