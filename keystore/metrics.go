package keystore

import "github.com/prometheus/client_golang/prometheus"

type storeMetrics struct {
	unlocks         prometheus.Counter
	autoLocks       prometheus.Counter
	signatures      prometheus.Counter
	decryptFailures prometheus.Counter
}

func newStoreMetrics() *storeMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iden3",
			Subsystem: "keystore",
			Name:      name,
			Help:      help,
		})
	}
	return &storeMetrics{
		unlocks:         counter("unlocks_total", "Successful unlock calls."),
		autoLocks:       counter("auto_locks_total", "Auto-lock timer expirations."),
		signatures:      counter("signatures_total", "Signatures produced."),
		decryptFailures: counter("decrypt_failures_total", "Decryption failures on stored values."),
	}
}

// RegisterMetrics attaches the store's counters to reg, typically
// prometheus.DefaultRegisterer.
func (s *Store) RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		s.metrics.unlocks,
		s.metrics.autoLocks,
		s.metrics.signatures,
		s.metrics.decryptFailures,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
