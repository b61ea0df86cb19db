package node

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	prometheusTxValidated   prometheus.Counter
	prometheusTxRejected    *prometheus.CounterVec
	prometheusTxExecuted    prometheus.Counter
	prometheusTxUndone      prometheus.Counter
	prometheusTxRevalidated prometheus.Counter
	prometheusBlocks        *prometheus.CounterVec
	prometheusTxValidate    prometheus.Histogram
	prometheusBlockConnect  prometheus.Histogram
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusTxValidated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "tx_validated_total",
		Help:      "Transactions that passed validation",
	})
	prometheusTxRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "tx_rejected_total",
		Help:      "Transactions rejected, by error code",
	}, []string{"code"})
	prometheusTxExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "tx_executed_total",
		Help:      "Transactions executed into a block",
	})
	prometheusTxUndone = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "tx_undone_total",
		Help:      "Transactions reverted by block disconnects",
	})
	prometheusTxRevalidated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "tx_revalidated_total",
		Help:      "Transactions re-validated against in-block state",
	})
	prometheusBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "blocks_total",
		Help:      "Block connects and disconnects, by result",
	}, []string{"op", "result"})
	prometheusTxValidate = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "tx_validate_seconds",
		Help:      "Time to validate one transaction",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
	})
	prometheusBlockConnect = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ledger",
		Subsystem: "processor",
		Name:      "block_connect_seconds",
		Help:      "Time to validate, execute and commit one block",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})
}

// ServeMetrics exposes the default registry on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string) error {
	initPrometheusMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
