// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nttcom/bgpls/internal/pkg/table"
	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

const namespace = "bgpls"

type Metrics struct {
	BuildInfo   *prometheus.GaugeVec
	LSDBEntries *prometheus.GaugeVec
	Decodes     *prometheus.CounterVec
	UnknownTLVs prometheus.Counter
	Syncs       *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information of bgplsd.",
		}, []string{"version"}),
		LSDBEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lsdb_entries",
			Help:      "Number of LSDB entries per NLRI type.",
		}, []string{"nlri_type"}),
		Decodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_total",
			Help:      "Decoded NLRIs and attributes by outcome.",
		}, []string{"status"}),
		UnknownTLVs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_tlv_total",
			Help:      "TLVs skipped because their type is not known in their region.",
		}),
		Syncs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gobgp_sync_total",
			Help:      "Resynchronisations with gobgp by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveLSDB(db *table.LSDB) {
	for _, t := range bgpls.NLRITypes {
		m.LSDBEntries.WithLabelValues(t.String()).Set(float64(db.Count(t)))
	}
}

func (m *Metrics) ObserveResult(res bgpls.Result) {
	m.Decodes.WithLabelValues(res.Status.String()).Inc()
}

func (m *Metrics) ObserveSync(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Syncs.WithLabelValues(result).Inc()
}

// Serve exposes g on /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info("prometheus metrics server listening", zap.String("address", listener.Addr().String()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
