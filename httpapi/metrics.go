package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bobg/seguid/upsert"
)

const namespace = "seguid"

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	records  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upsert_records_total",
				Help:      "Upserted records by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(m.requests, m.records)
	return m
}

func (m *metrics) observe(res upsert.Result) {
	m.records.WithLabelValues("created").Add(float64(len(res.Created)))
	m.records.WithLabelValues("updated").Add(float64(len(res.Updated)))
	m.records.WithLabelValues("unchanged").Add(float64(len(res.Unchanged)))
	m.records.WithLabelValues("failed").Add(float64(len(res.Failed)))
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// countRequests is middleware counting requests by route name.
func (m *metrics) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil && cur.GetName() != "" {
			route = cur.GetName()
		}
		m.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}
